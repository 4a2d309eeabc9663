package chat

import "os"

// Gemini model IDs used by the studio.
//
// | Model Name                 | API Model ID               | Use Case                   |
// |----------------------------|----------------------------|----------------------------|
// | Gemini 2.5 Flash Image     | gemini-2.5-flash-image     | Design generation, recolor |
// | Gemini 3 Pro Image         | gemini-3-pro-image-preview | Higher-fidelity edits      |
// | Gemini 2.5 Flash           | gemini-2.5-flash           | Rationale text             |
// | Gemini 2.5 Flash-Lite      | gemini-2.5-flash-lite      | Key validation             |
const (
	// ModelGemini25FlashImage generates and edits images.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is the higher-fidelity image model.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini25Flash is stable, balanced text generation.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost calls.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"

	// ModelImagen3Capability is the Vertex AI Imagen model that accepts masks.
	ModelImagen3Capability = "imagen-3.0-capability-001"
)

const (
	// DefaultImageModel is used for generation and recolor.
	DefaultImageModel = ModelGemini25FlashImage
	// DefaultTextModel is used for the rationale text.
	DefaultTextModel = ModelGemini25Flash
)

// ImageModelName returns NOKSHA_IMAGE_MODEL if set, else DefaultImageModel.
func ImageModelName() string {
	if env := os.Getenv("NOKSHA_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModel
}

// TextModelName returns NOKSHA_TEXT_MODEL if set, else DefaultTextModel.
func TextModelName() string {
	if env := os.Getenv("NOKSHA_TEXT_MODEL"); env != "" {
		return env
	}
	return DefaultTextModel
}
