// Package assets embeds the prompt templates sent to the image and text
// models. Templates live under prompts/ and are parsed once at startup;
// a malformed template panics at init rather than at call time.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(promptFS, "prompts/*.txt"))

// GenerationData fills prompts/generation.txt.
type GenerationData struct {
	Garment          string
	StyleName        string
	StyleDescription string
	Gender           string
	Sentiments       string
	Details          []string
	HasInspiration   bool
}

// RationaleData fills prompts/rationale.txt.
type RationaleData struct {
	Sentiments string
	StyleName  string
	Gender     string
}

// RecolorData fills the recolor templates.
type RecolorData struct {
	ColorName string
}

// RenderGeneration renders the image generation prompt.
func RenderGeneration(d GenerationData) (string, error) {
	return render("generation.txt", d)
}

// RenderRationale renders the rationale text prompt.
func RenderRationale(d RationaleData) (string, error) {
	return render("rationale.txt", d)
}

// RenderRecolor renders the multimodal recolor instruction that
// accompanies the original image and the mask.
func RenderRecolor(colorName string) (string, error) {
	return render("recolor.txt", RecolorData{ColorName: colorName})
}

// RenderRecolorInpaint renders the short inpainting prompt used by
// mask-aware edit endpoints, which describe the masked content only.
func RenderRecolorInpaint(colorName string) (string, error) {
	return render("recolor-inpaint.txt", RecolorData{ColorName: colorName})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
