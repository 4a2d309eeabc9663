package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/metrics"
)

// ContentGenerator is the part of the genai client used here.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a genai client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiStudio generates and recolors designs with Gemini image models.
type GeminiStudio struct {
	models     ContentGenerator
	imageModel string
	textModel  string
}

var _ Provider = (*GeminiStudio)(nil)

// NewGeminiStudio creates a GeminiStudio. Empty model names fall back to
// ImageModelName and TextModelName.
func NewGeminiStudio(models ContentGenerator, imageModel, textModel string) *GeminiStudio {
	if imageModel == "" {
		imageModel = ImageModelName()
	}
	if textModel == "" {
		textModel = TextModelName()
	}
	return &GeminiStudio{models: models, imageModel: imageModel, textModel: textModel}
}

// Generate runs the image call and then the rationale call. Either failing
// fails the whole generation.
func (g *GeminiStudio) Generate(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
	prompt, err := GenerationPrompt(prefs)
	if err != nil {
		return nil, err
	}

	var parts []*genai.Part
	if prefs.Inspiration != nil && !prefs.Inspiration.IsZero() {
		parts = append(parts, inlinePart(*prefs.Inspiration))
	}
	parts = append(parts, &genai.Part{Text: prompt})

	log.Info().
		Str("model", g.imageModel).
		Str("style", prefs.Style.Name).
		Str("gender", string(prefs.Gender)).
		Bool("inspiration", len(parts) > 1).
		Msg("Generating design image")

	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: DesignAspectRatio},
	}
	img, err := g.generateImage(ctx, "generate_image", parts, config)
	if err != nil {
		return nil, design.NewError(design.KindGeneration, "failed to generate design image", err)
	}

	rationale, err := g.rationale(ctx, prefs)
	if err != nil {
		return nil, design.NewError(design.KindGeneration, "failed to generate design rationale", err)
	}

	return &design.Design{
		Image:           img,
		DescriptiveText: prefs.Style.Description,
		RationaleText:   rationale,
	}, nil
}

func (g *GeminiStudio) rationale(ctx context.Context, prefs design.Preferences) (string, error) {
	prompt, err := RationalePrompt(prefs)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(prompt), nil)
	elapsed := time.Since(start)
	metrics.ProviderCall("rationale", g.textModel, elapsed, err)
	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("Rationale call failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		log.Warn().Msg("Empty rationale, using fallback text")
		text = FallbackRationale
	}
	log.Debug().Int("response_length", len(text)).Dur("duration", elapsed).Msg("Rationale received")
	return text, nil
}

// Recolor sends the instruction, the original image and the mask, in
// that order, and returns the first image part of the response.
func (g *GeminiStudio) Recolor(ctx context.Context, req *EditRequest) (design.Image, error) {
	parts := []*genai.Part{
		{Text: req.Instruction},
		inlinePart(req.Original),
		inlinePart(req.Mask),
	}

	log.Info().
		Str("model", g.imageModel).
		Str("color", req.ColorName).
		Int("image_bytes", len(req.Original.Data)).
		Int("mask_bytes", len(req.Mask.Data)).
		Msg("Sending recolor request")

	img, err := g.generateImage(ctx, "recolor", parts, nil)
	if err != nil {
		return design.Image{}, design.NewError(design.KindEdit, "failed to recolor design", err)
	}
	return img, nil
}

func (g *GeminiStudio) generateImage(ctx context.Context, op string, parts []*genai.Part, config *genai.GenerateContentConfig) (design.Image, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.imageModel, contents, config)
	elapsed := time.Since(start)
	if err == nil {
		if img, ok := firstImage(resp); ok {
			metrics.ProviderCall(op, g.imageModel, elapsed, nil)
			log.Debug().
				Str("operation", op).
				Int("output_bytes", len(img.Data)).
				Dur("duration", elapsed).
				Msg("Image received")
			return img, nil
		}
		err = errNoImage(resp)
	}

	metrics.ProviderCall(op, g.imageModel, elapsed, err)
	log.Error().Err(err).Str("operation", op).Dur("duration", elapsed).Msg("Image call failed")
	return design.Image{}, err
}

func errNoImage(resp *genai.GenerateContentResponse) error {
	if resp != nil {
		if text := resp.Text(); text != "" {
			return fmt.Errorf("response contained no image data (text: %s)", truncateString(text, 200))
		}
	}
	return fmt.Errorf("response contained no image data")
}

func inlinePart(img design.Image) *genai.Part {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: img.Data}}
}

// firstImage returns the first inline image of the first candidate.
func firstImage(resp *genai.GenerateContentResponse) (design.Image, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return design.Image{}, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return design.Image{Data: part.InlineData.Data, MIMEType: mimeType}, true
	}
	return design.Image{}, false
}
