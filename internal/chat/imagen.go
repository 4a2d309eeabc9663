package chat

// imagen.go calls Imagen 3 mask-based editing through the Vertex AI REST
// API. It is an alternative recolor backend: the mask goes in the
// dedicated mask field with foreground mode, so only white pixels change.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/assets"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/metrics"
)

// ImagenRecolorer recolors masked regions with Imagen 3 on Vertex AI.
type ImagenRecolorer struct {
	projectID   string
	region      string
	accessToken string // GCP OAuth2 access token, not the Gemini API key
	baseURL     string
	httpClient  *http.Client
}

var _ Recolorer = (*ImagenRecolorer)(nil)

// ImagenOption configures an ImagenRecolorer.
type ImagenOption func(*ImagenRecolorer)

// WithImagenBaseURL points the client at a different endpoint root.
func WithImagenBaseURL(u string) ImagenOption {
	return func(c *ImagenRecolorer) { c.baseURL = u }
}

// WithImagenHTTPClient replaces the HTTP client.
func WithImagenHTTPClient(hc *http.Client) ImagenOption {
	return func(c *ImagenRecolorer) { c.httpClient = hc }
}

// NewImagenRecolorer creates a recolorer for the given Vertex AI project.
func NewImagenRecolorer(projectID, region, accessToken string, opts ...ImagenOption) *ImagenRecolorer {
	c := &ImagenRecolorer{
		projectID:   projectID,
		region:      region,
		accessToken: accessToken,
		baseURL:     fmt.Sprintf("https://%s-aiplatform.googleapis.com", region),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether project, region and token are all set.
func (c *ImagenRecolorer) IsConfigured() bool {
	return c.projectID != "" && c.region != "" && c.accessToken != ""
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string      `json:"prompt"`
	Image  imagenData  `json:"image"`
	Mask   *imagenMask `json:"mask,omitempty"`
}

type imagenData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type imagenMask struct {
	Image imagenData `json:"image"`
	// "MASK_MODE_FOREGROUND": white pixels are edited.
	MaskMode string `json:"maskMode,omitempty"`
}

type imagenParameters struct {
	SampleCount int    `json:"sampleCount"`
	EditMode    string `json:"editMode,omitempty"`
}

type imagenResponse struct {
	Predictions []imagenPrediction `json:"predictions"`
	Error       *imagenError       `json:"error,omitempty"`
}

type imagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type imagenError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Recolor performs one inpainting call. The request's multimodal
// instruction is replaced by the short inpainting prompt, which describes
// the desired content of the masked region.
func (c *ImagenRecolorer) Recolor(ctx context.Context, req *EditRequest) (design.Image, error) {
	start := time.Now()
	img, err := c.editWithMask(ctx, req)
	elapsed := time.Since(start)
	metrics.ProviderCall("recolor_imagen", ModelImagen3Capability, elapsed, err)
	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("Imagen recolor failed")
		return design.Image{}, design.NewError(design.KindEdit, "failed to recolor design", err)
	}
	return img, nil
}

func (c *ImagenRecolorer) editWithMask(ctx context.Context, req *EditRequest) (design.Image, error) {
	prompt, err := assets.RenderRecolorInpaint(req.ColorName)
	if err != nil {
		return design.Image{}, err
	}

	log.Debug().
		Str("instruction", truncateString(prompt, 100)).
		Int("image_bytes", len(req.Original.Data)).
		Int("mask_bytes", len(req.Mask.Data)).
		Msg("Starting Imagen API call")

	body, err := json.Marshal(imagenRequest{
		Instances: []imagenInstance{{
			Prompt: prompt,
			Image:  imagenData{BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Original.Data)},
			Mask: &imagenMask{
				Image:    imagenData{BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Mask.Data)},
				MaskMode: "MASK_MODE_FOREGROUND",
			},
		}},
		Parameters: imagenParameters{SampleCount: 1, EditMode: "inpainting-insert"},
	})
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.baseURL, c.projectID, c.region, ModelImagen3Capability)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return design.Image{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Imagen API returned error")
		return design.Image{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateString(string(respBody), 200))
	}

	var imagenResp imagenResponse
	if err := json.Unmarshal(respBody, &imagenResp); err != nil {
		return design.Image{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if imagenResp.Error != nil {
		return design.Image{}, fmt.Errorf("API error: %s (code: %d)", imagenResp.Error.Message, imagenResp.Error.Code)
	}
	if len(imagenResp.Predictions) == 0 {
		return design.Image{}, fmt.Errorf("no predictions returned from Imagen")
	}

	pred := imagenResp.Predictions[0]
	decoded, err := base64.StdEncoding.DecodeString(pred.BytesBase64Encoded)
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to decode response image: %w", err)
	}
	if len(decoded) == 0 {
		return design.Image{}, fmt.Errorf("empty image in Imagen prediction")
	}
	mimeType := pred.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return design.Image{Data: decoded, MIMEType: mimeType}, nil
}
