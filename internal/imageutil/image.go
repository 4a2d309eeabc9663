// Package imageutil loads, inspects and downsizes the images that move
// between the wizard, the provider and the history view.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/fpang/noksha/internal/design"
)

// MaxInputBytes bounds images accepted from users.
const MaxInputBytes = 20 << 20

// supportedMIME lists the formats the provider accepts as inline data.
var supportedMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var extMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
}

// DetectMIME sniffs the content type, falling back to the file extension
// when sniffing is inconclusive.
func DetectMIME(data []byte, name string) string {
	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}
	if m, ok := extMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return mimeType
}

// Extension returns the file extension for mimeType, defaulting to ".png".
func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// IsSupported reports whether mimeType can be sent to the provider.
func IsSupported(mimeType string) bool {
	return supportedMIME[mimeType]
}

// Load reads an image file into a design.Image.
func Load(path string) (design.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to stat image: %w", err)
	}
	if fi.Size() > MaxInputBytes {
		return design.Image{}, fmt.Errorf("image %s is too large (%d bytes, max %d)", filepath.Base(path), fi.Size(), MaxInputBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return design.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := FromBytes(data, path)
	if err != nil {
		return design.Image{}, err
	}
	log.Debug().
		Str("path", path).
		Str("mime_type", img.MIMEType).
		Int("bytes", len(data)).
		Msg("Image loaded")
	return img, nil
}

// FromBytes wraps raw bytes, rejecting formats the provider cannot read.
func FromBytes(data []byte, name string) (design.Image, error) {
	if len(data) == 0 {
		return design.Image{}, fmt.Errorf("empty image")
	}
	mimeType := DetectMIME(data, name)
	if !IsSupported(mimeType) {
		return design.Image{}, fmt.Errorf("unsupported image format %q", mimeType)
	}
	return design.Image{Data: data, MIMEType: mimeType}, nil
}

// Dimensions decodes only the image header.
func Dimensions(img design.Image) (int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	log.Debug().
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("Image dimensions read")
	return cfg.Width, cfg.Height, nil
}

// Decode fully decodes img.
func Decode(img design.Image) (image.Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return decoded, nil
}
