package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/fpang/noksha/internal/design"
)

// DefaultThumbnailMaxDimension is the longest side of history thumbnails.
const DefaultThumbnailMaxDimension = 256

// Thumbnail returns a JPEG no larger than maxDimension on either side,
// keeping the aspect ratio. Images already small enough are re-encoded
// without resizing.
func Thumbnail(img design.Image, maxDimension int) (design.Image, error) {
	src, err := Decode(img)
	if err != nil {
		return design.Image{}, err
	}
	bounds := src.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := calculateThumbnailDimensions(origWidth, origHeight, maxDimension)

	// JPEG has no alpha; flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if newWidth == origWidth && newHeight == origHeight {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return design.Image{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return design.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// calculateThumbnailDimensions calculates new dimensions maintaining aspect ratio.
func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
