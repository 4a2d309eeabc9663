// Package chat is the boundary to the generative AI provider.
//
// Generation produces a Design from the wizard preferences: one image call
// followed by one text call for the rationale. Recolor sends the current
// image, a binary mask and a color name, and returns a replacement image.
// Implementations never retry; callers decide what a failure means.
package chat

import (
	"context"

	"github.com/fpang/noksha/internal/design"
)

// FallbackRationale is used when the text model returns nothing.
const FallbackRationale = "A design that perfectly captures your unique essence."

// DesignAspectRatio is the portrait ratio requested for generated designs.
const DesignAspectRatio = "3:4"

// EditRequest is one recolor submission. Mask has the same pixel
// dimensions as Original; white marks the region to recolor.
type EditRequest struct {
	Original    design.Image
	Mask        design.Image
	ColorName   string
	Instruction string
}

// Generator creates a design from collected preferences.
type Generator interface {
	Generate(ctx context.Context, prefs design.Preferences) (*design.Design, error)
}

// Recolorer applies a masked color edit and returns the new image.
type Recolorer interface {
	Recolor(ctx context.Context, req *EditRequest) (design.Image, error)
}

// Provider is a backend that does both.
type Provider interface {
	Generator
	Recolorer
}

// Combine pairs a Generator with a separately configured Recolorer.
func Combine(g Generator, r Recolorer) Provider {
	return combined{Generator: g, Recolorer: r}
}

type combined struct {
	Generator
	Recolorer
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
