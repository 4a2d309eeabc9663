// Package catalog holds the fixed content of the wizard: preset styles, the
// personality quiz and the recolor palette.
package catalog

import (
	"strings"

	"github.com/fpang/noksha/internal/design"
)

// PresetStyles are the base aesthetics offered on the style step.
var PresetStyles = []design.Style{
	{
		ID:          "jamdani-fusion",
		Name:        "Jamdani Fusion",
		Description: "A modern take on the heritage Jamdani weave, perfect for elegant gatherings.",
		Category:    design.CategoryFusion,
		ImageURL:    "https://picsum.photos/id/106/400/600",
		Gender:      design.GenderFemale,
	},
	{
		ID:          "block-print-casual",
		Name:        "Boho Block Print",
		Description: "Comfortable cotton block print, ideal for university or casual Fridays.",
		Category:    design.CategoryModern,
		ImageURL:    "https://picsum.photos/id/325/400/600",
		Gender:      design.GenderFemale,
	},
	{
		ID:          "karchupi-glam",
		Name:        "Karchupi Glam",
		Description: "Heavily embroidered Karchupi work for wedding receptions and parties.",
		Category:    design.CategoryTraditional,
		ImageURL:    "https://picsum.photos/id/435/400/600",
		Gender:      design.GenderFemale,
	},
	{
		ID:          "silk-sophisticate",
		Name:        "Rajshahi Silk",
		Description: "Pure silk elegance with minimal embroidery for the corporate lady.",
		Category:    design.CategoryTraditional,
		ImageURL:    "https://picsum.photos/id/534/400/600",
		Gender:      design.GenderFemale,
	},
	{
		ID:          "classic-panjabi",
		Name:        "Classic Panjabi",
		Description: "A crisp cotton Panjabi with a mandarin collar for Eid mornings and Friday prayers.",
		Category:    design.CategoryTraditional,
		ImageURL:    "https://picsum.photos/id/338/400/600",
		Gender:      design.GenderMale,
	},
	{
		ID:          "khadi-minimal",
		Name:        "Khadi Minimal",
		Description: "Handspun Khadi in muted tones with a relaxed fit, made for everyday wear.",
		Category:    design.CategoryModern,
		ImageURL:    "https://picsum.photos/id/1005/400/600",
		Gender:      design.GenderMale,
	},
	{
		ID:          "mujib-coat-heritage",
		Name:        "Mujib Coat Heritage",
		Description: "A Panjabi layered under a structured six-button waistcoat for formal occasions.",
		Category:    design.CategoryFusion,
		ImageURL:    "https://picsum.photos/id/1062/400/600",
		Gender:      design.GenderMale,
	},
	{
		ID:          "reception-silk",
		Name:        "Reception Silk",
		Description: "Raw silk with subtle zari embroidery along the placket for wedding receptions.",
		Category:    design.CategoryTraditional,
		ImageURL:    "https://picsum.photos/id/64/400/600",
		Gender:      design.GenderMale,
	},
}

// StylesFor returns the preset styles offered for gender, in catalog order.
func StylesFor(gender design.Gender) []design.Style {
	var out []design.Style
	for _, s := range PresetStyles {
		if s.Gender == gender {
			out = append(out, s)
		}
	}
	return out
}

// FindStyle looks up a style by ID.
func FindStyle(id string) (design.Style, bool) {
	for _, s := range PresetStyles {
		if s.ID == id {
			return s, true
		}
	}
	return design.Style{}, false
}

// Palette is the fixed set of recolor targets.
var Palette = []design.ColorChoice{
	{Label: "Red", Name: "Red", Swatch: "#DC2626"},
	{Label: "Maroon", Name: "Maroon", Swatch: "#7F1D1D"},
	{Label: "Royal Blue", Name: "Royal Blue", Swatch: "#1D4ED8"},
	{Label: "Sky Blue", Name: "Sky Blue", Swatch: "#7DD3FC"},
	{Label: "Emerald", Name: "Emerald Green", Swatch: "#059669"},
	{Label: "Mint", Name: "Mint Green", Swatch: "#A7F3D0"},
	{Label: "Mustard", Name: "Mustard Yellow", Swatch: "#CA8A04"},
	{Label: "Gold", Name: "Metallic Gold", Swatch: "#D4AF37"},
	{Label: "Blush Pink", Name: "Blush Pink", Swatch: "#F9A8D4"},
	{Label: "Ivory", Name: "Ivory White", Swatch: "#FFFBEB"},
	{Label: "Black", Name: "Jet Black", Swatch: "#111827"},
	{Label: "Lavender", Name: "Lavender", Swatch: "#C4B5FD"},
}

// FindColor resolves a palette entry by label, case-insensitively.
func FindColor(label string) (design.ColorChoice, bool) {
	for _, c := range Palette {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return design.ColorChoice{}, false
}
