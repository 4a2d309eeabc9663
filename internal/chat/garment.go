package chat

import (
	"github.com/fpang/noksha/internal/assets"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/quiz"
)

var femaleDetails = []string{
	"The Kameez (top) should feature intricate details matching the vibe.",
	"The Dupatta (scarf) should be draped elegantly.",
	"Visual style: high resolution, editorial fashion photography, cinematic lighting.",
	"Include specific fabric textures (Jamdani weave, silk sheen, cotton texture) based on the profile.",
}

var maleDetails = []string{
	"The Panjabi (top) should have a modern yet traditional cut.",
	"If the style implies it, include a stylish waistcoat (Mujib coat style or modern vest).",
	"Focus on collar details, button placements and fabric quality.",
	"Visual style: high resolution, editorial fashion photography, cinematic lighting.",
	"Fabrics: cotton, linen, silk or Khadi based on the vibe.",
}

// Garment returns the garment family and design notes for gender.
func Garment(g design.Gender) (string, []string) {
	if g == design.GenderMale {
		return "Bangladeshi men's ethnic wear (Panjabi, Pajama, optionally with a Waistcoat or Vest)", maleDetails
	}
	return `Bangladeshi "Three-Piece" suit (Salwar Kameez, Dupatta)`, femaleDetails
}

// CheckPreferences verifies that everything generation needs was selected.
func CheckPreferences(prefs design.Preferences) error {
	if prefs.Style == nil {
		return design.NewError(design.KindMissingSelection, "no style selected", nil)
	}
	if !prefs.Gender.Valid() {
		return design.NewError(design.KindMissingSelection, "no gender selected", nil)
	}
	return nil
}

// GenerationPrompt renders the image prompt for prefs.
func GenerationPrompt(prefs design.Preferences) (string, error) {
	if err := CheckPreferences(prefs); err != nil {
		return "", err
	}
	garment, details := Garment(prefs.Gender)
	return assets.RenderGeneration(assets.GenerationData{
		Garment:          garment,
		StyleName:        prefs.Style.Name,
		StyleDescription: prefs.Style.Description,
		Gender:           string(prefs.Gender),
		Sentiments:       quiz.Sentiments(prefs.QuizAnswers),
		Details:          details,
		HasInspiration:   prefs.Inspiration != nil && !prefs.Inspiration.IsZero(),
	})
}

// RationalePrompt renders the rationale text prompt for prefs.
func RationalePrompt(prefs design.Preferences) (string, error) {
	if err := CheckPreferences(prefs); err != nil {
		return "", err
	}
	return assets.RenderRationale(assets.RationaleData{
		Sentiments: quiz.Sentiments(prefs.QuizAnswers),
		StyleName:  prefs.Style.Name,
		Gender:     string(prefs.Gender),
	})
}
