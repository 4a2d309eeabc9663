// Package design holds the data model shared by the wizard, the studio, the
// provider clients and the history store.
//
// A Design is produced once by the generator and then replaced (never mutated)
// by successive color edits. A SavedDesign is an independent copy written to
// history with identity and category fields added.
package design

// Gender selects the garment family offered to the user.
type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool {
	return g == GenderFemale || g == GenderMale
}

// Category groups preset styles in the gallery.
type Category string

const (
	CategoryModern      Category = "Modern"
	CategoryTraditional Category = "Traditional"
	CategoryFusion      Category = "Fusion"
)

// Style is a base aesthetic the user picks before the quiz.
type Style struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	ImageURL    string   `json:"imageUrl" yaml:"imageUrl"`
	Category    Category `json:"category" yaml:"category"`
	Gender      Gender   `json:"gender" yaml:"gender"`
}

// ColorChoice is an entry of the recolor palette. Only Name is sent to the
// provider; Swatch is for display.
type ColorChoice struct {
	Label  string `json:"label"`
	Name   string `json:"name"`
	Swatch string `json:"swatch"`
}

// Preferences is everything the wizard collects before generation.
type Preferences struct {
	Gender      Gender         `json:"gender,omitempty"`
	Style       *Style         `json:"style,omitempty"`
	QuizAnswers map[int]string `json:"quizAnswers,omitempty"` // question id -> sentiment
	Inspiration *Image         `json:"-"`
}

// Design is the current generated garment image plus its narrative.
type Design struct {
	Image           Image  `json:"image"`
	DescriptiveText string `json:"description"`
	RationaleText   string `json:"sentimentAnalysis"`
}

// WithImage returns a copy of d carrying img. The text fields are untouched.
func (d Design) WithImage(img Image) Design {
	d.Image = img
	return d
}

// SavedDesign is a Design copied into history.
type SavedDesign struct {
	Design
	ID        string `json:"id"`
	CreatedAt int64  `json:"timestamp"` // unix millis
	StyleName string `json:"styleName"`
	Gender    Gender `json:"gender"`
}
