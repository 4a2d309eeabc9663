package wizard

import "fmt"

// Step is a screen of the wizard.
type Step int

const (
	StepLanding Step = iota
	StepGenderSelection
	StepStyleSelection
	StepPsychQuiz
	StepGenerating
	StepResult
	StepHistory
)

var stepNames = [...]string{
	StepLanding:         "landing",
	StepGenderSelection: "gender_selection",
	StepStyleSelection:  "style_selection",
	StepPsychQuiz:       "psych_quiz",
	StepGenerating:      "generating",
	StepResult:          "result",
	StepHistory:         "history",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for i, name := range stepNames {
		if name == string(text) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", text)
}
