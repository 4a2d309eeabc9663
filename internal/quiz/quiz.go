// Package quiz steps through the personality questions and collects the
// sentiment keywords of the chosen answers.
package quiz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fpang/noksha/internal/catalog"
)

var (
	// ErrDone is returned by Answer once every question has been answered.
	ErrDone = errors.New("quiz already complete")
	// ErrInvalidOption is returned for an option index outside the question.
	ErrInvalidOption = errors.New("invalid option")
)

// Engine tracks progress through a question list. Not safe for concurrent
// use; the owning session serializes access.
type Engine struct {
	questions []catalog.QuizQuestion
	current   int
	answers   map[int]string
}

// New starts a quiz over questions, or over catalog.PsychQuestions when
// none are given.
func New(questions ...catalog.QuizQuestion) *Engine {
	if len(questions) == 0 {
		questions = catalog.PsychQuestions
	}
	return &Engine{questions: questions, answers: make(map[int]string)}
}

// Current returns the question awaiting an answer.
func (e *Engine) Current() (catalog.QuizQuestion, bool) {
	if e.Done() {
		return catalog.QuizQuestion{}, false
	}
	return e.questions[e.current], true
}

// Answer records the sentiment of option optionIndex under the current
// question's id and advances. It reports whether the quiz is now complete.
func (e *Engine) Answer(optionIndex int) (bool, error) {
	q, ok := e.Current()
	if !ok {
		return true, ErrDone
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return false, fmt.Errorf("%w: %d (question %d has %d options)", ErrInvalidOption, optionIndex, q.ID, len(q.Options))
	}
	e.answers[q.ID] = q.Options[optionIndex].Sentiment
	e.current++
	return e.Done(), nil
}

// Done reports whether every question has been answered.
func (e *Engine) Done() bool {
	return e.current >= len(e.questions)
}

// Progress returns the fraction answered, 0 to 1.
func (e *Engine) Progress() float64 {
	if len(e.questions) == 0 {
		return 1
	}
	return float64(e.current) / float64(len(e.questions))
}

// Position returns the 1-based index of the current question and the total.
func (e *Engine) Position() (int, int) {
	return min(e.current+1, len(e.questions)), len(e.questions)
}

// Answers returns a copy of the recorded sentiments keyed by question id.
func (e *Engine) Answers() map[int]string {
	out := make(map[int]string, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

// Sentiments joins the recorded sentiments with ", " in question-id order.
func Sentiments(answers map[int]string) string {
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, answers[id])
	}
	return strings.Join(parts, ", ")
}

// Sentiments is Sentiments(e.Answers()).
func (e *Engine) Sentiments() string {
	return Sentiments(e.answers)
}

// Traits returns the leading keyword of each recorded sentiment in
// question-id order, as shown under the finished design.
func Traits(answers map[int]string) []string {
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	traits := make([]string, 0, len(ids))
	for _, id := range ids {
		first, _, _ := strings.Cut(answers[id], ",")
		traits = append(traits, strings.TrimSpace(first))
	}
	return traits
}
