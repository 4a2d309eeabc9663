// Package wizard drives one user through gender, style and quiz selection
// into generation and on to the result studio.
//
// Generation starts when the last quiz answer is recorded and runs in the
// background. Its result is applied only if the session has not been
// restarted or closed in the meantime.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/quiz"
	"github.com/fpang/noksha/internal/studio"
	"github.com/fpang/noksha/internal/task"
)

// GenerationFailureMessage is shown when generation fails. Restart retries.
const GenerationFailureMessage = "We encountered a hiccup while stitching your digital design. Please try again."

var (
	ErrWrongStep          = errors.New("action not allowed at this step")
	ErrInvalidGender      = errors.New("invalid gender")
	ErrUnknownStyle       = errors.New("unknown style")
	ErrInvalidInspiration = errors.New("invalid inspiration image")
	ErrClosed             = errors.New("session closed")
)

// Session is one pass through the wizard. Safe for concurrent use.
type Session struct {
	id         string
	provider   chat.Provider
	history    *history.History
	questions  []catalog.QuizQuestion
	studioOpts []studio.Option
	createdAt  time.Time
	ctx        context.Context
	cancel     context.CancelFunc

	mu        sync.Mutex
	step      Step
	back      Step
	prefs     design.Preferences
	quiz      *quiz.Engine
	gen       task.Slot
	genDone   chan struct{}
	failure   error
	studio    *studio.Studio
	touchedAt time.Time
	closed    bool
}

// Option configures a Session.
type Option func(*Session)

// WithHistory lets the result studio save and the history step list.
func WithHistory(h *history.History) Option {
	return func(s *Session) { s.history = h }
}

// WithQuestions replaces the personality quiz.
func WithQuestions(q ...catalog.QuizQuestion) Option {
	return func(s *Session) { s.questions = q }
}

// WithStudioOptions passes options to every studio the session creates.
func WithStudioOptions(opts ...studio.Option) Option {
	return func(s *Session) { s.studioOpts = append(s.studioOpts, opts...) }
}

// New starts a session on the landing step.
func New(provider chat.Provider, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		id:        uuid.NewString(),
		provider:  provider,
		createdAt: now,
		touchedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// CreatedAt returns when the session started.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive returns when the session last changed.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// Preferences returns a copy of the collected preferences.
func (s *Session) Preferences() design.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.prefs
	if p.Style != nil {
		st := *p.Style
		p.Style = &st
	}
	if p.QuizAnswers != nil {
		answers := make(map[int]string, len(p.QuizAnswers))
		for k, v := range p.QuizAnswers {
			answers[k] = v
		}
		p.QuizAnswers = answers
	}
	return p
}

// expect checks the step under s.mu.
func (s *Session) expect(steps ...Step) error {
	if s.closed {
		return ErrClosed
	}
	for _, st := range steps {
		if s.step == st {
			return nil
		}
	}
	return fmt.Errorf("%w: at %s", ErrWrongStep, s.step)
}

func (s *Session) moveTo(step Step) {
	log.Debug().Str("session", s.id).Stringer("from", s.step).Stringer("to", step).Msg("Wizard step")
	s.step = step
	s.touchedAt = time.Now()
}

// Start leaves the landing page.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepLanding); err != nil {
		return err
	}
	s.moveTo(StepGenderSelection)
	return nil
}

// SelectGender records g and shows the styles for it.
func (s *Session) SelectGender(g design.Gender) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGender, g)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepGenderSelection); err != nil {
		return err
	}
	s.prefs.Gender = g
	s.prefs.Style = nil
	s.moveTo(StepStyleSelection)
	return nil
}

// BackToGender returns to gender selection and clears the gender.
func (s *Session) BackToGender() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepStyleSelection); err != nil {
		return err
	}
	s.prefs.Gender = ""
	s.moveTo(StepGenderSelection)
	return nil
}

// Styles returns the styles offered for the selected gender.
func (s *Session) Styles() []design.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.StylesFor(s.prefs.Gender)
}

// SelectStyle records the style and starts the quiz. The style must be
// offered for the selected gender.
func (s *Session) SelectStyle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepStyleSelection); err != nil {
		return err
	}
	style, ok := catalog.FindStyle(id)
	if !ok || style.Gender != s.prefs.Gender {
		return fmt.Errorf("%w: %q for %s", ErrUnknownStyle, id, s.prefs.Gender)
	}
	s.prefs.Style = &style
	s.prefs.QuizAnswers = nil
	s.quiz = quiz.New(s.questions...)
	s.moveTo(StepPsychQuiz)
	return nil
}

// SetInspiration attaches a reference image to the generation request, or
// removes it when img is nil. Only allowed before generation starts.
func (s *Session) SetInspiration(img *design.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepGenderSelection, StepStyleSelection, StepPsychQuiz); err != nil {
		return err
	}
	if img == nil || img.IsZero() {
		s.prefs.Inspiration = nil
		return nil
	}
	if !imageutil.IsSupported(img.MIMEType) {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidInspiration, img.MIMEType)
	}
	data, err := imageutil.SanitizeInspiration(img.Data, img.MIMEType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInspiration, err)
	}
	s.prefs.Inspiration = &design.Image{Data: data, MIMEType: img.MIMEType}
	return nil
}

// Question returns the current quiz question with its 1-based position.
func (s *Session) Question() (q catalog.QuizQuestion, index, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepPsychQuiz || s.quiz == nil {
		return catalog.QuizQuestion{}, 0, 0, false
	}
	q, ok = s.quiz.Current()
	index, total = s.quiz.Position()
	return q, index, total, ok
}

// QuizProgress returns the fraction of questions answered.
func (s *Session) QuizProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return 0
	}
	return s.quiz.Progress()
}

// Answer records an option of the current question. The final answer
// moves to the generating step and starts generation in the background.
func (s *Session) Answer(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepPsychQuiz); err != nil {
		return err
	}
	done, err := s.quiz.Answer(optionIndex)
	if err != nil {
		return err
	}
	s.touchedAt = time.Now()
	if !done {
		return nil
	}
	s.prefs.QuizAnswers = s.quiz.Answers()
	s.moveTo(StepGenerating)
	return s.startGeneration()
}

// startGeneration runs with s.mu held.
func (s *Session) startGeneration() error {
	prefs := s.prefs
	s.failure = nil
	finished := make(chan struct{})
	s.genDone = finished

	log.Info().
		Str("session", s.id).
		Str("style", prefs.Style.Name).
		Str("gender", string(prefs.Gender)).
		Str("sentiments", quiz.Sentiments(prefs.QuizAnswers)).
		Msg("Starting generation")
	start := time.Now()

	_, err := task.Go(&s.gen, s.ctx,
		func(ctx context.Context) (*design.Design, error) {
			return s.provider.Generate(ctx, prefs)
		},
		func(t *task.Ticket, d *design.Design, err error) {
			defer close(finished)
			s.finishGeneration(t, prefs, d, err, time.Since(start))
		})
	if err != nil {
		// The slot is only held by a generation that Restart has not yet
		// cancelled, which cannot happen on the quiz step.
		return fmt.Errorf("failed to start generation: %w", err)
	}
	return nil
}

func (s *Session) finishGeneration(t *task.Ticket, prefs design.Preferences, d *design.Design, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.Finish() || s.closed {
		log.Info().Str("session", s.id).Dur("duration", elapsed).Msg("Session moved on, discarding generation result")
		return
	}
	if err == nil && (d == nil || d.Image.IsZero()) {
		err = design.NewError(design.KindGeneration, "provider returned no design", nil)
	}
	if err != nil {
		if !design.IsKind(err, design.KindGeneration) && !design.IsKind(err, design.KindMissingSelection) {
			err = design.NewError(design.KindGeneration, "failed to generate design", err)
		}
		s.failure = err
		s.touchedAt = time.Now()
		log.Error().Err(err).Str("session", s.id).Dur("duration", elapsed).Msg("Generation failed")
		return
	}

	opts := append([]studio.Option{studio.WithStyle(prefs.Style.Name, prefs.Gender)}, s.studioOpts...)
	if s.history != nil {
		opts = append(opts, studio.WithHistory(s.history))
	}
	s.studio = studio.New(*d, s.provider, opts...)
	s.moveTo(StepResult)
	log.Info().Str("session", s.id).Dur("duration", elapsed).Msg("Generation complete")
}

// Wait blocks until the running generation, if any, has finished.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	finished := s.genDone
	s.mu.Unlock()
	if finished == nil {
		return nil
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generating reports whether a generation is in flight.
func (s *Session) Generating() bool {
	return s.gen.Busy()
}

// Failure returns the last generation error, or nil.
func (s *Session) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Studio returns the result studio, or nil before a successful generation.
func (s *Session) Studio() *studio.Studio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studio
}

// Traits returns the matched trait keywords shown with the result.
func (s *Session) Traits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return quiz.Traits(s.prefs.QuizAnswers)
}

// ShowHistory opens the history view. CloseHistory returns to the step it
// was opened from.
func (s *Session) ShowHistory() ([]design.SavedDesign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepLanding, StepGenderSelection, StepResult); err != nil {
		return nil, err
	}
	s.back = s.step
	s.moveTo(StepHistory)
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(), nil
}

// CloseHistory leaves the history view.
func (s *Session) CloseHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(StepHistory); err != nil {
		return err
	}
	s.moveTo(s.back)
	return nil
}

// Restart discards everything and returns to the landing page. A running
// generation is cancelled and its result ignored.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.reset()
	s.moveTo(StepLanding)
	log.Info().Str("session", s.id).Msg("Session restarted")
	return nil
}

func (s *Session) reset() {
	s.gen.Cancel()
	s.genDone = nil
	if s.studio != nil {
		s.studio.Close()
		s.studio = nil
	}
	s.prefs = design.Preferences{}
	s.quiz = nil
	s.failure = nil
}

// Close ends the session. Late results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.reset()
	s.closed = true
	s.cancel()
}
