package wizard

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/chat/chattest"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/store"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// completeQuiz drives a fresh session up to the final answer.
func completeQuiz(t *testing.T, s *Session) {
	t.Helper()
	steps := []func() error{
		s.Start,
		func() error { return s.SelectGender(design.GenderFemale) },
		func() error { return s.SelectStyle("jamdani-fusion") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	for range catalog.PsychQuestions {
		if err := s.Answer(1); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHappyPath(t *testing.T) {
	provider := &chattest.Provider{}
	s := New(provider)
	defer s.Close()

	if s.Step() != StepLanding {
		t.Fatalf("Step() = %v, want landing", s.Step())
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectGender(design.GenderFemale); err != nil {
		t.Fatal(err)
	}
	for _, st := range s.Styles() {
		if st.Gender != design.GenderFemale {
			t.Errorf("Styles() offered %q for Female", st.ID)
		}
	}
	if err := s.SelectStyle("jamdani-fusion"); err != nil {
		t.Fatal(err)
	}

	q, index, total, ok := s.Question()
	if !ok || index != 1 || total != len(catalog.PsychQuestions) || q.ID != catalog.PsychQuestions[0].ID {
		t.Fatalf("Question() = %v, %d/%d, %v", q.ID, index, total, ok)
	}
	for i := range catalog.PsychQuestions {
		if s.Step() != StepPsychQuiz {
			t.Fatalf("step before answer %d = %v", i, s.Step())
		}
		if err := s.Answer(0); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if s.Step() != StepResult {
		t.Fatalf("Step() = %v, want result (failure %v)", s.Step(), s.Failure())
	}
	st := s.Studio()
	if st == nil {
		t.Fatal("Studio() = nil on result step")
	}
	if st.StyleName() != "Jamdani Fusion" {
		t.Errorf("studio style = %q", st.StyleName())
	}

	gens := provider.Generations()
	if len(gens) != 1 {
		t.Fatalf("provider called %d times, want 1", len(gens))
	}
	wantAnswers := map[int]string{}
	for _, q := range catalog.PsychQuestions {
		wantAnswers[q.ID] = q.Options[0].Sentiment
	}
	if diff := cmp.Diff(wantAnswers, gens[0].QuizAnswers); diff != "" {
		t.Errorf("quiz answers mismatch (-want +got):\n%s", diff)
	}
	if len(s.Traits()) != len(catalog.PsychQuestions) {
		t.Errorf("Traits() = %v", s.Traits())
	}
}

func TestWrongStep(t *testing.T) {
	s := New(&chattest.Provider{})
	defer s.Close()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"gender before start", func() error { return s.SelectGender(design.GenderMale) }},
		{"style before start", func() error { return s.SelectStyle("classic-panjabi") }},
		{"answer before start", func() error { return s.Answer(0) }},
		{"back before start", s.BackToGender},
		{"close history not open", s.CloseHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrWrongStep) {
				t.Errorf("error = %v, want ErrWrongStep", err)
			}
		})
	}
}

func TestSelectGenderAndStyleValidation(t *testing.T) {
	s := New(&chattest.Provider{})
	defer s.Close()
	s.Start()

	if err := s.SelectGender("Other"); !errors.Is(err, ErrInvalidGender) {
		t.Errorf("SelectGender(Other) error = %v", err)
	}
	if err := s.SelectGender(design.GenderMale); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectStyle("jamdani-fusion"); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("SelectStyle(female style for Male) error = %v", err)
	}
	if err := s.SelectStyle("no-such-style"); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("SelectStyle(unknown) error = %v", err)
	}
}

func TestBackToGenderClearsGender(t *testing.T) {
	s := New(&chattest.Provider{})
	defer s.Close()
	s.Start()
	s.SelectGender(design.GenderMale)

	if err := s.BackToGender(); err != nil {
		t.Fatal(err)
	}
	if s.Step() != StepGenderSelection {
		t.Errorf("Step() = %v", s.Step())
	}
	if g := s.Preferences().Gender; g != "" {
		t.Errorf("gender = %q after back, want empty", g)
	}
}

func TestGenerationFailure(t *testing.T) {
	provider := &chattest.Provider{
		GenerateFunc: func(context.Context, design.Preferences) (*design.Design, error) {
			return nil, errors.New("model overloaded")
		},
	}
	s := New(provider)
	defer s.Close()
	completeQuiz(t, s)
	s.Wait(waitCtx(t))

	if s.Step() != StepGenerating {
		t.Errorf("Step() = %v, want generating", s.Step())
	}
	if !design.IsKind(s.Failure(), design.KindGeneration) {
		t.Errorf("Failure() = %v, want generation failure", s.Failure())
	}
	if s.Studio() != nil {
		t.Error("Studio() != nil after failure")
	}

	if err := s.Restart(); err != nil {
		t.Fatal(err)
	}
	if s.Step() != StepLanding || s.Failure() != nil {
		t.Errorf("after Restart: step %v, failure %v", s.Step(), s.Failure())
	}
}

func TestRestartDiscardsInFlightGeneration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &chattest.Provider{
		GenerateFunc: func(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
			close(started)
			<-release
			return &design.Design{Image: design.Image{Data: chattest.PNG1x1, MIMEType: "image/png"}}, nil
		},
	}
	s := New(provider)
	defer s.Close()
	completeQuiz(t, s)
	<-started

	if !s.Generating() {
		t.Error("Generating() = false during generation")
	}
	s.Restart()
	close(release)

	// Let the provider goroutine deliver its result.
	deadline := time.Now().Add(5 * time.Second)
	for s.Generating() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	if s.Step() != StepLanding {
		t.Errorf("Step() = %v, want landing", s.Step())
	}
	if s.Studio() != nil {
		t.Error("stale generation produced a studio")
	}
}

func TestInspirationIsForwarded(t *testing.T) {
	provider := &chattest.Provider{}
	s := New(provider)
	defer s.Close()
	s.Start()
	s.SelectGender(design.GenderFemale)

	if err := s.SetInspiration(&design.Image{Data: []byte("x"), MIMEType: "application/pdf"}); err == nil {
		t.Error("SetInspiration(pdf) succeeded")
	}
	img := design.Image{Data: chattest.PNG1x1, MIMEType: "image/png"}
	if err := s.SetInspiration(&img); err != nil {
		t.Fatal(err)
	}
	s.SelectStyle("karchupi-glam")
	for range catalog.PsychQuestions {
		s.Answer(2)
	}
	s.Wait(waitCtx(t))

	gens := provider.Generations()
	if len(gens) != 1 || gens[0].Inspiration == nil || !gens[0].Inspiration.Equal(img) {
		t.Errorf("inspiration not forwarded: %+v", gens)
	}
	if err := s.SetInspiration(nil); !errors.Is(err, ErrWrongStep) {
		t.Errorf("SetInspiration on result step error = %v", err)
	}
}

func TestInspirationGPSIsStripped(t *testing.T) {
	provider := &chattest.Provider{}
	s := New(provider)
	defer s.Close()
	s.Start()
	s.SelectGender(design.GenderFemale)

	tagged := chattest.JPEGWithGPS()
	if err := s.SetInspiration(&design.Image{Data: tagged, MIMEType: "image/jpeg"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetInspiration(&design.Image{Data: []byte("not a jpeg"), MIMEType: "image/jpeg"}); !errors.Is(err, ErrInvalidInspiration) {
		t.Errorf("SetInspiration(malformed JPEG) error = %v", err)
	}
	s.SelectStyle("karchupi-glam")
	for range catalog.PsychQuestions {
		s.Answer(2)
	}
	s.Wait(waitCtx(t))

	gens := provider.Generations()
	if len(gens) != 1 || gens[0].Inspiration == nil {
		t.Fatalf("inspiration not forwarded: %+v", gens)
	}
	sent := gens[0].Inspiration
	if sent.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", sent.MIMEType)
	}
	if bytes.Contains(sent.Data, []byte("Exif\x00\x00")) {
		t.Error("EXIF with GPS reached the provider")
	}
	if len(sent.Data) >= len(tagged) {
		t.Errorf("forwarded %d bytes, want fewer than %d", len(sent.Data), len(tagged))
	}
}

func TestHistoryStep(t *testing.T) {
	h := history.New(store.NewMemoryStore())
	h.Load(context.Background())
	s := New(&chattest.Provider{}, WithHistory(h))
	defer s.Close()
	completeQuiz(t, s)
	s.Wait(waitCtx(t))

	if _, _, err := s.Studio().Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ShowHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].StyleName != "Jamdani Fusion" {
		t.Errorf("ShowHistory() = %+v", entries)
	}
	if err := s.CloseHistory(); err != nil {
		t.Fatal(err)
	}
	if s.Step() != StepResult {
		t.Errorf("Step() = %v, want result", s.Step())
	}
}

func TestClose(t *testing.T) {
	s := New(&chattest.Provider{})
	s.Close()
	if err := s.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v", err)
	}
	if err := s.Restart(); !errors.Is(err, ErrClosed) {
		t.Errorf("Restart() after Close error = %v", err)
	}
}

func TestStepString(t *testing.T) {
	if got := StepPsychQuiz.String(); got != "psych_quiz" {
		t.Errorf("String() = %q", got)
	}
	if got := Step(42).String(); got != "step(42)" {
		t.Errorf("String() = %q", got)
	}
}
