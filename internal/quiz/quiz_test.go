package quiz

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/noksha/internal/catalog"
)

func TestEngineWalksAllQuestions(t *testing.T) {
	e := New()
	total := len(catalog.PsychQuestions)

	for i := 0; i < total; i++ {
		q, ok := e.Current()
		if !ok {
			t.Fatalf("Current() not ok at step %d", i)
		}
		if q.ID != catalog.PsychQuestions[i].ID {
			t.Errorf("step %d: question ID = %d, want %d", i, q.ID, catalog.PsychQuestions[i].ID)
		}
		if pos, n := e.Position(); pos != i+1 || n != total {
			t.Errorf("Position() = %d/%d, want %d/%d", pos, n, i+1, total)
		}
		done, err := e.Answer(1)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if done != (i == total-1) {
			t.Errorf("step %d: done = %v", i, done)
		}
	}

	if !e.Done() || e.Progress() != 1 {
		t.Errorf("Done() = %v, Progress() = %v", e.Done(), e.Progress())
	}
	if _, err := e.Answer(0); !errors.Is(err, ErrDone) {
		t.Errorf("Answer() after completion error = %v, want ErrDone", err)
	}
}

func TestAnswerRejectsOutOfRange(t *testing.T) {
	e := New()
	for _, idx := range []int{-1, 4, 99} {
		if _, err := e.Answer(idx); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("Answer(%d) error = %v, want ErrInvalidOption", idx, err)
		}
	}
	if e.Progress() != 0 {
		t.Errorf("Progress() = %v after rejected answers, want 0", e.Progress())
	}
}

func TestSentimentsOrder(t *testing.T) {
	e := New()
	e.Answer(0)
	e.Answer(3)
	e.Answer(2)

	want := map[int]string{
		1: "introverted, calm, pastel colors, minimalist",
		2: "modern, sharp, structured, bold contrast",
		3: "loose fit, cotton, breathable, simple",
	}
	if diff := cmp.Diff(want, e.Answers()); diff != "" {
		t.Errorf("Answers() mismatch (-want +got):\n%s", diff)
	}

	got := e.Sentiments()
	wantJoined := want[1] + ", " + want[2] + ", " + want[3]
	if got != wantJoined {
		t.Errorf("Sentiments() = %q, want %q", got, wantJoined)
	}
}

func TestSentimentsSortsByID(t *testing.T) {
	got := Sentiments(map[int]string{3: "c", 1: "a", 2: "b"})
	if got != "a, b, c" {
		t.Errorf("Sentiments() = %q, want %q", got, "a, b, c")
	}
	if Sentiments(nil) != "" {
		t.Error("Sentiments(nil) should be empty")
	}
}

func TestTraits(t *testing.T) {
	answers := map[int]string{
		3: "confident, powerful, sharp cuts",
		1: "introverted, calm, pastel colors",
		2: "luxurious",
	}
	want := []string{"introverted", "luxurious", "confident"}
	if diff := cmp.Diff(want, Traits(answers)); diff != "" {
		t.Errorf("Traits() mismatch (-want +got):\n%s", diff)
	}
	if got := Traits(nil); len(got) != 0 {
		t.Errorf("Traits(nil) = %v, want empty", got)
	}
}
