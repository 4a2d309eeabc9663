package studio

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/chat/chattest"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/mask"
	"github.com/fpang/noksha/internal/overlay"
	"github.com/fpang/noksha/internal/share"
	"github.com/fpang/noksha/internal/store"
)

var (
	originalPNG = chattest.PNG(500, 600, color.NRGBA{R: 240, G: 230, B: 220, A: 255})
	editedPNG   = chattest.PNG(500, 600, color.NRGBA{R: 5, G: 150, B: 105, A: 255})
)

func testDesign() design.Design {
	return design.Design{
		Image:           design.Image{Data: originalPNG, MIMEType: "image/png"},
		DescriptiveText: "A modern take on the heritage Jamdani weave.",
		RationaleText:   "Calm and luxurious. Made for you.",
	}
}

func recolorTo(img []byte) func(context.Context, *chat.EditRequest) (design.Image, error) {
	return func(context.Context, *chat.EditRequest) (design.Image, error) {
		return design.Image{Data: img, MIMEType: "image/png"}, nil
	}
}

// drawLeftHalfStroke draws one 50-point path inside the left half of a
// 500x600 overlay.
func drawLeftHalfStroke(s *Studio) {
	s.PointerDown(50, 50)
	for i := 1; i < 50; i++ {
		s.PointerMove(50+float64(i)*3, 50+float64(i)*10)
	}
	s.PointerUp()
}

func decodeSize(t *testing.T, img design.Image) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("mask is not a PNG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestApplyEmeraldScenario(t *testing.T) {
	provider := &chattest.Provider{RecolorFunc: recolorTo(editedPNG)}
	before := testDesign()
	s := New(before, provider)
	defer s.Close()

	if err := s.EnterEdit(500, 600); err != nil {
		t.Fatal(err)
	}
	drawLeftHalfStroke(s)
	if _, err := s.SelectColor("Emerald"); err != nil {
		t.Fatal(err)
	}
	if !s.CanApply() {
		t.Fatal("CanApply() = false with stroke and color")
	}

	after, err := s.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if after.Image.Equal(before.Image) {
		t.Error("image was not replaced")
	}
	if after.DescriptiveText != before.DescriptiveText || after.RationaleText != before.RationaleText {
		t.Errorf("text fields changed: %+v", after)
	}
	if s.Editing() {
		t.Error("still in edit mode after apply")
	}
	if s.SelectedColor() != nil {
		t.Error("selected color not reset")
	}
	if !s.Design().Image.Equal(after.Image) {
		t.Error("Design() does not return the spliced design")
	}

	edits := provider.Edits()
	if len(edits) != 1 {
		t.Fatalf("provider received %d edits, want 1", len(edits))
	}
	req := edits[0]
	if req.ColorName != "Emerald Green" {
		t.Errorf("ColorName = %q, want Emerald Green", req.ColorName)
	}
	if !strings.Contains(req.Instruction, "Emerald Green") {
		t.Errorf("instruction does not name the color:\n%s", req.Instruction)
	}
	if !req.Original.Equal(before.Image) {
		t.Error("request did not carry the original image")
	}
	if w, h := decodeSize(t, req.Mask); w != 500 || h != 600 {
		t.Errorf("mask size = %dx%d, want 500x600", w, h)
	}
}

func TestApplyFailureLeavesDesignUntouched(t *testing.T) {
	provider := &chattest.Provider{
		RecolorFunc: func(context.Context, *chat.EditRequest) (design.Image, error) {
			return design.Image{}, errors.New("quota exceeded")
		},
	}
	before := testDesign()
	s := New(before, provider)
	defer s.Close()
	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Gold")

	_, err := s.Apply(context.Background())
	if !design.IsKind(err, design.KindEdit) {
		t.Fatalf("Apply() error = %v, want edit failure", err)
	}
	if diff := cmp.Diff(before, s.Design()); diff != "" {
		t.Errorf("design changed after failed edit (-want +got):\n%s", diff)
	}
	if !s.Editing() {
		t.Error("failed edit left edit mode")
	}
	if s.SelectedColor() == nil {
		t.Error("failed edit reset the color")
	}
	if s.Processing() {
		t.Error("Processing() = true after failure")
	}
}

func TestApplyEmptyImageIsFailure(t *testing.T) {
	provider := &chattest.Provider{RecolorFunc: recolorTo(nil)}
	s := New(testDesign(), provider)
	defer s.Close()
	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Red")

	if _, err := s.Apply(context.Background()); !design.IsKind(err, design.KindEdit) {
		t.Errorf("Apply() error = %v, want edit failure", err)
	}
}

func TestApplyPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Studio)
		wantErr func(error) bool
	}{
		{
			name:    "not editing",
			setup:   func(*Studio) {},
			wantErr: func(err error) bool { return errors.Is(err, ErrNotEditing) },
		},
		{
			name: "empty mask",
			setup: func(s *Studio) {
				s.EnterEdit(500, 600)
				s.SelectColor("Maroon")
			},
			wantErr: func(err error) bool { return design.IsKind(err, design.KindEmptyMask) },
		},
		{
			name: "cleared strokes",
			setup: func(s *Studio) {
				s.EnterEdit(500, 600)
				drawLeftHalfStroke(s)
				s.ClearStrokes()
				s.SelectColor("Maroon")
			},
			wantErr: func(err error) bool { return design.IsKind(err, design.KindEmptyMask) },
		},
		{
			name: "no color",
			setup: func(s *Studio) {
				s.EnterEdit(500, 600)
				drawLeftHalfStroke(s)
			},
			wantErr: func(err error) bool { return design.IsKind(err, design.KindMissingSelection) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &chattest.Provider{}
			s := New(testDesign(), provider)
			defer s.Close()
			tt.setup(s)

			if s.CanApply() {
				t.Error("CanApply() = true")
			}
			_, err := s.Apply(context.Background())
			if !tt.wantErr(err) {
				t.Errorf("Apply() error = %v", err)
			}
			if n := len(provider.Edits()); n != 0 {
				t.Errorf("provider called %d times, want 0", n)
			}
		})
	}
}

func TestApplyRejectsConcurrentRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &chattest.Provider{
		RecolorFunc: func(context.Context, *chat.EditRequest) (design.Image, error) {
			close(started)
			<-release
			return design.Image{Data: editedPNG, MIMEType: "image/png"}, nil
		},
	}
	s := New(testDesign(), provider)
	defer s.Close()
	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Emerald")

	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background())
		done <- err
	}()
	<-started

	if !s.Processing() {
		t.Error("Processing() = false during request")
	}
	if s.CanApply() {
		t.Error("CanApply() = true during request")
	}
	if _, err := s.Apply(context.Background()); !errors.Is(err, ErrEditInFlight) {
		t.Errorf("second Apply() error = %v, want ErrEditInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if n := len(provider.Edits()); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
}

func TestCloseDiscardsLateResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &chattest.Provider{
		RecolorFunc: func(ctx context.Context, _ *chat.EditRequest) (design.Image, error) {
			close(started)
			<-release
			return design.Image{Data: editedPNG, MIMEType: "image/png"}, nil
		},
	}
	before := testDesign()
	s := New(before, provider)
	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Emerald")

	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background())
		done <- err
	}()
	<-started
	s.Close()
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrDiscarded) {
			t.Errorf("Apply() error = %v, want ErrDiscarded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Apply did not return")
	}
	if !s.Design().Image.Equal(before.Image) {
		t.Error("late result was applied after Close")
	}
	if _, err := s.Apply(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Apply() after Close error = %v, want ErrClosed", err)
	}
}

func TestMaskResampledToOriginalSize(t *testing.T) {
	provider := &chattest.Provider{RecolorFunc: recolorTo(editedPNG)}
	d := testDesign()
	d.Image = design.Image{Data: chattest.PNG(1000, 1200, color.White), MIMEType: "image/png"}
	s := New(d, provider)
	defer s.Close()

	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Lavender")
	if _, err := s.Apply(context.Background()); err != nil {
		t.Fatal(err)
	}

	if w, h := decodeSize(t, provider.Edits()[0].Mask); w != 1000 || h != 1200 {
		t.Errorf("mask size = %dx%d, want 1000x1200", w, h)
	}
}

func TestBuildEditRequest(t *testing.T) {
	d := testDesign()
	emerald := design.ColorChoice{Label: "Emerald", Name: "Emerald Green"}

	surface := overlay.NewSurface(500, 600)
	defer surface.Close()
	surface.Replay([]overlay.Path{{{X: 10, Y: 10}, {X: 100, Y: 100}}})
	drawn := mask.Rasterize(surface.Image())
	blank := mask.Rasterize(overlay.NewSurface(500, 600).Image())

	tests := []struct {
		name  string
		d     *design.Design
		m     *mask.Mask
		color *design.ColorChoice
		kind  design.ErrorKind
	}{
		{"no design", nil, drawn, &emerald, design.KindMissingSelection},
		{"no color", &d, drawn, nil, design.KindMissingSelection},
		{"nil mask", &d, nil, &emerald, design.KindEmptyMask},
		{"blank mask", &d, blank, &emerald, design.KindEmptyMask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildEditRequest(tt.d, tt.m, tt.color)
			if !design.IsKind(err, tt.kind) {
				t.Errorf("BuildEditRequest() error = %v, want %v", err, tt.kind)
			}
		})
	}

	req, err := BuildEditRequest(&d, drawn, &emerald)
	if err != nil {
		t.Fatalf("BuildEditRequest() error = %v", err)
	}
	if req.Mask.MIMEType != "image/png" {
		t.Errorf("mask MIME = %q", req.Mask.MIMEType)
	}
}

func newHistory(t *testing.T) *history.History {
	t.Helper()
	h := history.New(store.NewMemoryStore())
	h.Load(context.Background())
	return h
}

func TestSaveTwiceIsNoop(t *testing.T) {
	h := newHistory(t)
	s := New(testDesign(), &chattest.Provider{}, WithHistory(h), WithStyle("Jamdani Fusion", design.GenderFemale))
	defer s.Close()

	first, created, err := s.Save(context.Background())
	if err != nil || !created {
		t.Fatalf("Save() = %v, %v", created, err)
	}
	second, created, err := s.Save(context.Background())
	if err != nil || created {
		t.Fatalf("second Save() = %v, %v", created, err)
	}
	if first.ID != second.ID {
		t.Errorf("second save returned %q, want %q", second.ID, first.ID)
	}
	if h.Len() != 1 {
		t.Errorf("history has %d entries, want 1", h.Len())
	}
	if first.StyleName != "Jamdani Fusion" || first.Gender != design.GenderFemale {
		t.Errorf("category fields = %q/%q", first.StyleName, first.Gender)
	}
}

func TestSaveAfterEditIsAllowedAgain(t *testing.T) {
	h := newHistory(t)
	s := New(testDesign(), &chattest.Provider{RecolorFunc: recolorTo(editedPNG)}, WithHistory(h))
	defer s.Close()

	if _, _, err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.EnterEdit(500, 600)
	drawLeftHalfStroke(s)
	s.SelectColor("Emerald")
	if _, err := s.Apply(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Saved() {
		t.Error("Saved() = true after edit")
	}

	saved, created, err := s.Save(context.Background())
	if err != nil || !created {
		t.Fatalf("Save() after edit = %v, %v", created, err)
	}
	if !saved.Image.Equal(s.Design().Image) {
		t.Error("saved entry does not hold the edited image")
	}
	if h.Len() != 2 {
		t.Errorf("history has %d entries, want 2", h.Len())
	}
}

func TestSaveWithoutHistory(t *testing.T) {
	s := New(testDesign(), &chattest.Provider{})
	if _, _, err := s.Save(context.Background()); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Save() error = %v, want ErrNoHistory", err)
	}
}

func TestShare(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		s := New(testDesign(), &chattest.Provider{})
		res, err := s.Share(context.Background())
		if err != nil {
			t.Fatalf("Share() error = %v", err)
		}
		if res.Shared || res.Notice != UnsupportedShareNotice {
			t.Errorf("Share() = %+v, want inline notice", res)
		}
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		s := New(testDesign(), &chattest.Provider{},
			WithSharer(share.DirSharer{Dir: dir}),
			WithStyle("Rajshahi Silk", design.GenderFemale))
		res, err := s.Share(context.Background())
		if err != nil {
			t.Fatalf("Share() error = %v", err)
		}
		if !res.Shared {
			t.Errorf("Share() = %+v", res)
		}
		data, err := os.ReadFile(filepath.Join(dir, res.FileName))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, originalPNG) {
			t.Error("shared file differs from design image")
		}
		caption, _ := os.ReadFile(filepath.Join(dir, strings.TrimSuffix(res.FileName, ".png")+".txt"))
		if !strings.Contains(string(caption), "Rajshahi Silk") {
			t.Errorf("caption = %q", caption)
		}
	})
}

func TestSelectColor(t *testing.T) {
	s := New(testDesign(), &chattest.Provider{})
	defer s.Close()
	if _, err := s.SelectColor("Emerald"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SelectColor() outside edit mode error = %v", err)
	}
	s.EnterEdit(10, 10)
	if _, err := s.SelectColor("Chartreuse"); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("SelectColor(unknown) error = %v", err)
	}
	c, err := s.SelectColor("emerald")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Emerald Green" {
		t.Errorf("SelectColor() = %+v", c)
	}
	s.CancelEdit()
	if s.SelectedColor() != nil || s.Editing() {
		t.Error("CancelEdit did not reset edit state")
	}
}

func TestPointerEventsOutsideEditModeAreIgnored(t *testing.T) {
	s := New(testDesign(), &chattest.Provider{})
	defer s.Close()
	drawLeftHalfStroke(s)
	if _, err := s.MaskPreview(); !errors.Is(err, ErrNotEditing) {
		t.Errorf("MaskPreview() error = %v", err)
	}
	if err := s.ReplayStrokes([]overlay.Path{{{X: 1, Y: 1}}}); !errors.Is(err, ErrNotEditing) {
		t.Errorf("ReplayStrokes() error = %v", err)
	}

	s.EnterEdit(500, 600)
	if m, _ := s.MaskPreview(); !m.Empty() {
		t.Error("new overlay is not empty")
	}
	drawLeftHalfStroke(s)
	if got := len(s.Strokes()); got != 1 {
		t.Errorf("Strokes() = %d paths, want 1", got)
	}
}
