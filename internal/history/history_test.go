package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/store"
)

type failingKV struct {
	getErr error
	putErr error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingKV) Put(context.Context, string, []byte) error   { return f.putErr }
func (f failingKV) Close() error                                { return nil }

func sampleDesign(b byte) design.Design {
	return design.Design{
		Image:           design.Image{Data: []byte{b}, MIMEType: "image/png"},
		DescriptiveText: "desc",
		RationaleText:   "why",
	}
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestAppendAndReload(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()

	h := New(kv, WithClock(fixedClock(1000)))
	h.Load(ctx)
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}

	first, err := h.Append(ctx, sampleDesign(1), "Jamdani Fusion", design.GenderFemale)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := h.Append(ctx, sampleDesign(2), "Classic Panjabi", design.GenderMale)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("IDs not unique: %q, %q", first.ID, second.ID)
	}
	if first.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000", first.CreatedAt)
	}

	reloaded := New(kv)
	reloaded.Load(ctx)
	if diff := cmp.Diff([]design.SavedDesign{first, second}, reloaded.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]design.SavedDesign{second, first}, reloaded.Recent()); diff != "" {
		t.Errorf("Recent() mismatch (-want +got):\n%s", diff)
	}

	got, ok := reloaded.Get(second.ID)
	if !ok || got.StyleName != "Classic Panjabi" {
		t.Errorf("Get(%q) = %+v, %v", second.ID, got, ok)
	}
	if _, ok := reloaded.Get("nope"); ok {
		t.Error("Get(nope) found an entry")
	}
}

func TestLoadCorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	if err := kv.Put(ctx, DefaultKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	h := New(kv)
	h.Load(ctx)
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after corrupt blob", h.Len())
	}

	saved, err := h.Append(ctx, sampleDesign(9), "Rajshahi Silk", design.GenderFemale)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	fresh := New(kv)
	fresh.Load(ctx)
	if diff := cmp.Diff([]design.SavedDesign{saved}, fresh.List()); diff != "" {
		t.Errorf("corrupt blob was not overwritten (-want +got):\n%s", diff)
	}
}

func TestLoadReadErrorStartsEmpty(t *testing.T) {
	h := New(failingKV{getErr: errors.New("disk gone")})
	h.Load(context.Background())
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestAppendWriteFailureKeepsMemoryUnchanged(t *testing.T) {
	h := New(failingKV{putErr: errors.New("quota")})
	h.Load(context.Background())

	if _, err := h.Append(context.Background(), sampleDesign(1), "x", design.GenderFemale); err == nil {
		t.Fatal("Append() succeeded, want error")
	}
	if h.Len() != 0 {
		t.Errorf("Len() = %d after failed write, want 0", h.Len())
	}
}

func TestSavedEntryIsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	h := New(store.NewMemoryStore())
	h.Load(ctx)

	d := sampleDesign(1)
	saved, _ := h.Append(ctx, d, "x", design.GenderFemale)

	list := h.List()
	list[0].StyleName = "mutated"
	if got, _ := h.Get(saved.ID); got.StyleName != "x" {
		t.Errorf("List() exposed internal state: StyleName = %q", got.StyleName)
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/png", "noksha-design-abc.png"},
		{"image/jpeg", "noksha-design-abc.jpg"},
		{"image/webp", "noksha-design-abc.webp"},
		{"", "noksha-design-abc.png"},
	}
	for _, tt := range tests {
		saved := design.SavedDesign{ID: "abc", Design: design.Design{Image: design.Image{MIMEType: tt.mimeType}}}
		if got := DownloadName(saved); got != tt.want {
			t.Errorf("DownloadName(%q) = %q, want %q", tt.mimeType, got, tt.want)
		}
	}
}
