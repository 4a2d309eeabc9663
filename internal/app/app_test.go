package app

import (
	"context"
	"testing"

	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/chat/chattest"
	"github.com/fpang/noksha/internal/config"
	"github.com/fpang/noksha/internal/share"
	"github.com/fpang/noksha/internal/store"
	"github.com/fpang/noksha/internal/wizard"
)

func TestNewSharer(t *testing.T) {
	tests := []struct {
		cfg  config.ShareConfig
		want share.Sharer
	}{
		{config.ShareConfig{Mode: config.ShareNone}, share.Unsupported{}},
		{config.ShareConfig{}, share.Unsupported{}},
		{config.ShareConfig{Mode: config.ShareDir, Dir: "/tmp/out"}, share.DirSharer{Dir: "/tmp/out"}},
	}
	for _, tt := range tests {
		if got := NewSharer(tt.cfg); got != tt.want {
			t.Errorf("NewSharer(%+v) = %#v, want %#v", tt.cfg, got, tt.want)
		}
	}
	if _, ok := NewSharer(config.ShareConfig{Mode: config.ShareDialog}).(share.DialogSharer); !ok {
		t.Error("dialog mode did not return a DialogSharer")
	}
}

func TestNewProviderImagenFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.RecolorBackend = config.RecolorImagen

	if _, ok := NewProvider(cfg, nil).(*chat.GeminiStudio); !ok {
		t.Error("unconfigured Imagen should fall back to GeminiStudio")
	}

	cfg.Provider.Vertex.Project = "proj"
	cfg.Provider.Vertex.AccessToken = "tok"
	if _, ok := NewProvider(cfg, nil).(*chat.GeminiStudio); ok {
		t.Error("configured Imagen should replace the recolor backend")
	}
}

func TestNewSession(t *testing.T) {
	cfg := config.Default()
	a := NewWithStore(context.Background(), cfg, &chattest.Provider{}, store.NewMemoryStore())
	defer a.Close()

	reg := a.NewRegistry()
	s, err := reg.Create()
	if err != nil {
		t.Fatal(err)
	}
	defer reg.CloseAll()
	if s.Step() != wizard.StepLanding {
		t.Errorf("Step() = %v, want landing", s.Step())
	}
	if a.History.Len() != 0 {
		t.Errorf("History.Len() = %d, want 0", a.History.Len())
	}
}
