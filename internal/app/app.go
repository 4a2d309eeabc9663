// Package app builds the runtime graph shared by every binary: provider,
// history, share backend and the session factory, all from one Config.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/api"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/config"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/overlay"
	"github.com/fpang/noksha/internal/share"
	"github.com/fpang/noksha/internal/store"
	"github.com/fpang/noksha/internal/studio"
	"github.com/fpang/noksha/internal/wizard"
)

// SweepInterval is how often idle sessions are looked for.
const SweepInterval = time.Minute

// App is the wired process state.
type App struct {
	Config   *config.Config
	Provider chat.Provider
	History  *history.History
	Sharer   share.Sharer

	kv store.KV
}

// New opens the history store and builds the provider. models is normally
// client.Models of a genai client. awsCfg may be nil outside Lambda.
func New(ctx context.Context, cfg *config.Config, models chat.ContentGenerator, awsCfg *aws.Config) (*App, error) {
	kv, err := store.Open(ctx, cfg.Storage, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return NewWithStore(ctx, cfg, NewProvider(cfg, models), kv), nil
}

// NewWithStore wires an App around an already open store and provider.
func NewWithStore(ctx context.Context, cfg *config.Config, provider chat.Provider, kv store.KV) *App {
	h := history.New(kv, history.WithKey(cfg.History.Key))
	h.Load(ctx)
	return &App{
		Config:   cfg,
		Provider: provider,
		History:  h,
		Sharer:   NewSharer(cfg.Share),
		kv:       kv,
	}
}

// NewProvider builds the Gemini provider, with Imagen as recolor backend
// when configured. An Imagen backend without credentials falls back to
// Gemini.
func NewProvider(cfg *config.Config, models chat.ContentGenerator) chat.Provider {
	gemini := chat.NewGeminiStudio(models, cfg.Provider.ImageModel, cfg.Provider.TextModel)
	if cfg.Provider.RecolorBackend != config.RecolorImagen {
		return gemini
	}
	v := cfg.Provider.Vertex
	imagen := chat.NewImagenRecolorer(v.Project, v.Region, v.AccessToken)
	if !imagen.IsConfigured() {
		log.Warn().
			Str("project", v.Project).
			Str("region", v.Region).
			Bool("token", v.AccessToken != "").
			Msg("Imagen recolor not configured, using Gemini")
		return gemini
	}
	return chat.Combine(gemini, imagen)
}

// NewSharer maps the share mode to a backend.
func NewSharer(cfg config.ShareConfig) share.Sharer {
	switch cfg.Mode {
	case config.ShareDialog:
		return share.DialogSharer{}
	case config.ShareDir:
		return share.DirSharer{Dir: cfg.Dir}
	default:
		return share.Unsupported{}
	}
}

// StudioOptions are the options every result studio is created with.
func (a *App) StudioOptions() []studio.Option {
	return []studio.Option{
		studio.WithSharer(a.Sharer),
		studio.WithSurfaceOptions(overlay.WithStrokeWidth(a.Config.Overlay.StrokeWidth)),
	}
}

// NewSession starts a wizard session wired to the app.
func (a *App) NewSession() *wizard.Session {
	return wizard.New(a.Provider,
		wizard.WithHistory(a.History),
		wizard.WithStudioOptions(a.StudioOptions()...),
	)
}

// NewRegistry returns a session registry using the server limits.
func (a *App) NewRegistry() *api.Registry {
	return api.NewRegistry(a.NewSession, a.Config.Server.SessionTTL, a.Config.Server.MaxSessions)
}

// Close releases the history store.
func (a *App) Close() error {
	return a.kv.Close()
}
