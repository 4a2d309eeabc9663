// Package history keeps the list of saved designs in a single blob of a
// store.KV backend.
//
// The blob is read once by Load. Append adds an entry in memory and
// rewrites the whole blob. A blob that cannot be read or decoded is
// logged and treated as an empty history; the next Append overwrites it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/store"
)

// DefaultKey is the storage key of the history blob.
const DefaultKey = "noksha_history"

// History is the in-memory view of saved designs, oldest first.
type History struct {
	kv  store.KV
	key string
	now func() time.Time

	mu      sync.RWMutex
	entries []design.SavedDesign
	loaded  bool
}

// Option configures a History.
type Option func(*History)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(h *History) { h.key = key }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// New creates a History over kv. Call Load before reading.
func New(kv store.KV, opts ...Option) *History {
	h := &History{kv: kv, key: DefaultKey, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load reads the stored blob. Read or decode failures are not returned:
// they are logged as a persistence read failure and the history starts
// empty. Load only touches the backend the first time it is called.
func (h *History) Load(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return
	}
	h.loaded = true
	h.entries = nil

	data, err := h.kv.Get(ctx, h.key)
	if err != nil {
		h.logReadFailure(design.NewError(design.KindPersistenceRead, "failed to read history", err))
		return
	}
	if len(data) == 0 {
		log.Debug().Str("key", h.key).Msg("No stored history")
		return
	}

	var entries []design.SavedDesign
	if err := json.Unmarshal(data, &entries); err != nil {
		h.logReadFailure(design.NewError(design.KindPersistenceRead, "failed to decode history", err))
		return
	}
	h.entries = entries
	log.Info().Str("key", h.key).Int("entries", len(entries)).Msg("History loaded")
}

func (h *History) logReadFailure(err *design.Error) {
	log.Warn().
		Err(err).
		Str("kind", err.Kind.String()).
		Str("key", h.key).
		Msg("History unreadable, starting empty")
}

// Append stores a copy of d as a new entry and rewrites the blob. The
// entry is only kept in memory if the write succeeds.
func (h *History) Append(ctx context.Context, d design.Design, styleName string, gender design.Gender) (design.SavedDesign, error) {
	saved := design.SavedDesign{
		Design:    d,
		ID:        uuid.NewString(),
		CreatedAt: h.now().UnixMilli(),
		StyleName: styleName,
		Gender:    gender,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := append(slices.Clone(h.entries), saved)
	data, err := json.Marshal(next)
	if err != nil {
		return design.SavedDesign{}, fmt.Errorf("failed to encode history: %w", err)
	}
	if err := h.kv.Put(ctx, h.key, data); err != nil {
		return design.SavedDesign{}, fmt.Errorf("failed to write history: %w", err)
	}
	h.entries = next
	h.loaded = true

	log.Info().
		Str("id", saved.ID).
		Str("style", styleName).
		Int("entries", len(next)).
		Msg("Design saved to history")
	return saved, nil
}

// List returns every entry, oldest first.
func (h *History) List() []design.SavedDesign {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entries)
}

// Recent returns every entry, newest first, as the history view shows them.
func (h *History) Recent() []design.SavedDesign {
	out := h.List()
	slices.Reverse(out)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Get returns the entry with id.
func (h *History) Get(id string) (design.SavedDesign, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return design.SavedDesign{}, false
}

// DownloadName is the file name offered when exporting a saved design.
func DownloadName(saved design.SavedDesign) string {
	return "noksha-design-" + saved.ID + imageutil.Extension(saved.Image.MIMEType)
}
