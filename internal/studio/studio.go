// Package studio holds a generated design while the user edits, saves and
// shares it.
//
// Edit mode mounts an overlay surface over the displayed image. Apply
// rasterizes the strokes into a mask, sends one recolor request and, on
// success, replaces only the design image. At most one recolor request is
// in flight; a result that arrives after Close is dropped.
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/history"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/mask"
	"github.com/fpang/noksha/internal/overlay"
	"github.com/fpang/noksha/internal/share"
	"github.com/fpang/noksha/internal/task"
)

var (
	ErrEditInFlight = errors.New("an edit is already in progress")
	ErrNotEditing   = errors.New("edit mode is not active")
	ErrUnknownColor = errors.New("unknown color")
	ErrClosed       = errors.New("studio is closed")
	// ErrDiscarded is returned by an Apply whose result arrived after Close.
	ErrDiscarded = errors.New("edit result discarded")
	ErrNoHistory = errors.New("history is not configured")
)

// UnsupportedShareNotice is shown when the platform cannot share.
const UnsupportedShareNotice = "Sharing isn't available here. Download the image and share it from your device."

// Studio is the result view of one generated design.
type Studio struct {
	recolorer   chat.Recolorer
	history     *history.History
	sharer      share.Sharer
	styleName   string
	gender      design.Gender
	surfaceOpts []overlay.Option

	mu      sync.Mutex
	current design.Design
	surface *overlay.Surface
	color   *design.ColorChoice
	saved   *design.SavedDesign
	edit    task.Slot
	edits   int
	closed  bool
}

// Option configures a Studio.
type Option func(*Studio)

// WithHistory enables Save.
func WithHistory(h *history.History) Option {
	return func(s *Studio) { s.history = h }
}

// WithSharer sets the share backend. The default is share.Unsupported.
func WithSharer(sh share.Sharer) Option {
	return func(s *Studio) { s.sharer = sh }
}

// WithStyle records the category fields copied into saved designs.
func WithStyle(name string, gender design.Gender) Option {
	return func(s *Studio) {
		s.styleName = name
		s.gender = gender
	}
}

// WithSurfaceOptions configures the overlay created by EnterEdit.
func WithSurfaceOptions(opts ...overlay.Option) Option {
	return func(s *Studio) { s.surfaceOpts = append(s.surfaceOpts, opts...) }
}

// New creates a studio for d.
func New(d design.Design, r chat.Recolorer, opts ...Option) *Studio {
	s := &Studio{
		recolorer: r,
		sharer:    share.Unsupported{},
		current:   d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Design returns the current design.
func (s *Studio) Design() design.Design {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// StyleName returns the style recorded with WithStyle.
func (s *Studio) StyleName() string {
	return s.styleName
}

// Edits returns the number of applied edits.
func (s *Studio) Edits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edits
}

// Editing reports whether edit mode is active.
func (s *Studio) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface != nil
}

// Processing reports whether a recolor request is in flight.
func (s *Studio) Processing() bool {
	return s.edit.Busy()
}

// EnterEdit mounts a fresh, empty overlay sized to the displayed image.
// Entering again replaces the overlay.
func (s *Studio) EnterEdit(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid overlay size %dx%d", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.edit.Busy() {
		return ErrEditInFlight
	}
	s.surface.Close()
	s.surface = overlay.NewSurface(width, height, s.surfaceOpts...)
	log.Debug().Int("width", width).Int("height", height).Msg("Edit mode entered")
	return nil
}

// CancelEdit leaves edit mode, discarding strokes and the chosen color.
func (s *Studio) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitEdit()
}

func (s *Studio) exitEdit() {
	s.surface.Close()
	s.surface = nil
	s.color = nil
}

// withSurface runs fn on the overlay unless edit mode is off or a request
// is in flight.
func (s *Studio) withSurface(fn func(*overlay.Surface)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil || s.edit.Busy() {
		return
	}
	fn(s.surface)
}

func (s *Studio) SetOrigin(x, y float64) {
	s.withSurface(func(o *overlay.Surface) { o.SetOrigin(x, y) })
}

func (s *Studio) PointerDown(x, y float64) {
	s.withSurface(func(o *overlay.Surface) { o.PointerDown(x, y) })
}

func (s *Studio) PointerMove(x, y float64) {
	s.withSurface(func(o *overlay.Surface) { o.PointerMove(x, y) })
}

func (s *Studio) PointerUp() {
	s.withSurface(func(o *overlay.Surface) { o.PointerUp() })
}

func (s *Studio) PointerLeave() {
	s.withSurface(func(o *overlay.Surface) { o.PointerLeave() })
}

// ReplayStrokes draws recorded paths onto the overlay.
func (s *Studio) ReplayStrokes(paths []overlay.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return ErrNotEditing
	}
	if s.edit.Busy() {
		return ErrEditInFlight
	}
	s.surface.Replay(paths)
	return nil
}

// ClearStrokes erases the overlay.
func (s *Studio) ClearStrokes() {
	s.withSurface(func(o *overlay.Surface) { o.Clear() })
}

// Strokes returns the paths drawn since the overlay was last cleared.
func (s *Studio) Strokes() []overlay.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Paths()
}

// SelectColor picks a palette entry by label.
func (s *Studio) SelectColor(label string) (design.ColorChoice, error) {
	c, ok := catalog.FindColor(label)
	if !ok {
		return design.ColorChoice{}, fmt.Errorf("%w: %q", ErrUnknownColor, label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return design.ColorChoice{}, ErrNotEditing
	}
	s.color = &c
	return c, nil
}

// SelectedColor returns the chosen color, or nil.
func (s *Studio) SelectedColor() *design.ColorChoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.color == nil {
		return nil
	}
	c := *s.color
	return &c
}

// MaskPreview rasterizes the overlay as it is now.
func (s *Studio) MaskPreview() (*mask.Mask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil, ErrNotEditing
	}
	return mask.Rasterize(s.surface.Image()), nil
}

// CanApply reports whether Apply would send a request: edit mode is on, a
// color is chosen, a region is drawn and nothing is in flight.
func (s *Studio) CanApply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.surface == nil || s.color == nil || s.edit.Busy() {
		return false
	}
	return !mask.Rasterize(s.surface.Image()).Empty()
}

// Apply sends the drawn region and chosen color to the recolorer and, on
// success, swaps in the returned image. The text fields are never changed.
// On failure the design is left exactly as it was.
func (s *Studio) Apply(ctx context.Context) (design.Design, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return design.Design{}, ErrClosed
	}
	if s.surface == nil {
		s.mu.Unlock()
		return design.Design{}, ErrNotEditing
	}
	if s.edit.Busy() {
		s.mu.Unlock()
		return design.Design{}, ErrEditInFlight
	}
	current := s.current
	req, err := BuildEditRequest(&current, mask.Rasterize(s.surface.Image()), s.color)
	if err != nil {
		s.mu.Unlock()
		return design.Design{}, err
	}
	ticket, err := s.edit.Begin(ctx)
	if err != nil {
		s.mu.Unlock()
		return design.Design{}, ErrEditInFlight
	}
	s.mu.Unlock()

	log.Info().Str("color", req.ColorName).Msg("Applying color edit")
	start := time.Now()
	img, err := s.recolorer.Recolor(ticket.Context(), req)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ticket.Finish() || s.closed {
		log.Info().Dur("duration", elapsed).Msg("Studio closed, discarding edit result")
		return design.Design{}, ErrDiscarded
	}
	if err == nil && img.IsZero() {
		err = errors.New("provider returned an empty image")
	}
	if err != nil {
		if !design.IsKind(err, design.KindEdit) {
			err = design.NewError(design.KindEdit, "failed to recolor design", err)
		}
		log.Error().Err(err).Dur("duration", elapsed).Msg("Color edit failed")
		return s.current, err
	}

	s.splice(img)
	log.Info().
		Str("color", req.ColorName).
		Int("edits", s.edits).
		Dur("duration", elapsed).
		Msg("Color edit applied")
	return s.current, nil
}

// splice replaces the image, leaves edit mode and marks any save stale.
func (s *Studio) splice(img design.Image) {
	s.current = s.current.WithImage(img)
	s.exitEdit()
	s.saved = nil
	s.edits++
}

// Saved reports whether the current image is already in history.
func (s *Studio) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved != nil
}

// Save copies the current design into history. Saving an already saved
// image returns the existing entry and reports created=false.
func (s *Studio) Save(ctx context.Context) (saved design.SavedDesign, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return design.SavedDesign{}, false, ErrNoHistory
	}
	if s.saved != nil {
		log.Debug().Str("id", s.saved.ID).Msg("Design already saved")
		return *s.saved, false, nil
	}
	entry, err := s.history.Append(ctx, s.current, s.styleName, s.gender)
	if err != nil {
		return design.SavedDesign{}, false, err
	}
	s.saved = &entry
	return entry, true, nil
}

// ShareResult describes what Share did.
type ShareResult struct {
	Shared   bool   `json:"shared"`
	Canceled bool   `json:"canceled,omitempty"`
	Notice   string `json:"notice,omitempty"`
	FileName string `json:"fileName"`
}

// Share hands the current image to the share backend. An unsupported
// platform is not an error: the result carries a notice instead.
func (s *Studio) Share(ctx context.Context) (ShareResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ShareResult{}, ErrClosed
	}
	a := s.attachment()
	sharer := s.sharer
	s.mu.Unlock()

	res := ShareResult{FileName: a.Name}
	err := sharer.Share(ctx, a)
	switch {
	case errors.Is(err, share.ErrUnsupported):
		log.Info().Msg("Share unsupported, showing notice")
		res.Notice = UnsupportedShareNotice
		return res, nil
	case errors.Is(err, share.ErrCanceled):
		res.Canceled = true
		return res, nil
	case err != nil:
		return res, fmt.Errorf("failed to share design: %w", err)
	}
	res.Shared = true
	return res, nil
}

func (s *Studio) attachment() share.Attachment {
	name := "noksha-design" + imageutil.Extension(s.current.Image.MIMEType)
	if s.saved != nil {
		name = history.DownloadName(*s.saved)
	}
	caption := "My Noksha design"
	if s.styleName != "" {
		caption = fmt.Sprintf("My %s design, reimagined with Noksha", s.styleName)
	}
	return share.Attachment{
		Name:     name,
		MIMEType: s.current.Image.MIMEType,
		Data:     s.current.Image.Data,
		Caption:  caption,
	}
}

// Close unmounts the studio. An in-flight edit is cancelled and its result
// will be discarded.
func (s *Studio) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.edit.Cancel()
	s.exitEdit()
}
