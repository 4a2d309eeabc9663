// Package overlay captures free-hand strokes drawn over the displayed design.
//
// A Surface has the pixel dimensions of the rendered image container and
// starts fully transparent. Pointer events arrive in client coordinates and
// are translated by the surface origin. Each move renders a segment
// immediately, so the surface always shows every path drawn since the last
// Clear. The drawing color is a translucent guide only; the mask rasterizer
// looks at coverage, not color.
//
// Every method is a no-op on a nil *Surface, which is how callers represent
// "edit mode not mounted".
package overlay

import (
	"image"
	"image/color"

	"github.com/gogpu/gg"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultStrokeWidth is the brush diameter in overlay pixels.
	DefaultStrokeWidth = 20.0
)

// DefaultGuideColor is a half-transparent brand pink.
var DefaultGuideColor = color.NRGBA{R: 236, G: 72, B: 153, A: 128}

// Point is a position in overlay-local pixel space (origin top-left).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is one continuous gesture, pointer-down to pointer-up.
type Path []Point

// Option configures a Surface.
type Option func(*Surface)

// WithStrokeWidth overrides the brush diameter.
func WithStrokeWidth(w float64) Option {
	return func(s *Surface) {
		if w > 0 {
			s.strokeWidth = w
		}
	}
}

// WithGuideColor overrides the guide color used to render strokes.
func WithGuideColor(c color.NRGBA) Option {
	return func(s *Surface) {
		s.guide = c
	}
}

// Surface is the drawable overlay aligned with the displayed image.
type Surface struct {
	width       int
	height      int
	dc          *gg.Context
	strokeWidth float64
	guide       color.NRGBA

	origin Point
	paths  []Path
	active bool
}

// NewSurface creates an empty, fully transparent surface of the given size.
func NewSurface(width, height int, opts ...Option) *Surface {
	s := &Surface{
		width:       width,
		height:      height,
		strokeWidth: DefaultStrokeWidth,
		guide:       DefaultGuideColor,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dc = gg.NewContext(width, height)
	s.dc.Clear()
	s.dc.SetLineWidth(s.strokeWidth)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	s.dc.SetColor(s.guide)

	log.Debug().
		Int("width", width).
		Int("height", height).
		Float64("stroke_width", s.strokeWidth).
		Msg("Overlay surface created")

	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	if s == nil {
		return 0
	}
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	if s == nil {
		return 0
	}
	return s.height
}

// StrokeWidth returns the brush diameter.
func (s *Surface) StrokeWidth() float64 {
	if s == nil {
		return 0
	}
	return s.strokeWidth
}

// SetOrigin records the client-space position of the surface's top-left
// corner, i.e. the origin of its bounding rectangle.
func (s *Surface) SetOrigin(x, y float64) {
	if s == nil {
		return
	}
	s.origin = Point{X: x, Y: y}
}

// PointerDown starts a new path at the translated client point.
func (s *Surface) PointerDown(clientX, clientY float64) {
	if s == nil {
		return
	}
	s.begin(s.local(clientX, clientY))
}

// PointerMove extends the active path and renders the new segment. Moves
// without a preceding PointerDown are ignored.
func (s *Surface) PointerMove(clientX, clientY float64) {
	if s == nil {
		return
	}
	s.extend(s.local(clientX, clientY))
}

// PointerUp ends the active path.
func (s *Surface) PointerUp() {
	if s == nil {
		return
	}
	s.active = false
}

// PointerLeave ends the active path, exactly like PointerUp.
func (s *Surface) PointerLeave() {
	s.PointerUp()
}

// Drawing reports whether a path is in progress.
func (s *Surface) Drawing() bool {
	return s != nil && s.active
}

// Clear erases all strokes and leaves the surface fully transparent.
func (s *Surface) Clear() {
	if s == nil {
		return
	}
	s.dc.Clear()
	s.dc.ClearPath()
	s.paths = nil
	s.active = false
}

// Paths returns a copy of every path drawn since the last Clear.
func (s *Surface) Paths() []Path {
	if s == nil {
		return nil
	}
	out := make([]Path, len(s.paths))
	for i, p := range s.paths {
		out[i] = append(Path(nil), p...)
	}
	return out
}

// Replay draws recorded paths in overlay-local coordinates as if they had
// arrived as pointer events. Each path ends with an implicit pointer-up.
func (s *Surface) Replay(paths []Path) {
	if s == nil {
		return
	}
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		s.begin(p[0])
		for _, pt := range p[1:] {
			s.extend(pt)
		}
		s.active = false
	}
}

// Image returns the current pixels. Untouched pixels have zero alpha.
func (s *Surface) Image() image.Image {
	if s == nil {
		return nil
	}
	return s.dc.Image()
}

// Close releases the drawing context.
func (s *Surface) Close() error {
	if s == nil {
		return nil
	}
	return s.dc.Close()
}

func (s *Surface) local(clientX, clientY float64) Point {
	return Point{X: clientX - s.origin.X, Y: clientY - s.origin.Y}
}

func (s *Surface) begin(p Point) {
	s.paths = append(s.paths, Path{p})
	s.active = true
}

func (s *Surface) extend(p Point) {
	if !s.active || len(s.paths) == 0 {
		return
	}
	cur := &s.paths[len(s.paths)-1]
	prev := (*cur)[len(*cur)-1]
	*cur = append(*cur, p)

	s.dc.MoveTo(prev.X, prev.Y)
	s.dc.LineTo(p.X, p.Y)
	if err := s.dc.Stroke(); err != nil {
		log.Warn().Err(err).Msg("Failed to render overlay segment")
	}
}
