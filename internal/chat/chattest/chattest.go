// Package chattest provides an in-memory chat.Provider for tests.
package chattest

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/design"
)

// PNG returns a valid PNG of the given size filled with c.
func PNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG1x1 is a valid 1x1 transparent PNG.
var PNG1x1 = PNG(1, 1, color.Transparent)

// JPEGWithGPS returns a small JPEG whose APP1 segment carries EXIF GPS
// coordinates (23°48'N 90°24'E).
func JPEGWithGPS() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	plain := buf.Bytes()

	payload := append([]byte("Exif\x00\x00"), gpsTIFF()...)
	app1 := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(app1[2:], uint16(len(payload)+2))
	app1 = append(app1, payload...)

	out := append([]byte{}, plain[:2]...)
	out = append(out, app1...)
	return append(out, plain[2:]...)
}

func gpsTIFF() []byte {
	le := binary.LittleEndian
	b := make([]byte, 128)
	entry := func(off int, tag, typ uint16, count, value uint32) {
		le.PutUint16(b[off:], tag)
		le.PutUint16(b[off+2:], typ)
		le.PutUint32(b[off+4:], count)
		le.PutUint32(b[off+8:], value)
	}
	copy(b, "II*\x00")
	le.PutUint32(b[4:], 8)

	// IFD0 holds only the GPS IFD pointer.
	le.PutUint16(b[8:], 1)
	entry(10, 0x8825, 4, 1, 26)

	le.PutUint16(b[26:], 4)
	entry(28, 0x0001, 2, 2, uint32('N'))
	entry(40, 0x0002, 5, 3, 80)
	entry(52, 0x0003, 2, 2, uint32('E'))
	entry(64, 0x0004, 5, 3, 104)

	for i, v := range []uint32{23, 1, 48, 1, 0, 1, 90, 1, 24, 1, 0, 1} {
		le.PutUint32(b[80+4*i:], v)
	}
	return b
}

// Provider records calls and answers with the configured functions. A nil
// function produces a fixed successful result.
type Provider struct {
	GenerateFunc func(ctx context.Context, prefs design.Preferences) (*design.Design, error)
	RecolorFunc  func(ctx context.Context, req *chat.EditRequest) (design.Image, error)

	mu          sync.Mutex
	generations []design.Preferences
	edits       []*chat.EditRequest
}

var _ chat.Provider = (*Provider)(nil)

func (p *Provider) Generate(ctx context.Context, prefs design.Preferences) (*design.Design, error) {
	p.mu.Lock()
	p.generations = append(p.generations, prefs)
	fn := p.GenerateFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, prefs)
	}
	if err := chat.CheckPreferences(prefs); err != nil {
		return nil, err
	}
	return &design.Design{
		Image:           design.Image{Data: PNG1x1, MIMEType: "image/png"},
		DescriptiveText: prefs.Style.Description,
		RationaleText:   chat.FallbackRationale,
	}, nil
}

func (p *Provider) Recolor(ctx context.Context, req *chat.EditRequest) (design.Image, error) {
	p.mu.Lock()
	p.edits = append(p.edits, req)
	fn := p.RecolorFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return design.Image{Data: append([]byte(nil), PNG1x1...), MIMEType: "image/png"}, nil
}

// Generations returns the preferences of every Generate call.
func (p *Provider) Generations() []design.Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]design.Preferences(nil), p.generations...)
}

// Edits returns every recolor request received.
func (p *Provider) Edits() []*chat.EditRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*chat.EditRequest(nil), p.edits...)
}
