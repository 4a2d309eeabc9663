package studio

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/noksha/internal/assets"
	"github.com/fpang/noksha/internal/chat"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/mask"
)

// BuildEditRequest bundles the current image, the mask and the color into
// one recolor request.
//
// The mask is drawn at display resolution. When the original's header can
// be read, the mask is resampled to the original's pixel size so both
// inputs line up; otherwise it is sent as drawn.
func BuildEditRequest(current *design.Design, m *mask.Mask, color *design.ColorChoice) (*chat.EditRequest, error) {
	if current == nil || current.Image.IsZero() {
		return nil, design.NewError(design.KindMissingSelection, "no design to edit", nil)
	}
	if color == nil {
		return nil, design.NewError(design.KindMissingSelection, "no color selected", nil)
	}
	if m == nil || m.Empty() {
		return nil, design.NewError(design.KindEmptyMask, "no region selected", nil)
	}

	if w, h, err := imageutil.Dimensions(current.Image); err != nil {
		log.Warn().Err(err).Msg("Original size unknown, sending mask at display size")
	} else if b := m.Bounds(); b.Dx() != w || b.Dy() != h {
		log.Debug().
			Int("mask_width", b.Dx()).
			Int("mask_height", b.Dy()).
			Int("image_width", w).
			Int("image_height", h).
			Msg("Resampling mask to original size")
		m = m.Scale(w, h)
	}

	maskImg, err := m.Image()
	if err != nil {
		return nil, err
	}
	instruction, err := assets.RenderRecolor(color.Name)
	if err != nil {
		return nil, err
	}

	return &chat.EditRequest{
		Original:    current.Image,
		Mask:        maskImg,
		ColorName:   color.Name,
		Instruction: instruction,
	}, nil
}
