// Package share hands a finished design to a platform share capability.
package share

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnsupported means the platform offers no way to share. Callers
	// fall back to an inline notice.
	ErrUnsupported = errors.New("sharing is not supported on this platform")
	// ErrCanceled means the user dismissed the share UI.
	ErrCanceled = errors.New("share canceled")
)

// Attachment is a named file plus the caption that accompanies it.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
	Caption  string
}

// Sharer delivers an attachment somewhere outside the process.
type Sharer interface {
	Share(ctx context.Context, a Attachment) error
}

// Unsupported is the Sharer of platforms without a share capability.
type Unsupported struct{}

func (Unsupported) Share(context.Context, Attachment) error {
	return ErrUnsupported
}

// DirSharer writes attachments into a directory. A non-empty caption is
// written next to the file with a .txt extension.
type DirSharer struct {
	Dir string
}

func (s DirSharer) Share(_ context.Context, a Attachment) error {
	if s.Dir == "" {
		return ErrUnsupported
	}
	name, err := cleanName(a.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create share directory: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := writeAttachment(path, a); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(a.Data)).Msg("Design exported")
	return nil
}

// DialogSharer asks the user where to save the attachment with a native
// save dialog.
type DialogSharer struct {
	// Pick overrides the dialog. It returns the chosen path.
	Pick func(ctx context.Context, defaultName string) (string, error)
}

func (s DialogSharer) Share(ctx context.Context, a Attachment) error {
	name, err := cleanName(a.Name)
	if err != nil {
		return err
	}
	pick := s.Pick
	if pick == nil {
		pick = saveDialog
	}

	path, err := pick(ctx, name)
	if errors.Is(err, zenity.ErrCanceled) || errors.Is(err, ErrCanceled) {
		log.Debug().Msg("Share dialog canceled")
		return ErrCanceled
	}
	if errors.Is(err, zenity.ErrUnsupported) {
		return ErrUnsupported
	}
	if err != nil {
		return fmt.Errorf("save dialog failed: %w", err)
	}

	if err := writeAttachment(path, a); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(a.Data)).Msg("Design shared via save dialog")
	return nil
}

func saveDialog(ctx context.Context, defaultName string) (string, error) {
	return zenity.SelectFileSave(
		zenity.Context(ctx),
		zenity.Title("Share your design"),
		zenity.Filename(defaultName),
		zenity.ConfirmOverwrite(),
		zenity.FileFilters{
			{Name: "Images", Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.webp"}},
		},
	)
}

func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid attachment name %q", name)
	}
	return base, nil
}

func writeAttachment(path string, a Attachment) error {
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	if a.Caption == "" {
		return nil
	}
	captionPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	if err := os.WriteFile(captionPath, []byte(a.Caption+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write caption: %w", err)
	}
	return nil
}
