package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

const fileExt = ".zst"

// FileStore writes each key to a zstd-compressed file under a base
// directory. Writes go through a temp file and rename so a crash never
// leaves a truncated blob behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ KV = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader %s: %w", key, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("compress %s: %w", key, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}

	log.Debug().
		Str("key", key).
		Int("raw_bytes", len(data)).
		Int("stored_bytes", buf.Len()).
		Msg("Blob written")
	return nil
}

func (s *FileStore) Close() error { return nil }
