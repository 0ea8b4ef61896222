// Package uploads stores member photos and signatures on local disk
// and hands back opaque paths. The roster only ever references these
// paths; it never inspects file contents.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config contains upload storage configuration.
type Config struct {
	Dir          string
	MaxSizeBytes int64
}

// Service stores uploaded files on disk.
type Service struct {
	dir     string
	maxSize int64
}

// NewService creates the upload service and ensures the storage
// directory exists.
func NewService(cfg Config) (*Service, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Service{
		dir:     cfg.Dir,
		maxSize: cfg.MaxSizeBytes,
	}, nil
}

// MaxSizeBytes returns the configured per-file size limit.
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSize
}

// Dir returns the storage directory.
func (s *Service) Dir() string {
	return s.dir
}

// Save writes the stream to a new file with a unique name that keeps
// the original extension, and returns the stored file name. The
// original base name is discarded; only its extension survives.
func (s *Service) Save(originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("file-%s%s", uuid.NewString(), ext)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return name, nil
}
