package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemBackend writes artifacts into a local directory.
type FilesystemBackend struct {
	basePath string
	logger   zerolog.Logger
}

// NewFilesystemBackend creates a sink rooted at basePath.
func NewFilesystemBackend(basePath string, logger zerolog.Logger) *FilesystemBackend {
	return &FilesystemBackend{
		basePath: basePath,
		logger:   logger.With().Str("backend", "filesystem").Logger(),
	}
}

// Name returns "filesystem".
func (b *FilesystemBackend) Name() string {
	return "filesystem"
}

// Put writes data to basePath/name via a temp file and rename.
func (b *FilesystemBackend) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := ComputePath(b.basePath, name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("failed to chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	b.logger.Debug().Str("path", target).Int("size", len(data)).Msg("artifact written")
	return target, nil
}

// Ensure FilesystemBackend implements Backend
var _ Backend = (*FilesystemBackend)(nil)
