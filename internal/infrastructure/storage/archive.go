package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
)

// LocalArchive implements port.ArchiveStore on the local filesystem. All
// paths stay under the base directory; anything that resolves outside it is
// rejected.
type LocalArchive struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalArchive creates a new LocalArchive.
func NewLocalArchive(baseDir string, logger *zap.Logger) *LocalArchive {
	return &LocalArchive{baseDir: baseDir, logger: logger}
}

// Save writes content to the relative path, creating parent directories.
func (s *LocalArchive) Save(ctx context.Context, path string, content []byte) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create archive directories: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}

	s.logger.Debug("archive file saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return nil
}

// Read returns the content at the relative path.
func (s *LocalArchive) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return content, nil
}

// Exists reports whether a file exists at the relative path.
func (s *LocalArchive) Exists(ctx context.Context, path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// Delete removes the file at the relative path. Deleting a missing file is
// a no-op.
func (s *LocalArchive) Delete(ctx context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("delete archive file: %w", err)
	}
	return nil
}

// resolve joins the relative path onto the base directory and verifies the
// result stays inside it.
func (s *LocalArchive) resolve(path string) (string, error) {
	fullPath, err := filepath.Abs(filepath.Join(s.baseDir, path))
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve archive base: %w", err)
	}
	if fullPath != base && !strings.HasPrefix(fullPath, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes archive root: %s", path)
	}
	return fullPath, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SafeName returns a filesystem-safe single path segment derived from name,
// for callers that build paths from user-supplied titles.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, `\`, "")
	return unsafeNameChars.ReplaceAllString(name, "_")
}

var _ port.ArchiveStore = (*LocalArchive)(nil)
