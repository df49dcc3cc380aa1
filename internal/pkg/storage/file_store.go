package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore writes uploaded recordings and documents to local disk. The
// returned path is what the pipeline receives as the source reference.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	dir := filepath.Join(baseDir, "recordings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	return &FileStore{baseDir: dir}, nil
}

// Save copies r to a new uuid-named file with extension ext.
func (s *FileStore) Save(r io.Reader, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.baseDir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func (s *FileStore) Remove(path string) error {
	if !strings.HasPrefix(filepath.Clean(path), s.baseDir) {
		return fmt.Errorf("refusing to remove %s outside %s", path, s.baseDir)
	}
	return os.Remove(path)
}
