// Package storage stores uploaded pictures and PDFs and hands back opaque
// reference strings. The rest of the system only ever persists references.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// FileStore is the narrow boundary the core calls through. Implementations
// own the bytes; callers own only the returned reference.
type FileStore interface {
	Store(data []byte, ext string) (string, error)
	Delete(ref string) error
}

// defaultRefs are shared assets that must never be deleted.
var defaultRefs = map[string]bool{
	entities.DefaultProfilePicture: true,
	entities.DefaultSectionPicture: true,
	entities.DefaultBookPicture:    true,
	entities.DefaultBookPDF:        true,
}

// LocalStore keeps files on the local filesystem under a single directory,
// naming each file with a random UUID.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Store writes the data under a fresh UUID-based name and returns it.
func (s *LocalStore) Store(data []byte, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ref := uuid.NewString() + ext
	path := filepath.Join(s.dir, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return ref, nil
}

// Delete removes a stored file. Default references and missing files are
// silently skipped.
func (s *LocalStore) Delete(ref string) error {
	if ref == "" || defaultRefs[ref] {
		return nil
	}
	// Refuse path traversal in stored references
	if ref != filepath.Base(ref) {
		return fmt.Errorf("invalid file reference %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsDefault reports whether a reference names a shared default asset.
func IsDefault(ref string) bool {
	return defaultRefs[ref]
}
