package objectstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadStore persists uploaded images so stored predictions can
// reference them later. Implementations must be safe for concurrent use.
type UploadStore interface {
	// Save stores content under a unique name derived from filename and
	// returns the stored name.
	Save(filename string, content io.Reader, size int64) (string, error)
	// Remove deletes a previously stored object. Removing an absent
	// object is not an error.
	Remove(storedName string) error
}

// uniqueObjectName builds a collision-free stored name from the upload
// instant, a short uuid and the sanitized original base name.
func uniqueObjectName(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s", stamp, uuid.New().String()[:8], base)
}

// LocalUploadStore keeps uploads in a directory on local disk. It is the
// working store for predictions: the saved file is what preprocessing
// reads and what the uploads endpoint serves.
type LocalUploadStore struct {
	dir string
}

// NewLocalUploadStore creates the upload directory if needed.
func NewLocalUploadStore(dir string) (*LocalUploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &LocalUploadStore{dir: dir}, nil
}

func (s *LocalUploadStore) Save(filename string, content io.Reader, size int64) (string, error) {
	storedName := uniqueObjectName(filename)
	path := filepath.Join(s.dir, storedName)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file %s: %w", path, err)
	}
	if _, err := io.Copy(dst, content); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file %s: %w", path, err)
	}
	return storedName, nil
}

func (s *LocalUploadStore) Remove(storedName string) error {
	err := os.Remove(filepath.Join(s.dir, storedName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload %s: %w", storedName, err)
	}
	return nil
}

// Path returns the local filesystem path of a stored upload.
func (s *LocalUploadStore) Path(storedName string) string {
	return filepath.Join(s.dir, storedName)
}
