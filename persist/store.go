package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brettbedarf/treefs/internal/util"
	"github.com/google/uuid"
)

// Store reads and writes whole dumps by path
type Store interface {
	// Read returns the dump at path. A missing dump must be reported with
	// an error matching os.ErrNotExist.
	Read(path string) ([]byte, error)

	// Write replaces the dump at path with data
	Write(path string, data []byte) error
}

// FileStore is a [Store] on the local filesystem. Writes land in a uniquely
// named temp file next to the target which is then renamed over it, so a
// failed write never leaves a truncated dump behind.
type FileStore struct {
	Perm os.FileMode
}

func NewFileStore() *FileStore {
	return &FileStore{Perm: 0o644}
}

func (s *FileStore) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *FileStore) Write(path string, data []byte) error {
	logger := util.GetLogger("FileStore.Write")

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))
	if err := os.WriteFile(tmp, data, s.Perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn().Err(rmErr).Str("tmp", tmp).Msg("Failed to remove temp dump")
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Trace().Str("path", path).Int("bytes", len(data)).Msg("Dump written")
	return nil
}
