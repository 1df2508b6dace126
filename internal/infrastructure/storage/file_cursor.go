package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"PaperPoster/internal/ports"
)

// CursorFilePrefix names per-area cursor files: ".paperposter-<area>".
const CursorFilePrefix = ".paperposter-"

// FileCursorStore keeps one small file per area holding the last entry id.
type FileCursorStore struct {
	dir string
}

var _ ports.CursorStore = (*FileCursorStore)(nil)

// NewFileCursorStore stores cursor files inside dir.
func NewFileCursorStore(dir string) *FileCursorStore {
	return &FileCursorStore{dir: dir}
}

// Path returns the cursor file for area.
func (s *FileCursorStore) Path(area string) string {
	return filepath.Join(s.dir, CursorFilePrefix+area)
}

// Load reads the cursor for area. A missing or empty file means no cursor.
func (s *FileCursorStore) Load(_ context.Context, area string) (string, bool, error) {
	raw, err := os.ReadFile(s.Path(area))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cursor %s: %w", area, err)
	}
	id := strings.TrimSpace(string(raw))
	return id, id != "", nil
}

// Store replaces the cursor file atomically.
func (s *FileCursorStore) Store(_ context.Context, area, id string) error {
	tmp, err := os.CreateTemp(s.dir, CursorFilePrefix+area+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cursor temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(id); err != nil {
		tmp.Close()
		return fmt.Errorf("write cursor %s: %w", area, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cursor %s: %w", area, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cursor %s: %w", area, err)
	}
	if err := os.Rename(tmpName, s.Path(area)); err != nil {
		return fmt.Errorf("replace cursor %s: %w", area, err)
	}
	return nil
}
