package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const tempPrefix = ".tmp-"

// writeFile writes data to a uniquely named sibling of path and renames it
// into place, so readers never observe a partial file.
func writeFile(path string, data []byte, mtime time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if !mtime.IsZero() {
		_ = os.Chtimes(tmp, mtime, mtime)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
