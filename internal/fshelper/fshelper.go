package fshelper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
)

// EnsureDir creates the directory and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// UniquePath returns a path in dir for filename that does not collide with an
// existing file. Collisions get a numeric suffix: photo.jpg, photo-1.jpg, ...
func UniquePath(dir, filename string) string {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "media"
	}

	path := filepath.Join(dir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
}

// RemoveQuiet removes a staging file, logging instead of failing. A missing
// file is not an error.
func RemoveQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove staging file %s: %v", path, err)
	}
}
