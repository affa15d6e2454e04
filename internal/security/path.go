package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths that could escape an intended directory via
// directory traversal, and paths with embedded NUL bytes.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("file path contains NUL byte")
	}

	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}

// ValidateFilePathWithBase additionally requires the resolved path to stay
// inside baseDir.
func ValidateFilePathWithBase(path, baseDir string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}

	resolved := filepath.Clean(filepath.Join(baseDir, path))
	if !strings.HasPrefix(resolved, filepath.Clean(baseDir)) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}

	return nil
}
