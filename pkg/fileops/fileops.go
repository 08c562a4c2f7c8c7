package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNotExist is returned (wrapped) when a path does not exist.
var ErrNotExist = os.ErrNotExist

// DirInfo describes one immediate subdirectory of a scanned root.
type DirInfo struct {
	// Name is the base directory name
	Name string

	// Path is the directory path joined onto the root
	Path string

	// ModTime is the directory's last modification time
	ModTime time.Time
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ValidateFileSizeLimit checks that filePath is a regular file no larger than maxSize bytes.
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s: %w", filepath.Base(filePath), ErrNotExist)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if fileInfo.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes", fileInfo.Size(), maxSize)
	}

	return nil
}

// ReadTextFile reads a UTF-8 text file after enforcing the size limit.
func ReadTextFile(filePath string, maxSize int64) (string, error) {
	if err := ValidateFileSizeLimit(filePath, maxSize); err != nil {
		return "", err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("file is not readable: %w", err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8: %s", filepath.Base(filePath))
	}

	return string(data), nil
}

// ListSubdirectories returns the immediate subdirectories of root. Entries
// whose metadata cannot be read are skipped; failure to read root itself is
// returned as an error.
func ListSubdirectories(root string) ([]DirInfo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", root, err)
	}

	dirs := make([]DirInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(root, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	return dirs, nil
}

// IsDirEmpty reports whether dir has no entries.
func IsDirEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
