package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storygen/internal/render"
)

const (
	DefaultDir      = "historias"
	timestampLayout = "20060102_150405"
)

// FileWriter saves rendered stories as story_<timestamp>.<ext> under dir.
type FileWriter struct {
	dir string
	now func() time.Time
}

func NewFileWriter(dir string) (*FileWriter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: output directory must not be empty")
	}
	return &FileWriter{dir: dir, now: time.Now}, nil
}

func (w *FileWriter) Dir() string {
	return w.dir
}

// FileName is the name used for a story saved at ts. Two saves within the
// same second share a name and the second overwrites the first.
func FileName(f render.Format, ts time.Time) string {
	return fmt.Sprintf("story_%s.%s", ts.Format(timestampLayout), f.Extension())
}

// Write creates the directory if needed and writes content to a new file.
func (w *FileWriter) Write(f render.Format, content string) (path string, err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create directory %q: %w", w.dir, err)
	}
	path = filepath.Join(w.dir, FileName(f, w.now()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: create %q: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("storage: close %q: %w", path, cerr)
			path = ""
		}
	}()

	if _, err := file.WriteString(content); err != nil {
		return "", fmt.Errorf("storage: write %q: %w", path, err)
	}
	return path, nil
}
