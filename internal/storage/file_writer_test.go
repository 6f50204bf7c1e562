package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storygen/internal/render"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestNewFileWriter_EmptyDir(t *testing.T) {
	_, err := NewFileWriter("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	require.Equal(t, "story_20240309_070501.md", FileName(render.FormatMarkdown, ts))
	require.Equal(t, "story_20240309_070501.json", FileName(render.FormatJSON, ts))
	require.Equal(t, "story_20240309_070501.txt", FileName(render.FormatConsole, ts))
}

func TestWrite_CreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, err := NewFileWriter(dir)
	require.NoError(t, err)
	w.now = fixedClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	path, err := w.Write(render.FormatJSON, "{}\n")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "story_20250102_030405.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(data))

	matches, err := filepath.Glob(filepath.Join(dir, "story_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestWrite_SameSecondOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir)
	require.NoError(t, err)
	w.now = fixedClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	_, err = w.Write(render.FormatConsole, "first")
	require.NoError(t, err)
	path, err := w.Write(render.FormatConsole, "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestWrite_DirectoryIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	w, err := NewFileWriter(blocker)
	require.NoError(t, err)
	_, err = w.Write(render.FormatMarkdown, "# x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "create directory")
}
