package source

import (
	"bytes"
	"context"
	"log/slog"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
}

func TestListSortsAndFilters(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFiles(t, a, map[string]string{"b.txt": "b", "a.txt": "a", "c.md": "c"})
	writeFiles(t, b, map[string]string{"z.txt": "z"})
	require.NoError(t, os.Mkdir(filepath.Join(a, "sub"), 0o755))

	all, err := List(context.Background(), []string{b, a}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(b, "z.txt"),
		filepath.Join(a, "a.txt"),
		filepath.Join(a, "b.txt"),
		filepath.Join(a, "c.md"),
	}, all)

	txt, err := List(context.Background(), []string{a}, []string{".TXT"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(a, "a.txt"), filepath.Join(a, "b.txt")}, txt)
}

func TestListMissingDirectory(t *testing.T) {
	_, err := List(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"doc.txt": "the cat sat"})

	text, err := ReadDocument(context.Background(), FileReader{}, filepath.Join(dir, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "the cat sat", text)

	_, err = ReadDocument(context.Background(), FileReader{}, filepath.Join(dir, "gone.txt"))
	assert.ErrorIs(t, err, apperrors.ErrIO)
	assert.Contains(t, err.Error(), "gone.txt")
}

func TestReadDocumentHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadDocument(ctx, MemoryReader{"doc": "x"}, "doc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryReader(t *testing.T) {
	m := MemoryReader{"doc2": "the cat ran", "doc1": "the cat sat"}
	assert.Equal(t, []string{"doc1", "doc2"}, m.Locations())

	text, err := ReadDocument(context.Background(), m, "doc2")
	require.NoError(t, err)
	assert.Equal(t, "the cat ran", text)

	_, err = ReadDocument(context.Background(), m, "doc3")
	assert.ErrorIs(t, err, apperrors.ErrIO)
}

func TestListFollowsSymlinksAndLogsSkips(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	target := t.TempDir()
	writeFiles(t, target, map[string]string{"real.txt": "linked text"})
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a"})
	if err := os.Symlink(filepath.Join(target, "real.txt"), filepath.Join(dir, "b.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(target, "gone.txt"), filepath.Join(dir, "broken.txt")))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "subdir")))

	got, err := List(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}, got)

	text, err := ReadDocument(context.Background(), FileReader{}, got[1])
	require.NoError(t, err)
	assert.Equal(t, "linked text", text)

	logs := buf.String()
	assert.Contains(t, logs, "skipping non-regular corpus entry")
	assert.Contains(t, logs, filepath.Join(dir, "broken.txt"))
	assert.Contains(t, logs, filepath.Join(dir, "subdir"))
}
