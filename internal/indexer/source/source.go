// Package source discovers and opens the documents of a corpus. A document is
// identified by its location, which for the file system is its path.
package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/logger"
)

// Reader opens a document by location. The caller closes the returned
// reader.
type Reader interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// FileReader opens documents from the local file system.
type FileReader struct{}

func (FileReader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrIO, err, "opening document %s", location)
	}
	return f, nil
}

// ReadDocument reads the full text at location, closing the document before
// it returns.
func ReadDocument(ctx context.Context, r Reader, location string) (string, error) {
	rc, err := r.Open(ctx, location)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrIO, err, "reading document %s", location)
	}
	return string(data), nil
}

// List returns the regular files directly inside each directory, symlinks to
// regular files included, sorted by name within a directory and in argument
// order across directories. Other entries are skipped with a debug log. When
// extensions is non-empty only files with one of those extensions are
// returned.
func List(ctx context.Context, dirs []string, extensions []string) ([]string, error) {
	log := logger.FromContext(ctx).With("component", "source")
	var locations []string
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "listing corpus directory %s", dir)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !isRegularFile(dir, entry) {
				log.Debug("skipping non-regular corpus entry", "path", filepath.Join(dir, entry.Name()), "mode", entry.Type().String())
				continue
			}
			if !hasExtension(entry.Name(), extensions) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			locations = append(locations, filepath.Join(dir, name))
		}
	}
	return locations, nil
}

// isRegularFile follows a symlink to decide. Broken links are not files.
func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// MemoryReader serves documents from a map, for callers that already hold
// the corpus in memory.
type MemoryReader map[string]string

func (m MemoryReader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, ok := m[location]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrIO, os.ErrNotExist, "opening document %s", location)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

// Locations returns the map keys in sorted order.
func (m MemoryReader) Locations() []string {
	locations := make([]string, 0, len(m))
	for loc := range m {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations
}

