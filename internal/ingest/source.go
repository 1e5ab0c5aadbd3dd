package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source supplies course documents to the pipeline. Implementations exist
// for a local folder and for a GitHub repository.
type Source interface {
	// List returns the names of all course documents the source offers.
	List(ctx context.Context) ([]string, error)
	// Fetch returns the raw text of one document.
	Fetch(ctx context.Context, name string) (string, error)
}

// DirSource reads course documents from a local folder. Only .txt files are
// considered; anything else is ignored.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over the given folder.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// List returns the .txt files in the folder, sorted by name.
func (s *DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read docs folder %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Fetch reads one document from the folder.
func (s *DirSource) Fetch(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", name, err)
	}
	return string(data), nil
}
