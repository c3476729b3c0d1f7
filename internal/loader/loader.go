// Package loader reads evidence documents from a directory on disk.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/coldcase-labs/detective/internal/domain"
)

// Loader scans one directory for .txt evidence files.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// New creates a loader over dir.
func New(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}
}

// Dir returns the evidence directory path.
func (l *Loader) Dir() string { return l.dir }

// Load reads every .txt file in the directory into a Document (ID = file
// name). Files with empty or whitespace-only content are skipped. A missing
// directory is created and yields no documents.
func (l *Loader) Load() ([]domain.Document, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}

	names, err := l.List()
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read evidence file %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			l.logger.Warn("Skipping empty evidence file", zap.String("file", name))
			continue
		}
		docs = append(docs, domain.Document{ID: name, Text: string(data)})
	}

	l.logger.Info("Loaded evidence files",
		zap.String("dir", l.dir),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}

// List returns the .txt file names in the directory, sorted.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read evidence dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the content of one evidence file by name. Names containing
// path separators are rejected, only .txt files can be read.
func (l *Loader) Read(name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid evidence file name %q", name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".txt") {
		return "", fmt.Errorf("only .txt evidence files can be read, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("read evidence file %s: %w", name, err)
	}
	return string(data), nil
}
