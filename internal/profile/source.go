package profile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"oidcconfig/pkg/debounce"
)

// Source loads profile documents
type Source interface {
	// Name identifies the source in the registry, metrics and logs
	Name() string

	// Load returns every document of the source. Documents that cannot be
	// parsed are reported in Batch.Invalid and do not fail the load.
	Load(ctx context.Context) (*Batch, error)
}

// WatchableSource is a Source that can report changes
type WatchableSource interface {
	Source

	// Watch calls onChange whenever documents may have changed, until ctx is done
	Watch(ctx context.Context, onChange func()) error
}

// Batch is the result of loading a source
type Batch struct {
	Documents []*Document
	// Invalid maps the ref of each unparsable document to its error
	Invalid map[string]error
}

func newBatch() *Batch {
	return &Batch{Invalid: make(map[string]error)}
}

func (b *Batch) add(ref string, data []byte) {
	doc, err := Parse(ref, data)
	if err != nil {
		b.Invalid[ref] = err
		return
	}
	b.Documents = append(b.Documents, doc)
}

// IsDocumentName reports whether name looks like a profile document
func IsDocumentName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// DirSource loads every *.yaml and *.yml file of a directory. Subdirectories
// are not traversed.
type DirSource struct {
	dir    string
	delay  time.Duration
	logger *slog.Logger
}

// NewDirSource creates a directory source
func NewDirSource(dir string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{
		dir:    dir,
		delay:  debounce.DefaultDelay,
		logger: logger.With("component", "profile-source", "source", "directory", "dir", dir),
	}
}

// Name implements Source
func (s *DirSource) Name() string {
	return "directory"
}

// Dir returns the watched directory
func (s *DirSource) Dir() string {
	return s.dir
}

// Load implements Source
func (s *DirSource) Load(ctx context.Context) (*Batch, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsDocumentName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	batch := newBatch()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			// Deleted between ReadDir and ReadFile.
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
		}
		batch.add(path, data)
	}

	s.logger.Debug("profiles loaded", "documents", len(batch.Documents), "invalid", len(batch.Invalid))
	return batch, nil
}
