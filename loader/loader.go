package loader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"docsum/types"
)

// Loader extracts text documents from a file on disk.
type Loader interface {
	Load(path string) ([]types.Document, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(path string) ([]types.Document, error)

func (f LoaderFunc) Load(path string) ([]types.Document, error) {
	return f(path)
}

type Options struct {
	// CropTop and CropBottom are PDF margins in points removed before extraction. 0 disables.
	CropTop    float64
	CropBottom float64
}

// Registry dispatches files to loaders by extension.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		loaders: make(map[string]Loader),
		logger:  logger,
	}
}

// DefaultRegistry registers the pdf, txt, doc and docx loaders.
func DefaultRegistry(opts Options, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register("pdf", NewPDFLoader(opts.CropTop, opts.CropBottom, r.logger))
	r.Register("txt", TextLoader{})
	word := WordLoader{}
	r.Register("docx", word)
	r.Register("doc", word)
	return r
}

// Register binds ext (with or without the leading dot, any case) to l, replacing any previous loader.
func (r *Registry) Register(ext string, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[normalizeExt(ext)] = l
}

func (r *Registry) Get(ext string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[normalizeExt(ext)]
	return l, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load extracts documents from path. Blank documents are dropped; when nothing is left
// the result is ErrExtractionFailed.
func (r *Registry) Load(path string) ([]types.Document, error) {
	ext := normalizeExt(filepath.Ext(path))
	l, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
	}

	docs, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	kept := docs[:0]
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}
		if d.Metadata[types.MetaSource] == "" {
			d.Metadata[types.MetaSource] = filepath.Base(path)
		}
		if d.Metadata[types.MetaFormat] == "" {
			d.Metadata[types.MetaFormat] = ext
		}
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return nil, types.ErrExtractionFailed
	}

	r.logger.Debug("document loaded", "format", ext, "documents", len(kept), "dropped", len(docs)-len(kept))
	return kept, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
