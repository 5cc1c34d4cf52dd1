package ingest

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/chunk"
)

// Extractor turns a file path into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

// DefaultExtensions are the file extensions ingested when none are
// configured.
var DefaultExtensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".xlsx"}

type options struct {
	workers    int
	extensions map[string]bool
	chunker    chunk.Chunker
	dedup      bool
	extractor  Extractor
	logger     *zap.Logger
}

// Option configures an ingestion job.
type Option func(*options)

// WithWorkers sets the number of concurrent file workers. Values below
// one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExtensions restricts ingestion to the given extensions (with
// leading dot, case-insensitive).
func WithExtensions(exts []string) Option {
	return func(o *options) {
		if len(exts) == 0 {
			return
		}
		o.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			o.extensions[normalizeExt(e)] = true
		}
	}
}

// WithChunker splits each file into chunks indexed as separate
// documents with "#chunk_N" ID suffixes.
func WithChunker(c chunk.Chunker) Option {
	return func(o *options) { o.chunker = c }
}

// WithDedup skips files whose extracted content hashes to a value
// already seen in this job.
func WithDedup(enabled bool) Option {
	return func(o *options) { o.dedup = enabled }
}

// WithExtractor replaces the default document extractor.
func WithExtractor(e Extractor) Option {
	return func(o *options) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithLogger attaches a logger to the job.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.extensions == nil {
		o.extensions = make(map[string]bool, len(DefaultExtensions))
		for _, e := range DefaultExtensions {
			o.extensions[e] = true
		}
	}
	return o
}
