package uploading

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options holds the limits the upload pipeline runs with.
type Options struct {
	MaxSize    int64         // per-file limit in bytes
	Workers    int           // concurrent stage workers
	StaleAfter time.Duration // temp files older than this are swept
}

// Service runs the stage and finalize steps of a batch upload.
type Service struct {
	store     TempStore
	reader    TagReader
	writer    TagWriter
	deliverer Deliverer
	metrics   Recorder
	opts      Options
	validate  *validator.Validate
}

// NewService creates a new upload service. metrics may be nil.
func NewService(store TempStore, reader TagReader, writer TagWriter, deliverer Deliverer, metrics Recorder, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{
		store:     store,
		reader:    reader,
		writer:    writer,
		deliverer: deliverer,
		metrics:   metrics,
		opts:      opts,
		validate:  validator.New(),
	}
}

// Sweep evicts stale temp files. Failures are logged by the store, never returned.
func (s *Service) Sweep() int {
	removed := s.store.Sweep(s.opts.StaleAfter)
	if s.metrics != nil && removed > 0 {
		s.metrics.RecordSwept(removed)
	}
	slog.Debug("Temp sweep finished", "removed", removed, "stale_after", s.opts.StaleAfter)
	return removed
}
