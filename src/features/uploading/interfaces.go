package uploading

import (
	"context"
	"io"
	"time"

	"github.com/contre95/navidrop/src/music"
)

// TempStore keeps staged files addressed by opaque ids.
type TempStore interface {
	Stage(ctx context.Context, r io.Reader) (string, error)
	Resolve(id string) (string, error)
	Exists(id string) bool
	Remove(id string) error
	Sweep(maxAge time.Duration) int
}

// TagReader extracts tags and duration. Failures wrap music.ErrCodec.
type TagReader interface {
	ReadFileTags(ctx context.Context, path string) (*music.ExtractedTags, error)
}

// TagWriter writes the final tags in place. A nil cover leaves the picture alone.
type TagWriter interface {
	WriteFileTags(ctx context.Context, path string, fields music.TrackFields, cover []byte, coverMIME string) error
}

// Deliverer ships a finalized batch and returns only the failures.
type Deliverer interface {
	Deliver(ctx context.Context, items []music.DeliveryItem) []music.DeliveryFailure
}

// Recorder receives pipeline outcomes for metrics.
type Recorder interface {
	RecordStaged(result string)
	RecordBatch(status string, seconds float64)
	RecordSwept(n int)
}
