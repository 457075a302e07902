package music

// BatchStatus is the overall outcome of a finalize call.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

// ErrorKind says which stage a track failed in.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindCodec      ErrorKind = "codec"
	KindDelivery   ErrorKind = "delivery"
	KindStructural ErrorKind = "structural"
)

// TrackError names the offending track and why it did not make it.
type TrackError struct {
	TempFileID string    `json:"tempFileId,omitempty"`
	Title      string    `json:"title"`
	Reason     string    `json:"reason"`
	Kind       ErrorKind `json:"kind"`
}

// Rejection is a file refused during upload-stage.
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchResult is the aggregate outcome of a finalize call.
type BatchResult struct {
	Status    BatchStatus  `json:"status"`
	Errors    []TrackError `json:"errors"`
	Delivered int          `json:"delivered"`
}

// ComputeStatus derives the batch status from the error count and how many tracks were delivered.
func ComputeStatus(errorCount, delivered int) BatchStatus {
	switch {
	case delivered > 0 && errorCount == 0:
		return BatchSuccess
	case delivered > 0:
		return BatchPartial
	default:
		return BatchFailed
	}
}

// Finish sets Status from the current Errors and Delivered fields.
func (r *BatchResult) Finish() {
	if r.Errors == nil {
		r.Errors = []TrackError{}
	}
	r.Status = ComputeStatus(len(r.Errors), r.Delivered)
}

// HasKind reports whether any recorded error is of kind k.
func (r *BatchResult) HasKind(k ErrorKind) bool {
	for _, e := range r.Errors {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// DeliveryItem is one finalized file handed to the remote delivery client.
type DeliveryItem struct {
	Path   string
	Artist string
	Title  string
}

// DeliveryFailure reports a file that did not reach the remote library.
type DeliveryFailure struct {
	Path   string
	Title  string
	Reason string
	Err    error // wraps ErrDelivery
	// Connect is true when the session could not be established and the file was never attempted.
	Connect bool
}
