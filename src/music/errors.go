package music

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrCodec      = errors.New("codec error")
	ErrDelivery   = errors.New("delivery error")
	ErrStructural = errors.New("malformed batch request")

	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalog            = errors.New("catalog error")
	ErrCatalogNotFound    = errors.New("catalog item not found")

	// ErrTooLarge is a validation error for uploads over the size limit.
	ErrTooLarge = fmt.Errorf("%w: file exceeds maximum upload size", ErrValidation)

	// ErrContainment is returned when a temp file id resolves outside the store root.
	ErrContainment = containmentError{}
)

type containmentError struct{}

func (containmentError) Error() string { return "path escapes temp store root" }

// Is lets errors.Is(err, ErrValidation) match containment violations too.
func (containmentError) Is(target error) bool { return target == ErrValidation }
