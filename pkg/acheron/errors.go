package acheron

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a receive times out with no message available.
var ErrNoData = errors.New("no data")

// ErrMalformedFrame is returned when a stored value cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// ErrDoubleFinalize is returned when a delivery is acked or nacked twice.
var ErrDoubleFinalize = errors.New("delivery already acked or nacked")

// ErrUnsupported is returned for operations a backend does not implement.
var ErrUnsupported = errors.New("operation not supported by this backend")

// BackendError wraps a connectivity or command failure from the underlying
// broker.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapBackend annotates err as a backend failure for operation op. A nil err
// returns nil.
func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}
