package annotator

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSourceUnavailable is returned when the input video cannot be opened,
	// decoded, or has no usable metadata.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSinkUnavailable is returned when the output video cannot be created
	// or a frame cannot be written to it.
	ErrSinkUnavailable = errors.New("sink unavailable")
)

// PathError records which file an annotation run failed on. It matches both
// its kind (ErrSourceUnavailable or ErrSinkUnavailable) and its cause with errors.Is.
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the kind and the cause.
func (e *PathError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func sourceError(path string, err error) error {
	return &PathError{Kind: ErrSourceUnavailable, Path: path, Err: err}
}

func sinkError(path string, err error) error {
	return &PathError{Kind: ErrSinkUnavailable, Path: path, Err: err}
}
