package models

import (
	"errors"
	"fmt"
)

// Reason classifies why a work item failed.
type Reason string

const (
	ReasonUnsupportedFormat Reason = "UnsupportedFormat"
	ReasonNotFound          Reason = "NotFound"
	ReasonProcessingError   Reason = "ProcessingError"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrNotFound          = errors.New("input file not found")
	ErrProcessing        = errors.New("processing failed")
)

// ItemError ties a failure to the work item it happened in.
type ItemError struct {
	Reason Reason
	Path   string
	Err    error
}

func NewItemError(reason Reason, path string, err error) *ItemError {
	return &ItemError{Reason: reason, Path: path, Err: err}
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ReasonOf classifies err. Anything that is neither a missing file nor a
// geometry problem is a ProcessingError.
func ReasonOf(err error) Reason {
	var itemErr *ItemError
	if errors.As(err, &itemErr) && itemErr.Reason != "" {
		return itemErr.Reason
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrUnsupportedFormat):
		return ReasonUnsupportedFormat
	default:
		return ReasonProcessingError
	}
}
