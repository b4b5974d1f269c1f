package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyRequest is returned when a load is requested with no items.
var ErrEmptyRequest = errors.New("empty load request")

// ErrLoadInProgress is returned when an image load is requested while another one is still active.
var ErrLoadInProgress = errors.New("a load is already in progress")

// ErrAborted is reported by backends through OnAbort when Abort was requested.
var ErrAborted = errors.New("load aborted")

// ErrRecordNotFound is returned when a journal record cannot be found in the store.
var ErrRecordNotFound = errors.New("load record not found")

// ErrUnsupportedSource is returned when an item cannot be read by the selected backend.
var ErrUnsupportedSource = errors.New("unsupported source")

// LoadError is a backend failure carrying a short kind name (e.g. "NetworkError").
// The controller renders it as "<kind>: <message>".
type LoadError struct {
	Kind    string
	Message string
	Err     error
}

// NewLoadError creates a LoadError wrapping err.
func NewLoadError(kind string, err error) *LoadError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &LoadError{Kind: kind, Message: msg, Err: err}
}

// Name returns the error kind.
func (e *LoadError) Name() string {
	return e.Kind
}

func (e *LoadError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Errorf builds a LoadError with a formatted message.
func Errorf(kind, format string, args ...any) *LoadError {
	err := fmt.Errorf(format, args...)
	return &LoadError{Kind: kind, Message: err.Error(), Err: errors.Unwrap(err)}
}
