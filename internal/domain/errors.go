package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrDownload         = errors.New("image download failed")
	ErrModelUnavailable = errors.New("inpainting model unavailable")
	ErrInpaint          = errors.New("inpainting failed")
)

// RemovalError is the only error type that leaves the batch boundary.
// Kind is one of the sentinels above, so callers match it with errors.Is.
type RemovalError struct {
	Kind error
	URL  string
	Err  error
}

func NewDownloadError(url string, err error) *RemovalError {
	return &RemovalError{Kind: ErrDownload, URL: url, Err: err}
}

func NewInpaintError(url string, err error) *RemovalError {
	kind := ErrInpaint
	if errors.Is(err, ErrModelUnavailable) {
		kind = ErrModelUnavailable
	}
	return &RemovalError{Kind: kind, URL: url, Err: err}
}

func (e *RemovalError) Error() string {
	switch e.Kind {
	case ErrDownload:
		return fmt.Sprintf("failed to download image from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to inpaint image from %s: %v", e.URL, e.Err)
	}
}

func (e *RemovalError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ValidationError reports a malformed request field. No pipeline work has
// been started when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
