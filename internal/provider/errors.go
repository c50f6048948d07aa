package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any request is made when the
// provider has no API key.
var ErrMissingCredential = errors.New("missing API key")

// ErrTimeout marks an attempt that did not finish within its deadline.
var ErrTimeout = errors.New("timeout")

// APIError is a transport failure (StatusCode 0) or a non-success response.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error: %v", e.Err)
	}
	return fmt.Sprintf("API error: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// ParseError is a malformed or schema-violating provider payload.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindCredential ErrorKind = "credential"
	KindAPI        ErrorKind = "api"
	KindParse      ErrorKind = "parse"
	KindTimeout    ErrorKind = "timeout"
	KindCanceled   ErrorKind = "canceled"
	KindUnknown    ErrorKind = "unknown"
)

// Kind reports which taxonomy bucket err falls in.
func Kind(err error) ErrorKind {
	var apiErr *APIError
	var parseErr *ParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return KindCredential
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &apiErr):
		return KindAPI
	default:
		return KindUnknown
	}
}

// Retryable reports whether another attempt could succeed. Only a missing
// credential is known to fail identically every time.
func Retryable(err error) bool {
	return !errors.Is(err, ErrMissingCredential)
}

func parseFailure(providerID string, err error) error {
	return &ParseError{Provider: providerID, Err: err}
}
