package script

import (
	"errors"
	"fmt"
)

// ErrorClassifier lets errors declare how callers should treat them.
type ErrorClassifier interface {
	ErrorKind() string
}

const (
	KindValidation = "validation"
	KindResolution = "resolution"
	KindStale      = "stale"
	KindCodec      = "codec"
	KindProvider   = "provider"
	KindNotFound   = "not_found"
)

// ErrorKind returns the classification of err, or "" when err does not
// classify itself.
func ErrorKind(err error) string {
	var c ErrorClassifier
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	return ""
}

// ValidationError rejects an operation without changing state.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) ErrorKind() string { return KindValidation }

// ResolutionError marks a segment with no transmittable media.
type ResolutionError struct {
	SegmentID string
	Channel   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("segment %s: missing %s source", e.SegmentID, e.Channel)
}

func (e *ResolutionError) ErrorKind() string { return KindResolution }

// StalenessError means a render result no longer matches the script.
type StalenessError struct {
	Want string
	Got  string
}

func (e *StalenessError) Error() string {
	return fmt.Sprintf("stale render result: fingerprint %s, current %s", e.Got, e.Want)
}

func (e *StalenessError) ErrorKind() string { return KindStale }

// CodecError reports a stored field that could not be decoded.
type CodecError struct {
	SegmentID string
	Field     string
	Err       error
}

func (e *CodecError) Error() string {
	if e.SegmentID == "" {
		return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode segment %s %s: %v", e.SegmentID, e.Field, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) ErrorKind() string { return KindCodec }

// ProviderError wraps a failure from an external service.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) ErrorKind() string { return KindProvider }

// IsRetryable returns true for server errors and transport failures.
// Client errors (4xx) are permanent.
func (e *ProviderError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode >= 500
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) ErrorKind() string { return KindNotFound }
