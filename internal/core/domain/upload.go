package domain

import (
	"errors"
	"math"
)

// UploadProgress is a transient snapshot of one upload in flight.
// Each snapshot replaces the previous one.
type UploadProgress struct {
	BytesSent       int64 `json:"bytes_sent"`
	TotalBytes      int64 `json:"total_bytes"`
	PercentComplete int   `json:"percent_complete"`
}

// NewUploadProgress builds a snapshot with percent = round(sent/total*100)
func NewUploadProgress(sent, total int64) UploadProgress {
	p := UploadProgress{BytesSent: sent, TotalBytes: total}
	if total > 0 {
		p.PercentComplete = int(math.Round(float64(sent) / float64(total) * 100))
	}
	return p
}

// Fraction returns progress in the 0..1 range for progress bars
func (p UploadProgress) Fraction() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	f := float64(p.BytesSent) / float64(p.TotalBytes)
	if f > 1 {
		return 1
	}
	return f
}

// OutcomeKind is the terminal result class of an upload attempt
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
)

// UploadOutcome is the terminal result of one upload attempt.
// Never retried automatically.
type UploadOutcome struct {
	Kind       OutcomeKind
	Reason     string // set for failures: status text, "network error", "timeout", ...
	Err        error
	StatusCode int
}

// Success returns a successful outcome for the given HTTP status
func Success(statusCode int) UploadOutcome {
	return UploadOutcome{Kind: OutcomeSuccess, StatusCode: statusCode}
}

// Failure returns a failed outcome. The reason is derived from err.
func Failure(err error) UploadOutcome {
	o := UploadOutcome{Kind: OutcomeFailure, Err: err, Reason: FailureReason(err)}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		o.StatusCode = statusErr.Code
	}
	return o
}

// OK reports whether the attempt succeeded
func (o UploadOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// FailureReason reduces an error to the short reason string of a failed outcome
func FailureReason(err error) string {
	var statusErr *HTTPStatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network error"
	case errors.Is(err, ErrInvalidType):
		return "invalid type"
	case errors.Is(err, ErrTooLarge):
		return "too large"
	default:
		return err.Error()
	}
}
