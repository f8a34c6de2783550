package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrMissingInput     = errors.New("missing input")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrMismatch         = errors.New("document number mismatch")
	ErrInvalidSession   = errors.New("invalid session")
	ErrExpired          = errors.New("session expired")
	ErrInvalidOTP       = errors.New("invalid otp")
	ErrTooManyAttempts  = errors.New("too many attempts")
	ErrInternal         = errors.New("internal failure")
	ErrConflict         = errors.New("conflict")
)

// ErrorKind is the wire name of a verification failure.
type ErrorKind string

const (
	KindMissingInput     ErrorKind = "missing_input"
	KindExtractionFailed ErrorKind = "extraction_failed"
	KindMismatch         ErrorKind = "mismatch"
	KindInvalidSession   ErrorKind = "invalid_session"
	KindExpired          ErrorKind = "expired"
	KindInvalidOTP       ErrorKind = "invalid_otp"
	KindTooManyAttempts  ErrorKind = "too_many_attempts"
	KindInternal         ErrorKind = "internal_failure"

	// KindRateLimited is reported by the transport, not by the workflow.
	KindRateLimited ErrorKind = "rate_limited"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMissingInput, KindMissingInput},
	{ErrExtractionFailed, KindExtractionFailed},
	{ErrMismatch, KindMismatch},
	{ErrInvalidSession, KindInvalidSession},
	{ErrExpired, KindExpired},
	{ErrInvalidOTP, KindInvalidOTP},
	{ErrTooManyAttempts, KindTooManyAttempts},
}

// Kind classifies err. Anything that does not wrap a known sentinel is
// reported as an internal failure.
func Kind(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
