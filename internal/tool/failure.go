package tool

import (
	"errors"
	"fmt"
)

// Failure kind codes. Every error that leaves a tool carries exactly one of
// these; the transport maps them to its own status space.
const (
	KindInvalidInput       = "INVALID_INPUT"
	KindCommandNotAllowed  = "COMMAND_NOT_ALLOWED"
	KindDisallowedArgument = "DISALLOWED_ARGUMENT"
	KindSpawnFailed        = "SPAWN_FAILED"
	KindExecFailed         = "EXEC_FAILED"
	KindTimeout            = "TIMEOUT"
	KindNonZeroExit        = "NON_ZERO_EXIT"
	KindAborted            = "ABORTED"
	KindInvalidURL         = "INVALID_URL"
	KindSSRFBlocked        = "SSRF_BLOCKED"
	KindDNSFailed          = "DNS_FAILED"
	KindFetchFailed        = "FETCH_FAILED"
	KindTooManyRedirects   = "TOO_MANY_REDIRECTS"
	KindInternalError      = "INTERNAL_ERROR"
)

// Failure is the single classified error shape surfaced by all tools.
// Details optionally carries a structured payload (a partial outcome, the
// offending field) that the caller can render alongside the message.
type Failure struct {
	Kind    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *Failure) Error() string {
	return f.Kind + ": " + f.Message
}

// Failf builds a Failure with a formatted message and no details.
func Failf(kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FailDetail builds a Failure carrying a structured details payload.
func FailDetail(kind, message string, details any) *Failure {
	return &Failure{Kind: kind, Message: message, Details: details}
}

// AsFailure extracts a *Failure from an error chain. It returns nil when the
// chain carries no classified failure.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// Classify returns err as a *Failure, wrapping unclassified errors as
// INTERNAL_ERROR so that no raw fault reaches the caller.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	if f := AsFailure(err); f != nil {
		return f
	}
	return &Failure{Kind: KindInternalError, Message: err.Error()}
}
