package platform

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	// KindFatal errors terminate the platform attempt immediately.
	KindFatal ErrorKind = iota
	// KindTransient errors are worth retrying with backoff.
	KindTransient
)

// Error is a classified platform failure. Adapters return it so callers can
// decide retryability without sniffing message text.
type Error struct {
	Platform string
	Kind     ErrorKind
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func NewTransient(platform, format string, args ...any) *Error {
	return &Error{Platform: platform, Kind: KindTransient, Message: fmt.Sprintf(format, args...)}
}

func NewFatal(platform, format string, args ...any) *Error {
	return &Error{Platform: platform, Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// Legacy transient signatures, matched against error text when the error is
// not a classified *Error. The list is load-bearing: changing it changes
// observable retry behavior for errors coming out of raw HTTP calls.
var transientSignatures = []string{
	"rate limit",
	"timeout",
	"502",
	"503",
	"etimedout",
	"econnreset",
	"fetch failed",
}

// Retryable reports whether err should be retried with backoff. Classified
// errors are decided by kind; everything else falls back to the legacy
// substring match.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
