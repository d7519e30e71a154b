package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// RequestError means the conversation was rejected before any network call.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return "invalid completion request: " + e.Reason
}

// RemoteServiceError is a non-2xx answer from the completion endpoint.
// Only the status code and its canonical text are kept; the body is discarded.
type RemoteServiceError struct {
	StatusCode int
	Reason     string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("completion service error: %d %s", e.StatusCode, e.Reason)
}

// TransportError is a network-level failure reaching the endpoint.
type TransportError struct {
	Reason string
	err    error
}

func (e *TransportError) Error() string {
	return "completion transport error: " + e.Reason
}

func (e *TransportError) Unwrap() error { return e.err }

// newTransportError keeps a coarse reason for callers and the cause for errors.Is.
func newTransportError(err error) *TransportError {
	return &TransportError{Reason: transportReason(err), err: err}
}

func transportReason(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns lookup failed"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "eof"):
		return "connection closed"
	case strings.Contains(msg, "refused"):
		return "connection refused"
	default:
		return "connection error"
	}
}

// IsRemote reports whether err is a RemoteServiceError.
func IsRemote(err error) bool {
	var re *RemoteServiceError
	return errors.As(err, &re)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
