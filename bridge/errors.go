package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamAgent marks a runtime reply with a non-success status.
	ErrUpstreamAgent = errors.New("upstream agent error")

	// ErrUpstreamUnreachable marks a transport failure or timeout.
	ErrUpstreamUnreachable = errors.New("upstream agent unreachable")

	// ErrSessionCreate marks a session creation that produced no session.
	ErrSessionCreate = errors.New("failed to create remote session")
)

// UpstreamError carries the status and body of a failed runtime reply.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrUpstreamAgent, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamAgent
}

// IsGateway reports whether err came from the runtime rather than from the
// caller. Web handlers answer these with 502 Bad Gateway.
func IsGateway(err error) bool {
	return errors.Is(err, ErrUpstreamAgent) ||
		errors.Is(err, ErrUpstreamUnreachable) ||
		errors.Is(err, ErrSessionCreate)
}

// Kind names the gateway failure class of err for logs.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSessionCreate):
		return "session_create"
	case errors.Is(err, ErrUpstreamUnreachable):
		return "unreachable"
	case errors.Is(err, ErrUpstreamAgent):
		return "upstream_status"
	default:
		return "other"
	}
}
