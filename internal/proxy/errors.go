package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrDownstream marks any failure talking to the downstream service.
	ErrDownstream = errors.New("downstream request failed")

	ErrInvalidBaseURL = errors.New("invalid downstream base URL")
)

// DownstreamError describes a failed relay.
type DownstreamError struct {
	Op     string // build_request, round_trip or copy_body
	Target string
	Cause  error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("proxy %s %s: %v", e.Op, e.Target, e.Cause)
}

func (e *DownstreamError) Unwrap() []error {
	return []error{ErrDownstream, e.Cause}
}
