// Package transport sends invocation requests and reports response progress.
//
// A Transport performs one request and calls back with Updates as the response
// arrives. Every Update carries the full body received so far, so consumers
// compute deltas themselves.
package transport

import (
	"context"
)

// Phase is the lifecycle stage reported by an Update.
type Phase int

const (
	// PhaseAborted means the request was cancelled before it completed
	PhaseAborted Phase = iota
	// PhasePartial means more body data is available
	PhasePartial
	// PhaseComplete means the body has been received in full
	PhaseComplete
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseAborted:
		return "aborted"
	case PhasePartial:
		return "partial"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Request is one outgoing invocation.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Update reports response progress. Body is only valid during the callback.
type Update struct {
	Phase       Phase
	StatusCode  int
	Header      map[string]string
	ContentType string
	Body        []byte
}

// Transport issues requests.
type Transport interface {
	// Do sends req and calls onUpdate from the calling goroutine as the
	// response progresses. The final update is PhaseComplete or PhaseAborted.
	Do(ctx context.Context, req *Request, onUpdate func(Update)) error
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request, onUpdate func(Update)) error

// Do calls f.
func (f Func) Do(ctx context.Context, req *Request, onUpdate func(Update)) error {
	return f(ctx, req, onUpdate)
}
