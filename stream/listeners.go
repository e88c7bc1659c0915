package stream

import (
	"github.com/acode/lib-go/response"
)

// Reserved event types and listener keys.
const (
	// Wildcard subscribes a listener to every event type it is allowed to see
	Wildcard = "*"
	// ResponseEvent carries the terminal result of a streamed invocation
	ResponseEvent = "@response"
	// DefaultEventType is used when a record has no event field
	DefaultEventType = "message"
	// ContentType is the media type of an event-stream response
	ContentType = "text/event-stream"
)

// Event is one parsed stream record.
type Event struct {
	ID        *string
	Type      string
	Data      any
	Timestamp string
	// Index counts earlier events of the same Type in this stream.
	Index int
}

// Listener receives dispatched events.
type Listener func(Event)

// ResponseListener receives the decoded terminal response.
type ResponseListener func(*response.Result, error)

// Listeners is the fixed set of listener slots consulted for each event.
//
// Stream and Debug are keyed by event type; the Wildcard key in either map
// receives all types except the reserved ones: wildcard stream listeners skip
// every type starting with "@", wildcard debug listeners skip "@response".
type Listeners struct {
	Stream   map[string]Listener
	Debug    map[string]Listener
	Response ResponseListener
}

// Subscription renders a listener slot as a request parameter: an object of
// subscribed event types mapped to true, or "" when nothing is subscribed.
func Subscription(slot map[string]Listener) any {
	if len(slot) == 0 {
		return ""
	}
	names := make(map[string]bool, len(slot))
	for name, l := range slot {
		if l != nil {
			names[name] = true
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names
}

// IsEmpty reports whether no listener is registered in any slot.
func (l Listeners) IsEmpty() bool {
	return len(l.Stream) == 0 && len(l.Debug) == 0 && l.Response == nil
}
