// Package stream parses the event stream returned by streaming invocations.
//
// Records are blank-line separated groups of "field:value" lines:
//
//	id: 2024-01-01T00:00:00.000Z/3
//	event: progress
//	data: {"percent": 40}
//
// Only the event, data and id fields are used. Multiple data lines are joined
// with "\n" and parsed as JSON. The event type is taken from an event line
// appearing before the first data line and defaults to "message". Records
// without data (retry directives, keep-alive comments) are ignored.
//
// Each parsed Event goes through a fixed sequence of listener slots:
//
//  1. Listeners.Stream[type]
//  2. Listeners.Stream["*"], unless type starts with "@"
//  3. Listeners.Debug[type]
//  4. Listeners.Debug["*"], unless type is "@response"
//  5. Listeners.Response, only for "@response"
//
// The "@response" event carries the final response of the invocation as
// {statusCode, headers, body}; it is decoded with response.Decode before it
// reaches the response listener.
//
// Chunk boundaries never affect the result: a record split across Process
// calls is dispatched once, when its terminating blank line arrives.
//
//	p := stream.NewProtocol(stream.Listeners{
//	    Stream: map[string]stream.Listener{
//	        "progress": func(ev stream.Event) { fmt.Println(ev.Data) },
//	    },
//	    Response: func(res *response.Result, err error) { ... },
//	})
//	feeder := stream.NewFeeder(p)
//	err := feeder.Feed(bodySoFar)
package stream
