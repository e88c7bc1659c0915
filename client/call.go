package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/metric"
	"github.com/acode/lib-go/namespace"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/response"
	"github.com/acode/lib-go/stream"
	"github.com/acode/lib-go/transport"
)

// Call is an invocation in progress. Builder methods never modify the
// receiver; they return a new Call. The first builder error sticks and is
// returned by Invoke.
type Call struct {
	client    *Client
	path      namespace.Path
	keys      map[string]string
	listeners *stream.Listeners
	err       error
}

func (c *Call) extend(tokens ...string) *Call {
	if c.err != nil {
		return c
	}
	next := *c
	for _, tok := range tokens {
		path, err := next.path.Extend(tok)
		if err != nil {
			next.err = err
			return &next
		}
		next.path = path
	}
	return &next
}

// Function appends a function name.
func (c *Call) Function(name string) *Call {
	return c.extend(name)
}

// Version appends a version tag. The leading "@" is optional.
func (c *Call) Version(version string) *Call {
	if !strings.HasPrefix(version, "@") {
		version = "@" + version
	}
	return c.extend(version)
}

// Sub appends sub-path segments. A missing version becomes the default one.
func (c *Call) Sub(names ...string) *Call {
	return c.extend(names...)
}

// WithKeys sets the authorization keys sent with this call, replacing any
// configured keys.
func (c *Call) WithKeys(keys map[string]string) *Call {
	next := *c
	next.keys = make(map[string]string, len(keys))
	for k, v := range keys {
		next.keys[k] = v
	}
	return &next
}

// WithListeners switches the call to streaming and registers listeners.
func (c *Call) WithListeners(l stream.Listeners) *Call {
	next := *c
	next.listeners = &l
	return &next
}

// Path returns the namespace path built so far.
func (c *Call) Path() namespace.Path {
	return c.path
}

// Err returns the first builder error, if any.
func (c *Call) Err() error {
	return c.err
}

// Invoke runs the function with args. A single map or struct argument is
// sent as keyword parameters, as is a single params.Bag built with
// params.Keywords; anything else is positional.
//
// The returned Result is never nil. Its Headers are set whenever the server
// answered, including when a server error is returned.
func (c *Call) Invoke(ctx context.Context, args ...any) (*response.Result, error) {
	cl := c.client
	id := uuid.NewString()
	empty := &response.Result{Headers: map[string]string{}, InvocationID: id}

	if c.err != nil {
		return empty, c.err
	}
	if !c.path.Invocable() {
		return empty, errors.WrapInvalid(errors.ErrNotInvocable, "Call", "Invoke", c.path.String())
	}

	bag, err := bagOf(args)
	if err != nil {
		return empty, err
	}
	req, err := c.prepare(bag)
	if err != nil {
		return empty, err
	}

	path := c.path.Resolved()
	logger := cl.logger.With("invocation_id", id, "path", path.String())
	start := time.Now()
	logger.Debug("Invoking function", "streaming", req.streaming)

	res, err := c.run(ctx, req, logger)
	if res == nil {
		res = empty
	}
	res.InvocationID = id

	outcome := metric.OutcomeSuccess
	switch {
	case stderrors.Is(err, errors.ErrRequestAborted):
		outcome = metric.OutcomeAborted
	case err != nil:
		outcome = metric.OutcomeError
	}
	cl.metrics.RecordInvocation(path.Service(), path.Function(), outcome, time.Since(start))

	if err != nil {
		cl.metrics.RecordError(errors.Classify(err).String())
		logger.Warn("Invocation failed", "error", err, "status", res.StatusCode)
		return res, err
	}
	logger.Debug("Invocation finished", "status", res.StatusCode, "duration", time.Since(start))
	return res, nil
}

func bagOf(args []any) (params.Bag, error) {
	if len(args) == 1 {
		if bag, ok := args[0].(params.Bag); ok {
			return bag, nil
		}
	}
	return params.FromArgs(args...)
}

// run marshals the parameters, sends the request and decodes the outcome.
func (c *Call) run(ctx context.Context, req *request, logger *slog.Logger) (*response.Result, error) {
	cl := c.client

	payload, err := cl.marshaller.Marshal(ctx, req.bag)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Call", "Invoke", "encode parameters")
	}

	treq := &transport.Request{URL: req.url, Header: req.header, Body: body}
	if cl.cfg.Debug {
		logger.Info("Sending request", "url", req.url, "bytes", len(body))
	}

	if req.streaming {
		return c.runStreaming(ctx, treq, req.listeners, logger)
	}

	var final *transport.Update
	err = cl.transport.Do(ctx, treq, func(u transport.Update) {
		if u.Phase == transport.PhaseComplete {
			u.Body = append([]byte(nil), u.Body...)
			final = &u
		}
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, errors.Transient(errors.ErrCouldNotRun, "Call", "Invoke")
	}
	return response.Decode(final.StatusCode, final.Header, final.Body)
}

// runStreaming feeds an event-stream response to a stream.Protocol and
// returns the result carried by the terminal @response event. A response
// that is not an event stream is decoded as a buffered one.
func (c *Call) runStreaming(ctx context.Context, treq *transport.Request, listeners stream.Listeners, logger *slog.Logger) (*response.Result, error) {
	cl := c.client
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		result    *response.Result
		resultErr error
		responded bool
		feedErr   error
		final     *transport.Update
		isStream  *bool
	)

	user := listeners.Response
	listeners.Response = func(res *response.Result, err error) {
		responded = true
		result, resultErr = res, err
		if user != nil {
			user(res, err)
		}
	}

	opts := append([]stream.Option{
		stream.WithMetrics(cl.metrics),
		stream.WithLogger(cl.logger),
	}, cl.streamOpts...)
	feeder := stream.NewFeeder(stream.NewProtocol(listeners, opts...))

	err := cl.transport.Do(ctx, treq, func(u transport.Update) {
		switch u.Phase {
		case transport.PhaseAborted:
			feeder.Stop()
			return
		case transport.PhaseComplete:
			u.Body = append([]byte(nil), u.Body...)
			final = &u
		}

		if isStream == nil {
			v := response.MediaType(u.ContentType) == stream.ContentType
			isStream = &v
		}
		if !*isStream || feedErr != nil || responded {
			return
		}

		if ferr := feeder.Feed(u.Body); ferr != nil {
			feedErr = ferr
			feeder.Stop()
			cancel()
			return
		}
		if responded {
			logger.Debug("Stream responded", "status", result.StatusCode)
			feeder.Stop()
			cancel()
		}
	})

	switch {
	case feedErr != nil:
		return nil, feedErr
	case responded:
		return result, resultErr
	case err != nil:
		return nil, err
	case final == nil:
		return nil, errors.Transient(errors.ErrCouldNotRun, "Call", "Invoke")
	case isStream != nil && *isStream:
		return &response.Result{
			StatusCode:  final.StatusCode,
			Headers:     final.Header,
			ContentType: stream.ContentType,
		}, errors.Transient(errors.ErrStreamEnded, "Call", "Invoke")
	default:
		return response.Decode(final.StatusCode, final.Header, final.Body)
	}
}
