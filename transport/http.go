package transport

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acode/lib-go/errors"
)

const defaultReadSize = 32 * 1024

// HTTPTransport implements Transport on net/http.
type HTTPTransport struct {
	client   *http.Client
	timeout  time.Duration
	readSize int
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the underlying client. The client is not modified;
// nil keeps the default.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithTimeout bounds the whole request including the body. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		t.timeout = d
	}
}

// WithReadSize sets the read buffer size, which bounds the body growth per update.
func WithReadSize(n int) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.readSize = n
		}
	}
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client:   &http.Client{},
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	if t.timeout > 0 {
		c := *t.client
		c.Timeout = t.timeout
		t.client = &c
	}
	return t
}

// Do sends req, reporting one PhasePartial update per read and a final
// PhaseComplete. Cancellation of ctx is reported as PhaseAborted and
// ErrRequestAborted. Failing to get any response yields ErrCouldNotRun.
func (t *HTTPTransport) Do(ctx context.Context, req *Request, onUpdate func(Update)) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return errors.WrapInvalid(err, "HTTPTransport", "Do", "build request")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			onUpdate(Update{Phase: PhaseAborted})
			return errors.Mask(errors.ErrorTransient, errors.ErrRequestAborted, ctx.Err(), "HTTPTransport", "Do")
		}
		return errors.Mask(errors.ErrorTransient, errors.ErrCouldNotRun, err, "HTTPTransport", "Do")
	}
	defer resp.Body.Close()

	update := Update{
		StatusCode:  resp.StatusCode,
		Header:      flattenHeader(resp.Header),
		ContentType: resp.Header.Get("Content-Type"),
	}

	var body []byte
	buf := make([]byte, t.readSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			update.Phase = PhasePartial
			update.Body = body
			onUpdate(update)
		}

		if readErr == nil {
			continue
		}
		if stderrors.Is(readErr, io.EOF) {
			break
		}
		if ctx.Err() != nil {
			onUpdate(Update{Phase: PhaseAborted})
			return errors.Mask(errors.ErrorTransient, errors.ErrRequestAborted, ctx.Err(), "HTTPTransport", "Do")
		}
		return errors.Mask(errors.ErrorTransient, errors.ErrReadResponse, readErr, "HTTPTransport", "Do")
	}

	if body == nil {
		body = []byte{}
	}
	update.Phase = PhaseComplete
	update.Body = body
	onUpdate(update)
	return nil
}

// flattenHeader joins repeated header values with ", ".
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
