package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acode/lib-go/config"
	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/metric"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/response"
	"github.com/acode/lib-go/stream"
	"github.com/acode/lib-go/transport"
)

// captured is the last request seen by a test server.
type captured struct {
	path   string
	header http.Header
	body   map[string]any
	raw    []byte
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*config.Config, *captured, *int32) {
	t.Helper()
	got := &captured{}
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		got.path = r.URL.Path
		got.header = r.Header.Clone()
		got.raw, _ = io.ReadAll(r.Body)
		got.body = nil
		_ = json.Unmarshal(got.raw, &got.body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	return cfg, got, &calls
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newClient(t *testing.T, cfg *config.Config, opts ...Option) *Client {
	t.Helper()
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestInvoke_KeywordParameters(t *testing.T) {
	cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `{"greeting":"hello x"}`))
	cfg.Token = "tok"

	res, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)

	assert.Equal(t, "/svc/fn@release/", got.path)
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "true", got.header.Get("X-Faaslang"))
	assert.Equal(t, "Bearer tok", got.header.Get("Authorization"))
	assert.Empty(t, got.header.Get("X-Authorization-Keys"))
	assert.Empty(t, got.header.Get("X-Convert-Strings"))
	assert.Equal(t, map[string]any{"name": "x"}, got.body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, map[string]any{"greeting": "hello x"}, res.Body)
	assert.Equal(t, "application/json", res.Headers["Content-Type"])
	assert.NotEmpty(t, res.InvocationID)
}

func TestInvoke_PositionalParameters(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"none", nil, `[]`},
		{"scalars", []any{1, "a", true, nil}, `[1,"a",true,null]`},
		{"array first", []any{[]any{1, 2}, 3}, `[[1,2],3]`},
		{"binary", []any{[]byte("hi"), 1}, `[{"_base64":"aGk="},1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `null`))
			_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), tt.args...)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got.raw))
		})
	}
}

func TestInvoke_BinaryKeywordParameter(t *testing.T) {
	cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))

	blob := params.BlobFromBytes([]byte("file contents"), "text/plain")
	_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), map[string]any{
		"file": blob,
		"n":    2,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":{"_base64":"ZmlsZSBjb250ZW50cw=="},"n":2}`, string(got.raw))
}

func TestInvoke_KeywordBag(t *testing.T) {
	cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))

	_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), params.Keywords(map[string]any{"a": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got.raw))
}

func TestInvoke_MixedArgumentsRejectedBeforeIO(t *testing.T) {
	cfg, _, calls := newTestServer(t, jsonHandler(http.StatusOK, `true`))

	res, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), map[string]any{"a": 1}, 2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, errors.ErrMixedArguments.Error(), err.Error())
	assert.NotNil(t, res)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestInvoke_ServerError(t *testing.T) {
	cfg, _, _ := newTestServer(t, jsonHandler(http.StatusNotFound, `{"error":{"message":"not found","code":7}}`))

	res, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background())
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())

	se, ok := errors.AsServer(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	code, ok := se.Field("code")
	require.True(t, ok)
	assert.Equal(t, float64(7), code)

	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json", res.Headers["Content-Type"])
}

func TestInvoke_TextServerError(t *testing.T) {
	cfg, _, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsServer(err))
	assert.Equal(t, "upstream exploded", err.Error())
}

func TestInvoke_BinaryResponse(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	cfg, _, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})

	res, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, png, res.Body)
	assert.Equal(t, "image/png", res.ContentType)
}

func TestInvoke_InvalidResponseJSON(t *testing.T) {
	cfg, _, _ := newTestServer(t, jsonHandler(http.StatusOK, `{"broken`))

	res, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDecode(err))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidResponseJSON))
	assert.Equal(t, "Invalid Response JSON", err.Error())
	assert.NotNil(t, res.Headers)
}

func TestInvoke_ReservedParameters(t *testing.T) {
	cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))

	_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), map[string]any{
		"__path":      "/a/b",
		"__headers":   map[string]any{"X-Custom": "1", "X-Count": 2},
		"__providers": map[string]any{"slack": "abc"},
		"q":           "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "/svc/fn@release/a/b/", got.path)
	assert.Equal(t, "1", got.header.Get("X-Custom"))
	assert.Equal(t, "2", got.header.Get("X-Count"))
	assert.JSONEq(t, `{"slack":"abc"}`, got.header.Get("X-Authorization-Providers"))
	assert.Equal(t, map[string]any{"q": "x"}, got.body)
}

func TestInvoke_InvalidReservedParameters(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		sentinel error
	}{
		{"headers string", map[string]any{"__headers": "X-A: 1"}, errors.ErrInvalidHeaders},
		{"headers array", map[string]any{"__headers": []any{"a"}}, errors.ErrInvalidHeaders},
		{"path number", map[string]any{"__path": 7}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, calls := newTestServer(t, jsonHandler(http.StatusOK, `true`))
			_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), tt.params)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			if tt.sentinel != nil {
				assert.True(t, stderrors.Is(err, tt.sentinel))
			}
			assert.Equal(t, int32(0), atomic.LoadInt32(calls))
		})
	}
}

func TestInvoke_NamespaceErrors(t *testing.T) {
	cfg, _, calls := newTestServer(t, jsonHandler(http.StatusOK, `true`))
	c := newClient(t, cfg)

	tests := []struct {
		name     string
		call     *Call
		sentinel error
	}{
		{"bad name", c.Call("svc.f n"), errors.ErrInvalidNamespace},
		{"misplaced version", c.Call("svc.fn.x@v1"), errors.ErrInvalidNamespace},
		{"bad version", c.Service("svc").Function("fn").Version("v 2"), errors.ErrInvalidNamespace},
		{"dotted service", c.Service("svc.fn"), errors.ErrInvalidNamespace},
		{"service only", c.Service("svc"), errors.ErrNotInvocable},
		{"root", c.Call(""), errors.ErrNotInvocable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call.Invoke(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.True(t, stderrors.Is(err, tt.sentinel))
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestCall_BuilderIsImmutable(t *testing.T) {
	c := newClient(t, nil)
	base := c.Service("svc").Function("fn")
	v2 := base.Version("v2")
	sub := v2.Sub("a", "b")

	assert.Equal(t, []string{"svc", "fn"}, base.Path().Segments())
	assert.Equal(t, []string{"svc", "fn", "@v2"}, v2.Path().Segments())
	assert.Equal(t, []string{"svc", "fn", "@v2", "a", "b"}, sub.Path().Segments())

	defaulted := base.Sub("a")
	assert.Equal(t, []string{"svc", "fn", "@release", "a"}, defaulted.Path().Segments())

	bad := base.Sub("a b")
	require.Error(t, bad.Err())
	assert.Error(t, bad.Sub("c").Err())
	assert.NoError(t, base.Err())
}

// urlOf runs a call through a capturing transport and returns the request.
func urlOf(t *testing.T, c *Client, call func(*Client) *Call, args ...any) *transport.Request {
	t.Helper()
	var got *transport.Request
	c.transport = transport.Func(func(_ context.Context, req *transport.Request, onUpdate func(transport.Update)) error {
		got = req
		onUpdate(transport.Update{
			Phase:       transport.PhaseComplete,
			StatusCode:  http.StatusOK,
			Header:      map[string]string{"Content-Type": "application/json"},
			ContentType: "application/json",
			Body:        []byte(`null`),
		})
		return nil
	})
	_, err := call(c).Invoke(context.Background(), args...)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestInvoke_URL(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]any
		call     func(*Client) *Call
		want     string
	}{
		{
			name: "default host",
			call: func(c *Client) *Call { return c.Call("svc.fn") },
			want: "https://functions.lib.id/svc/fn@release/",
		},
		{
			name: "explicit version and sub-path",
			call: func(c *Client) *Call { return c.Call("svc.fn[@v2].a.b") },
			want: "https://functions.lib.id/svc/fn@v2/a/b/",
		},
		{
			name: "root function",
			call: func(c *Client) *Call { return c.Call("").Function("fn") },
			want: "https://functions.lib.id/fn/",
		},
		{
			name:     "custom port and path",
			override: map[string]any{"host": "gw.internal", "port": 8080, "path": "/api"},
			call:     func(c *Client) *Call { return c.Call("svc.fn") },
			want:     "http://gw.internal:8080/api/svc/fn@release/",
		},
		{
			name:     "port 80",
			override: map[string]any{"port": "80"},
			call:     func(c *Client) *Call { return c.Call("svc.fn") },
			want:     "http://functions.lib.id/svc/fn@release/",
		},
		{
			name:     "non-numeric port",
			override: map[string]any{"port": "http"},
			call:     func(c *Client) *Call { return c.Call("svc.fn") },
			want:     "http://functions.lib.id/svc/fn@release/",
		},
		{
			name: "local version",
			call: func(c *Client) *Call { return c.Call("svc.fn[@local].x") },
			want: "http://localhost:8170/svc/fn/x/",
		},
		{
			name:     "local version custom port",
			override: map[string]any{"local_port": 9000},
			call:     func(c *Client) *Call { return c.Call("svc.fn[@local]") },
			want:     "http://localhost:9000/svc/fn/",
		},
		{
			name:     "background",
			override: map[string]any{"background": true},
			call:     func(c *Client) *Call { return c.Call("svc.fn") },
			want:     "https://functions.lib.id/svc/fn@release/:bg",
		},
		{
			name:     "background value",
			override: map[string]any{"background": true, "background_value": "info & more"},
			call:     func(c *Client) *Call { return c.Call("svc.fn") },
			want:     "https://functions.lib.id/svc/fn@release/:bg=info%20%26%20more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, nil)
			if tt.override != nil {
				var err error
				c, err = c.With(tt.override)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, urlOf(t, c, tt.call).URL)
		})
	}
}

func TestInvoke_Headers(t *testing.T) {
	c, err := newClient(t, nil).With(map[string]any{
		"token":   "tok",
		"keys":    map[string]any{"root": "r"},
		"convert": true,
	})
	require.NoError(t, err)

	req := urlOf(t, c, func(c *Client) *Call { return c.Call("svc.fn") })
	assert.Equal(t, "Bearer tok", req.Header["Authorization"])
	assert.JSONEq(t, `{"root":"r"}`, req.Header["X-Authorization-Keys"])
	assert.Equal(t, "true", req.Header["X-Convert-Strings"])
	assert.Equal(t, "true", req.Header["X-Faaslang"])

	req = urlOf(t, c, func(c *Client) *Call {
		return c.Service("svc").WithKeys(map[string]string{"svc": "s"}).Function("fn")
	})
	assert.JSONEq(t, `{"svc":"s"}`, req.Header["X-Authorization-Keys"])
}

func TestClient_With(t *testing.T) {
	root := newClient(t, nil)

	next, err := root.With(map[string]any{"host": "other.example.com", "token": "t"})
	require.NoError(t, err)
	assert.Equal(t, "other.example.com", next.Config().Host)
	assert.Equal(t, "t", next.Config().Token)
	assert.Equal(t, config.DefaultHost, root.Config().Host)

	_, err = root.With(map[string]any{"path": "no-slash"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Host = ""
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestInvoke_TransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	srv.Close()

	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	cfg := config.DefaultConfig()
	cfg.Host, cfg.Port = host, port

	m := metric.NewMetrics()
	res, err := newClient(t, cfg, WithMetrics(m)).Call("svc.fn").Invoke(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Could not run function.", err.Error())
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, map[string]string{}, res.Headers)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Invocations.WithLabelValues("svc", "fn", metric.OutcomeError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("transient")))
}

func TestInvoke_Aborted(t *testing.T) {
	cfg, _, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))
	m := metric.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, cfg, WithMetrics(m)).Call("svc.fn").Invoke(ctx)
	require.Error(t, err)
	assert.Equal(t, "Request aborted.", err.Error())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Invocations.WithLabelValues("svc", "fn", metric.OutcomeAborted)))
}

func TestInvoke_MetricsAndLogging(t *testing.T) {
	cfg, _, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	registry := metric.NewMetricsRegistry()

	c := newClient(t, cfg, WithLogger(logger), WithMetricsRegistry(registry))
	res, err := c.Call("svc.fn").Invoke(context.Background())
	require.NoError(t, err)

	m := registry.CoreMetrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Invocations.WithLabelValues("svc", "fn", metric.OutcomeSuccess)))
	assert.Contains(t, buf.String(), fmt.Sprintf(`"invocation_id":%q`, res.InvocationID))
	assert.Contains(t, buf.String(), `"path":"svc.fn[@release]"`)
}

func writeEvents(w http.ResponseWriter, records ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, r := range records {
		_, _ = w.Write([]byte(r))
		flusher.Flush()
	}
}

func TestInvoke_Streaming(t *testing.T) {
	cfg, got, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvents(w,
			"event: progress\ndata: {\"pct\":",
			"50}\n\nevent: progress\ndata: {\"pct\":100}\n\n",
			"event: @response\ndata: {\"statusCode\":200,\"headers\":{\"Content-Type\":\"application/json\"},\"body\":\"{\\\"done\\\":true}\"}\n\n",
		)
	})

	var progress []stream.Event
	var responded int32
	listeners := stream.Listeners{
		Stream: map[string]stream.Listener{
			"progress": func(ev stream.Event) { progress = append(progress, ev) },
		},
		Response: func(_ *response.Result, _ error) { atomic.AddInt32(&responded, 1) },
	}

	res, err := newClient(t, cfg).Call("svc.fn").WithListeners(listeners).
		Invoke(context.Background(), map[string]any{"q": "x"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"q": "x", "_stream": map[string]any{"progress": true}}, got.body)
	require.Len(t, progress, 2)
	assert.Equal(t, map[string]any{"pct": float64(50)}, progress[0].Data)
	assert.Equal(t, 0, progress[0].Index)
	assert.Equal(t, 1, progress[1].Index)

	assert.Equal(t, int32(1), atomic.LoadInt32(&responded))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, map[string]any{"done": true}, res.Body)
}

func TestInvoke_StreamParameter(t *testing.T) {
	cfg, got, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvents(w,
			"event: log\ndata: \"hi\"\n\n",
			"event: @response\ndata: {\"statusCode\":500,\"headers\":{\"Content-Type\":\"application/json\"},\"body\":\"{\\\"error\\\":{\\\"message\\\":\\\"boom\\\"}}\"}\n\n",
		)
	})

	var debugTypes []string
	_, err := newClient(t, cfg).Call("svc.fn").Invoke(context.Background(), map[string]any{
		"_stream": "",
		"_debug": map[string]stream.Listener{
			stream.Wildcard: func(ev stream.Event) { debugTypes = append(debugTypes, ev.Type) },
		},
	})
	require.Error(t, err)
	assert.True(t, errors.IsServer(err))
	assert.Equal(t, "boom", err.Error())

	assert.Equal(t, map[string]any{"_stream": "", "_debug": map[string]any{"*": true}}, got.body)
	assert.Equal(t, []string{"log"}, debugTypes)
}

func TestInvoke_StreamSubscriptionData(t *testing.T) {
	progress := map[string]stream.Listener{"progress": func(stream.Event) {}}

	tests := []struct {
		name      string
		listeners *stream.Listeners
		params    map[string]any
		want      map[string]any
	}{
		{
			name:   "object passed through",
			params: map[string]any{"_stream": map[string]any{"ping": true}},
			want:   map[string]any{"_stream": map[string]any{"ping": true}},
		},
		{
			name:      "bool map merged with listeners",
			listeners: &stream.Listeners{Stream: progress},
			params:    map[string]any{"_stream": map[string]bool{"ping": true}},
			want:      map[string]any{"_stream": map[string]any{"ping": true, "progress": true}},
		},
		{
			name:   "debug object",
			params: map[string]any{"_debug": map[string]any{"log": true}, "q": "x"},
			want: map[string]any{
				"_stream": "",
				"_debug":  map[string]any{"log": true},
				"q":       "x",
			},
		},
		{
			name:   "scalar kept without listeners",
			params: map[string]any{"_stream": true},
			want:   map[string]any{"_stream": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `true`))
			call := newClient(t, cfg).Call("svc.fn")
			if tt.listeners != nil {
				call = call.WithListeners(*tt.listeners)
			}

			_, err := call.Invoke(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.body)
		})
	}
}

func TestInvoke_StreamingRejectsPositional(t *testing.T) {
	cfg, _, calls := newTestServer(t, jsonHandler(http.StatusOK, `true`))
	call := newClient(t, cfg).Call("svc.fn").WithListeners(stream.Listeners{})

	_, err := call.Invoke(context.Background(), 1, 2)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStreamArguments))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestInvoke_StreamingNoArgs(t *testing.T) {
	cfg, got, _ := newTestServer(t, jsonHandler(http.StatusOK, `{"plain":true}`))

	res, err := newClient(t, cfg).Call("svc.fn").WithListeners(stream.Listeners{}).Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_stream": ""}, got.body)
	assert.Equal(t, map[string]any{"plain": true}, res.Body)
}

func TestInvoke_StreamEndedWithoutResponse(t *testing.T) {
	cfg, _, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvents(w, "event: progress\ndata: 1\n\n")
	})

	res, err := newClient(t, cfg).Call("svc.fn").WithListeners(stream.Listeners{}).Invoke(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStreamEnded))
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestInvoke_StreamMalformedEvent(t *testing.T) {
	cfg, _, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvents(w,
			"event: progress\ndata: {not json\n\n",
			"event: progress\ndata: 2\n\n",
		)
	})

	var seen int
	_, err := newClient(t, cfg).Call("svc.fn").WithListeners(stream.Listeners{
		Stream: map[string]stream.Listener{"progress": func(stream.Event) { seen++ }},
	}).Invoke(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDecode(err))
	assert.Equal(t, 0, seen)
}

func TestEncodeURIComponent(t *testing.T) {
	tests := map[string]string{
		"plain":       "plain",
		"a b":         "a%20b",
		"a+b":         "a%2Bb",
		"x/y?z=1&w":   "x%2Fy%3Fz%3D1%26w",
		"-_.!~*'()":   "-_.!~*'()",
		"café":        "caf%C3%A9",
		"@release:bg": "%40release%3Abg",
	}
	for in, want := range tests {
		assert.Equal(t, want, encodeURIComponent(in), in)
	}
}
