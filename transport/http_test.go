package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acode/lib-go/errors"
)

func TestHTTPTransport_Complete(t *testing.T) {
	var gotMethod, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var updates []Update
	err := NewHTTPTransport().Do(context.Background(), &Request{
		URL:    srv.URL + "/svc/fn/",
		Header: map[string]string{"Authorization": "Bearer tok"},
		Body:   []byte(`{"a":1}`),
	}, func(u Update) {
		u.Body = append([]byte(nil), u.Body...)
		updates = append(updates, u)
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, `{"a":1}`, gotBody)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, http.StatusCreated, last.StatusCode)
	assert.Equal(t, "application/json", last.ContentType)
	assert.Equal(t, "a, b", last.Header["X-Multi"])
	assert.Equal(t, `{"ok":true}`, string(last.Body))
}

func TestHTTPTransport_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var updates []Update
	err := NewHTTPTransport().Do(context.Background(), &Request{URL: srv.URL}, func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, PhaseComplete, updates[0].Phase)
	assert.NotNil(t, updates[0].Body)
	assert.Empty(t, updates[0].Body)
}

func TestHTTPTransport_PartialUpdatesGrow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			_, _ = fmt.Fprintf(w, "data: %d\n\n", i)
			flusher.Flush()
			time.Sleep(10 * time.Millisecond)
		}
	}))
	defer srv.Close()

	var snapshots []string
	err := NewHTTPTransport(WithReadSize(4)).Do(context.Background(), &Request{URL: srv.URL}, func(u Update) {
		snapshots = append(snapshots, string(u.Body))
	})
	require.NoError(t, err)

	require.Greater(t, len(snapshots), 2)
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, len(snapshots[i]), len(snapshots[i-1]))
		assert.Equal(t, snapshots[i-1], snapshots[i][:len(snapshots[i-1])])
	}
	assert.Equal(t, "data: 0\n\ndata: 1\n\ndata: 2\n\n", snapshots[len(snapshots)-1])
}

func TestHTTPTransport_CouldNotRun(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var updates []Update
	err := NewHTTPTransport().Do(context.Background(), &Request{URL: url}, func(u Update) {
		updates = append(updates, u)
	})
	require.Error(t, err)
	assert.Equal(t, "Could not run function.", err.Error())
	assert.True(t, stderrors.Is(err, errors.ErrCouldNotRun))
	assert.True(t, errors.IsTransient(err))
	assert.Empty(t, updates)
}

func TestHTTPTransport_AbortMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: 1\n\n"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	var phases []Phase
	err := NewHTTPTransport().Do(ctx, &Request{URL: srv.URL}, func(u Update) {
		phases = append(phases, u.Phase)
		if u.Phase == PhasePartial {
			cancel()
		}
	})
	require.Error(t, err)
	assert.Equal(t, "Request aborted.", err.Error())
	assert.True(t, stderrors.Is(err, errors.ErrRequestAborted))
	assert.True(t, stderrors.Is(err, context.Canceled))
	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseAborted, phases[len(phases)-1])
}

func TestHTTPTransport_CanceledBeforeSend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var phases []Phase
	err := NewHTTPTransport().Do(ctx, &Request{URL: srv.URL}, func(u Update) {
		phases = append(phases, u.Phase)
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRequestAborted))
	assert.Equal(t, []Phase{PhaseAborted}, phases)
}

func TestHTTPTransport_BadURL(t *testing.T) {
	err := NewHTTPTransport().Do(context.Background(), &Request{URL: "://bad"}, func(Update) {})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestHTTPTransport_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := NewHTTPTransport(WithTimeout(20*time.Millisecond)).Do(context.Background(), &Request{URL: srv.URL}, func(Update) {})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestHTTPTransport_TimeoutLeavesClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{"shared client", []Option{WithHTTPClient(shared), WithTimeout(time.Second)}, time.Second},
		{"timeout first", []Option{WithTimeout(time.Second), WithHTTPClient(shared)}, time.Second},
		{"no timeout", []Option{WithHTTPClient(shared)}, time.Minute},
		{"nil client", []Option{WithHTTPClient(nil), WithTimeout(time.Second)}, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewHTTPTransport(tt.opts...)
			require.NotNil(t, tr.client)
			assert.Equal(t, tt.want, tr.client.Timeout)
			assert.Equal(t, time.Minute, shared.Timeout)
		})
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "aborted", PhaseAborted.String())
	assert.Equal(t, "partial", PhasePartial.String())
	assert.Equal(t, "complete", PhaseComplete.String())
	assert.Equal(t, "unknown", Phase(9).String())
}

func TestFunc(t *testing.T) {
	var called bool
	var tr Transport = Func(func(_ context.Context, req *Request, onUpdate func(Update)) error {
		called = true
		onUpdate(Update{Phase: PhaseComplete, StatusCode: 200, Body: req.Body})
		return nil
	})

	var got Update
	require.NoError(t, tr.Do(context.Background(), &Request{Body: []byte("x")}, func(u Update) { got = u }))
	assert.True(t, called)
	assert.Equal(t, []byte("x"), got.Body)
}
