package params

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/metric"
)

// Marshaller converts a Bag into its JSON-safe wire structure, replacing
// every top-level binary value with an Envelope.
type Marshaller struct {
	metrics *metric.Metrics
}

// Option configures a Marshaller.
type Option func(*Marshaller)

// WithMetrics records encoded byte counts.
func WithMetrics(m *metric.Metrics) Option {
	return func(ms *Marshaller) {
		ms.metrics = m
	}
}

// NewMarshaller creates a Marshaller.
func NewMarshaller(opts ...Option) *Marshaller {
	m := &Marshaller{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Marshal converts bag. Binary values are converted concurrently; the first
// conversion error is returned and the rest are dropped. Positional bags
// produce []any of the same length, keyword bags map[string]any with the same keys.
func (m *Marshaller) Marshal(ctx context.Context, bag Bag) (any, error) {
	if bag.IsKeywords() {
		return m.marshalFields(ctx, bag.fields)
	}
	return m.marshalValues(ctx, bag.values)
}

// MarshalAsync runs Marshal in the background and calls done exactly once.
func (m *Marshaller) MarshalAsync(ctx context.Context, bag Bag, done func(any, error)) {
	var once sync.Once
	go func() {
		out, err := m.Marshal(ctx, bag)
		once.Do(func() { done(out, err) })
	}()
}

func (m *Marshaller) marshalValues(ctx context.Context, values []any) (any, error) {
	out := make([]any, len(values))
	g, gctx := errgroup.WithContext(ctx)

	for i, v := range values {
		if !IsBinary(v) {
			out[i] = v
			continue
		}
		g.Go(func() error {
			env, err := m.encode(gctx, v)
			if err != nil {
				return errors.WrapInvalid(err, "Marshaller", "Marshal",
					fmt.Sprintf("read binary parameter %d", i))
			}
			out[i] = env
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Marshaller) marshalFields(ctx context.Context, fields map[string]any) (any, error) {
	out := make(map[string]any, len(fields))
	var binary []string
	for k, v := range fields {
		if IsBinary(v) {
			binary = append(binary, k)
			continue
		}
		out[k] = v
	}

	// Goroutines only write their own slot; out is filled after Wait.
	envs := make([]Envelope, len(binary))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range binary {
		g.Go(func() error {
			env, err := m.encode(gctx, fields[k])
			if err != nil {
				return errors.WrapInvalid(err, "Marshaller", "Marshal",
					fmt.Sprintf("read binary parameter %q", k))
			}
			envs[i] = env
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, k := range binary {
		out[k] = envs[i]
	}
	return out, nil
}

func (m *Marshaller) encode(ctx context.Context, v any) (Envelope, error) {
	var (
		data []byte
		err  error
	)

	switch b := v.(type) {
	case []byte:
		data = b
	case *Blob:
		data, err = b.ReadAll(ctx)
	case io.Reader:
		data, err = io.ReadAll(b)
	}
	if err != nil {
		return Envelope{}, err
	}

	m.metrics.RecordBlobBytes(len(data))
	return Encode(data), nil
}
