package client

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/acode/lib-go/config"
	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/metric"
	"github.com/acode/lib-go/namespace"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/stream"
	"github.com/acode/lib-go/transport"
)

// Client invokes remote functions with one configuration. A Client is safe
// for concurrent use; every builder step returns a new value.
type Client struct {
	cfg        *config.Config
	transport  transport.Transport
	marshaller *params.Marshaller
	metrics    *metric.Metrics
	logger     *slog.Logger
	streamOpts []stream.Option
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records invocation metrics. A nil value disables them.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithMetricsRegistry records invocation metrics into the registry's core metrics.
func WithMetricsRegistry(r *metric.MetricsRegistry) Option {
	return func(c *Client) {
		c.metrics = r.CoreMetrics()
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithStreamOptions passes options to every stream protocol the client creates.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(c *Client) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// New creates a Client. A nil cfg means config.DefaultConfig().
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "New", "validate config")
	}

	c := &Client{
		cfg:    cfg.Clone(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(transport.WithTimeout(c.cfg.Timeout))
	}
	c.marshaller = params.NewMarshaller(params.WithMetrics(c.metrics))
	return c, nil
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() *config.Config {
	return c.cfg.Clone()
}

// With returns a Client whose configuration is override merged onto this
// one. Keys are the JSON names of config.Config fields; the override wins.
func (c *Client) With(override map[string]any) (*Client, error) {
	merged, err := config.Merge(c.cfg, override)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "With", "validate config")
	}

	next := *c
	next.cfg = merged
	return &next, nil
}

// Call starts an invocation from a namespace string such as "svc.fn",
// "svc.fn[@v2]" or "svc.fn[@v2].sub".
func (c *Client) Call(name string) *Call {
	path, err := namespace.Extend(namespace.New(), name)
	return &Call{client: c, path: path, err: err}
}

// Service starts an invocation at a single service name.
func (c *Client) Service(name string) *Call {
	if strings.Contains(name, ".") {
		return &Call{client: c, err: errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrInvalidNamespace, name),
			"Client", "Service", "service name must not contain dots")}
	}
	return c.Call(name)
}
