// Package metric provides Prometheus metrics for function invocations.
//
// A MetricsRegistry owns a private Prometheus registry holding the invocation
// metrics (Metrics) and the Go runtime collectors. Additional collectors can be
// registered through the MetricsRegistrar interface. Server exposes the
// registry over HTTP, which is mostly useful while a streaming invocation runs.
//
// Basic usage:
//
//	registry := metric.NewMetricsRegistry()
//	c, err := client.New(cfg, client.WithMetricsRegistry(registry))
//	if err != nil {
//	    return err
//	}
//
//	// Caller metrics live next to the invocation metrics.
//	uploads := prometheus.NewCounter(prometheus.CounterOpts{Name: "app_uploads_total"})
//	if err := registry.RegisterCounter("app", "uploads", uploads); err != nil {
//	    return err
//	}
//
//	server := metric.NewServer("127.0.0.1:9464", "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(context.Background())
//
// Recorded series:
//
//	libgo_invocations_total{service,function,outcome}
//	libgo_invocation_duration_seconds{service,function}
//	libgo_stream_events_total{type}
//	libgo_blob_bytes_encoded_total
//	libgo_errors_total{class}
//
// A nil *Metrics is valid; every Record method is a no-op on it, so callers
// that do not care about metrics pass nothing.
package metric
