// Package client invokes remotely hosted functions.
//
// A Client holds a config.Config and a transport. Calls are built step by
// step from a namespace, either as one dotted string or through builder
// methods, and run with Invoke:
//
//	c, err := client.New(cfg)
//	if err != nil {
//		return err
//	}
//
//	res, err := c.Call("svc.fn[@v2]").Invoke(ctx, map[string]any{"name": "x"})
//	res, err = c.Service("svc").Function("fn").Version("v2").Invoke(ctx, 1, 2)
//
// A function name without a version runs the @release version. The @local
// version is sent to localhost on the configured local port.
//
// # Parameters
//
// A single map or struct argument is sent as keyword parameters; any other
// argument list is positional. A keyword object followed by more arguments
// is rejected before the request is sent. Top-level []byte, *params.Blob and
// io.Reader values are sent as {"_base64": ...} envelopes.
//
// Keyword calls may carry reserved parameters:
//
//	__path       extra URL path appended after the function
//	__headers    object merged into the request headers
//	__providers  sent as the X-Authorization-Providers header
//	_stream      switches to streaming; may hold stream listeners
//	_debug       switches to streaming with debug events
//
// # Streaming
//
// A streaming call reads the response as an event stream and dispatches each
// event to its listeners as it arrives. Invoke returns the result carried by
// the terminal @response event:
//
//	res, err := c.Call("svc.fn").
//		WithListeners(stream.Listeners{
//			Stream: map[string]stream.Listener{
//				"progress": func(ev stream.Event) { fmt.Println(ev.Data) },
//			},
//		}).
//		Invoke(ctx, map[string]any{"q": "x"})
//
// # Metrics
//
// WithMetricsRegistry records invocation, stream and error metrics in a
// metric.MetricsRegistry. Applications register their own collectors on the
// same registry through metric.MetricsRegistrar, so one metric.Server exposes
// both.
//
// # Errors
//
// Validation failures are returned before any I/O. Everything else is
// returned once from Invoke and classified with the errors package: transport
// failures are transient, bad response JSON is a decode error and non-2xx
// responses are *errors.ServerError values carrying the server's fields.
package client
