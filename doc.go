// Package libgo is a client for invoking remotely hosted functions over HTTP.
//
// Functions are addressed by a namespace of the form
// service.function[@version].sub.path. A call resolves the namespace to a
// URL, marshals its parameters to JSON (binary values travel as
// {"_base64": ...} envelopes), sends one POST request and decodes the
// response. Streaming calls read the response as a server-sent event stream
// and dispatch events to listeners until a terminal @response event carries
// the final result.
//
// # Packages
//
//	client     Client and the immutable Call builder; the entry point
//	namespace  namespace grammar: parsing, validation, URL paths
//	params     parameter bags, binary blobs and concurrent marshalling
//	response   content-type aware decoding and server error passthrough
//	stream     incremental event-stream parsing and listener dispatch
//	transport  the HTTP transport reporting partial response bodies
//	config     configuration, layered JSON/YAML loading, env overrides
//	errors     classified errors shared by every package
//	metric     Prometheus metrics and the metrics HTTP endpoint
//
// # Quick start
//
//	c, err := client.New(config.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	res, err := c.Call("utils.reflect[@dev]").Invoke(ctx, map[string]any{"name": "x"})
//	if err != nil {
//		if se, ok := errors.AsServer(err); ok {
//			log.Printf("server said %s (%v)", se.Message, se.Fields)
//		}
//		return err
//	}
//	fmt.Println(res.Body)
//
// The libcall command in cmd/libcall wraps the client for shell use.
package libgo
