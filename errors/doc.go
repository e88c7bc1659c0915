// Package errors provides the error taxonomy shared by every lib-go package.
//
// # Overview
//
// Failures of a function invocation fall into five classes:
//
//   - Invalid: bad namespace segments, ambiguous positional/keyword arguments,
//     a non-object __headers parameter, bad configuration. Raised synchronously,
//     before any network I/O.
//   - Transient: the transport failed (request aborted, zero-status "could not
//     run" condition, unreadable response body).
//   - Decode: the server answered with malformed JSON, or a stream event carried
//     a malformed payload.
//   - Server: the function answered with a non-2xx status. The resulting
//     *ServerError carries the server's message and every other field of the
//     server's "error" object.
//   - Fatal: anything else.
//
// None of the classes is retried by the library.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Four wrapper functions attach a class while wrapping:
//
//	errors.WrapTransient(err, "HTTPTransport", "Do", "send request")
//	errors.WrapInvalid(err, "Loader", "Load", "read layer")
//	errors.WrapDecode(err, "Protocol", "Process", "parse event data")
//	errors.WrapFatal(err, "Client", "Invoke", "marshal body")
//
// When the message itself is part of the wire contract ("Request aborted.",
// "Invalid Response JSON", grammar errors) use Invalid, Transient or Decode,
// which classify without rewording.
//
// # Server Errors
//
// A 404 response with body {"error":{"message":"not found","code":7}} yields:
//
//	se, _ := errors.AsServer(err)
//	se.Message          // "not found"
//	se.Field("code")    // float64(7), true
//
// # Integration with errors.As/Is
//
// ClassifiedError implements Unwrap, so the sentinel values survive wrapping:
//
//	if errors.Is(err, errors.ErrRequestAborted) {
//	    // the caller cancelled the context
//	}
package errors
