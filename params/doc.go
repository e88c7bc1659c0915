// Package params prepares invocation arguments for the wire.
//
// Arguments are collected in a Bag, either positional or keyword. FromArgs
// applies the calling convention: a lone plain object is treated as keyword
// parameters, and a plain object followed by more arguments is rejected with
// "Can not send additional arguments with parameters as keywords".
//
// Struct arguments are read field by field under their encoding/json names,
// so binary struct fields are treated like binary map values.
//
// Binary values ([]byte, *Blob, io.Reader) are not valid JSON, so the
// Marshaller replaces each top-level binary value with an Envelope:
//
//	{"_base64": "<standard base64>"}
//
// Nested values are passed through untouched; only top-level values are
// inspected. Conversions run concurrently and the first failure wins:
//
//	bag, err := params.FromArgs(map[string]any{
//	    "name":  "report.pdf",
//	    "file":  params.BlobFromFile("/tmp/report.pdf", "application/pdf"),
//	})
//	if err != nil {
//	    return err
//	}
//	wire, err := params.NewMarshaller().Marshal(ctx, bag)
package params
