// Package response decodes the result of a function invocation.
//
// Textual responses (application/json and text/*) are read as text, JSON is
// parsed, and non-2xx statuses become *errors.ServerError values carrying the
// server's error fields. Every other content type is returned verbatim as
// bytes without looking at the status.
package response

import (
	"encoding/json"
	"mime"
	"strings"

	"github.com/acode/lib-go/errors"
)

// Content types with special handling.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Result is a decoded invocation response.
//
// Body holds the parsed JSON value for application/json, a string for text/*,
// and []byte for anything else.
type Result struct {
	StatusCode  int
	Headers     map[string]string
	ContentType string
	Body        any

	// InvocationID identifies the call that produced the result. Set by the client.
	InvocationID string
}

// Decode interprets a response. The returned Result is never nil, so headers
// are available to the caller even when an error is returned.
func Decode(statusCode int, headers map[string]string, body []byte) (*Result, error) {
	res := &Result{
		StatusCode:  statusCode,
		Headers:     copyHeaders(headers),
		ContentType: MediaType(lookup(headers, "Content-Type")),
	}

	if !IsTextual(res.ContentType) {
		res.Body = body
		return res, nil
	}

	var value any = string(body)
	if res.ContentType == ContentTypeJSON {
		if err := json.Unmarshal(body, &value); err != nil {
			return res, errors.Decode(errors.ErrInvalidResponseJSON, "response", "Decode")
		}
	}
	res.Body = value

	if statusCode/100 != 2 {
		return res, errors.NewServerError(statusCode, value)
	}
	return res, nil
}

// IsTextual reports whether a media type is decoded as text.
func IsTextual(mediaType string) bool {
	return mediaType == ContentTypeJSON || strings.HasPrefix(mediaType, "text/")
}

// MediaType strips parameters from a Content-Type value and lower-cases it.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Header returns a response header by case-insensitive name.
func (r *Result) Header(name string) string {
	return lookup(r.Headers, name)
}

// Bytes returns the body of a binary response.
func (r *Result) Bytes() ([]byte, bool) {
	b, ok := r.Body.([]byte)
	return b, ok
}

// Text returns the body of a text/* response.
func (r *Result) Text() (string, bool) {
	s, ok := r.Body.(string)
	return s, ok
}

// Into re-encodes a JSON body into v.
func (r *Result) Into(v any) error {
	raw, err := json.Marshal(r.Body)
	if err != nil {
		return errors.WrapDecode(err, "Result", "Into", "encode body")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.WrapDecode(err, "Result", "Into", "decode body")
	}
	return nil
}

func lookup(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func copyHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}
