package params

import (
	"encoding/base64"
)

// EnvelopeKey is the JSON field carrying base64 content.
const EnvelopeKey = "_base64"

// Envelope is the wire form of a binary value.
type Envelope struct {
	Base64 string `json:"_base64"`
}

// Encode wraps data in an Envelope using standard base64.
func Encode(data []byte) Envelope {
	return Envelope{Base64: base64.StdEncoding.EncodeToString(data)}
}

// Bytes decodes the envelope content.
func (e Envelope) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Base64)
}

// Unwrap extracts the payload of an envelope found in a decoded JSON value.
// ok is false when v is not an object with a string "_base64" field.
func Unwrap(v any) (data []byte, ok bool, err error) {
	switch e := v.(type) {
	case Envelope:
		data, err = e.Bytes()
		return data, true, err
	case map[string]any:
		s, isString := e[EnvelopeKey].(string)
		if !isString {
			return nil, false, nil
		}
		data, err = base64.StdEncoding.DecodeString(s)
		return data, true, err
	default:
		return nil, false, nil
	}
}
