package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents transport failures: aborted requests, unreachable hosts
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorDecode represents malformed responses or event payloads
	ErrorDecode
	// ErrorServer represents a non-2xx response from the remote function
	ErrorServer
	// ErrorFatal represents unrecoverable errors
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorDecode:
		return "decode"
	case ErrorServer:
		return "server"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Transport errors
	ErrRequestAborted = errors.New("Request aborted.")
	ErrCouldNotRun    = errors.New("Could not run function.")
	ErrReadResponse   = errors.New("Could not read response")
	ErrStreamEnded    = errors.New("stream ended without a response event")

	// Decoding errors
	ErrInvalidResponseJSON = errors.New("Invalid Response JSON")
	ErrInvalidEventData    = errors.New("invalid event data")

	// Validation errors
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrMixedArguments   = errors.New("Can not send additional arguments with parameters as keywords")
	ErrInvalidHeaders   = errors.New("invalid __headers parameter")
	ErrNotInvocable     = errors.New("namespace does not address a function")
	ErrStreamArguments  = errors.New("streaming requires keyword parameters")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// ServerError is returned when a function responds with a non-2xx status.
// Every field of the server's "error" object other than the message is kept
// in Fields so callers can inspect server diagnostics.
type ServerError struct {
	StatusCode int
	Message    string
	Fields     map[string]any
	Body       any
}

// Error implements the error interface
func (se *ServerError) Error() string {
	return se.Message
}

// Field returns a server-supplied error field.
func (se *ServerError) Field(name string) (any, bool) {
	if se.Fields == nil {
		return nil, false
	}
	v, ok := se.Fields[name]
	return v, ok
}

// FieldNames returns the passthrough field names in sorted order.
func (se *ServerError) FieldNames() []string {
	names := make([]string, 0, len(se.Fields))
	for k := range se.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewServerError builds a ServerError from a decoded response body.
// Object bodies carrying an "error" object supply the message and the
// passthrough fields; string bodies become the message verbatim.
func NewServerError(statusCode int, body any) *ServerError {
	se := &ServerError{
		StatusCode: statusCode,
		Message:    "Unspecified Error",
		Body:       body,
	}

	switch v := body.(type) {
	case map[string]any:
		errObj, ok := v["error"].(map[string]any)
		if !ok {
			return se
		}
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			se.Message = msg
		}
		se.Fields = make(map[string]any, len(errObj))
		for k, val := range errObj {
			if k == "message" {
				continue
			}
			se.Fields[k] = val
		}
	case string:
		se.Message = v
	case nil, []any:
		// keep the generic message
	default:
		se.Message = fmt.Sprint(v)
	}

	return se
}

// IsServer reports whether err carries a ServerError
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// AsServer extracts a ServerError from an error chain
func AsServer(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTransient checks if an error came from the transport layer
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrRequestAborted) ||
		errors.Is(err, ErrCouldNotRun) ||
		errors.Is(err, ErrReadResponse) ||
		errors.Is(err, ErrStreamEnded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	if errors.Is(err, ErrInvalidNamespace) ||
		errors.Is(err, ErrMixedArguments) ||
		errors.Is(err, ErrInvalidHeaders) ||
		errors.Is(err, ErrNotInvocable) ||
		errors.Is(err, ErrStreamArguments) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) {
		return true
	}

	return false
}

// IsDecode checks if an error came from decoding a response or event
func IsDecode(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorDecode
	}

	return errors.Is(err, ErrInvalidResponseJSON) || errors.Is(err, ErrInvalidEventData)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	// Explicit classification wins over pattern matching
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	if IsServer(err) {
		return ErrorServer
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	if IsDecode(err) {
		return ErrorDecode
	}
	if IsTransient(err) {
		return ErrorTransient
	}

	return ErrorFatal
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapDecode wraps an error as a decoding failure with context
func WrapDecode(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorDecode, wrappedErr, component, method, wrappedErr.Error())
}

// Invalid classifies err as invalid while keeping its message untouched.
// Used for validation failures whose text is part of the public contract.
func Invalid(err error, component, method string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorInvalid, err, component, method, "")
}

// Transient classifies err as transient while keeping its message untouched.
func Transient(err error, component, method string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorTransient, err, component, method, "")
}

// Decode classifies err as a decoding failure while keeping its message untouched.
func Decode(err error, component, method string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorDecode, err, component, method, "")
}

// Mask classifies cause under a sentinel. The result reads exactly as the
// sentinel and matches both sentinel and cause with errors.Is.
func Mask(class ErrorClass, sentinel, cause error, component, method string) error {
	if cause == nil {
		return newClassified(class, sentinel, component, method, "")
	}
	return newClassified(class, fmt.Errorf("%w: %w", sentinel, cause), component, method, sentinel.Error())
}
