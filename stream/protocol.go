package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/metric"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/pkg/timestamp"
	"github.com/acode/lib-go/response"
)

const recordDelimiter = "\n\n"

// Protocol incrementally parses an event stream and dispatches events to
// listeners. A Protocol serves one invocation and is not safe for concurrent use.
type Protocol struct {
	listeners Listeners
	buffer    string
	logs      map[string][]Event
	responded bool

	now     func() time.Time
	metrics *metric.Metrics
	logger  *slog.Logger
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithClock overrides the wall clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) {
		p.now = now
	}
}

// WithMetrics counts dispatched events.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Protocol) {
		p.metrics = m
	}
}

// WithLogger sets the logger for dispatch tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Protocol) {
		p.logger = logger
	}
}

// NewProtocol creates a Protocol dispatching to listeners.
func NewProtocol(listeners Listeners, opts ...Option) *Protocol {
	p := &Protocol{
		listeners: listeners,
		logs:      make(map[string][]Event),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process appends chunk to the carry-over buffer and dispatches every record
// completed by it, in buffer order. A trailing partial record is kept for the
// next call.
//
// A record whose data is not valid JSON stops processing and is reported as a
// decode error; records after it stay buffered.
func (p *Protocol) Process(chunk string) error {
	buf := strings.ReplaceAll(p.buffer+chunk, "\r\n", "\n")
	records := strings.Split(buf, recordDelimiter)
	p.buffer = records[len(records)-1]

	complete := records[:len(records)-1]
	for i, record := range complete {
		if err := p.processRecord(record); err != nil {
			rest := append(complete[i+1:len(complete):len(complete)], p.buffer)
			p.buffer = strings.Join(rest, recordDelimiter)
			return err
		}
	}
	return nil
}

func (p *Protocol) processRecord(record string) error {
	var (
		id        *string
		eventType string
		data      []string
		seenData  bool
	)

	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			if !seenData && eventType == "" {
				eventType = value
			}
		case "data":
			seenData = true
			data = append(data, value)
		case "id":
			v := value
			id = &v
		}
	}

	if !seenData {
		return nil
	}
	if eventType == "" {
		eventType = DefaultEventType
	}

	var payload any
	if err := json.Unmarshal([]byte(strings.Join(data, "\n")), &payload); err != nil {
		return errors.WrapDecode(fmt.Errorf("%w: %v", errors.ErrInvalidEventData, err),
			"Protocol", "Process", fmt.Sprintf("parse %q event", eventType))
	}

	idValue := ""
	if id != nil {
		idValue = *id
	}

	ev := Event{
		ID:        id,
		Type:      eventType,
		Data:      payload,
		Timestamp: timestamp.ForEventID(idValue, p.now),
		Index:     len(p.logs[eventType]),
	}
	p.logs[eventType] = append(p.logs[eventType], ev)

	p.dispatch(ev)
	return nil
}

func (p *Protocol) dispatch(ev Event) {
	p.metrics.RecordStreamEvent(ev.Type)
	p.logger.Debug("Dispatching stream event", "type", ev.Type, "index", ev.Index)

	if l := p.listeners.Stream[ev.Type]; l != nil {
		l(ev)
	}
	if !strings.HasPrefix(ev.Type, "@") {
		if l := p.listeners.Stream[Wildcard]; l != nil {
			l(ev)
		}
	}
	if l := p.listeners.Debug[ev.Type]; l != nil {
		l(ev)
	}
	if ev.Type != ResponseEvent {
		if l := p.listeners.Debug[Wildcard]; l != nil {
			l(ev)
		}
	}

	if ev.Type == ResponseEvent {
		p.responded = true
		if p.listeners.Response != nil {
			p.listeners.Response(DecodeResponseEvent(ev.Data))
		}
	}
}

// Events returns a copy of the events of one type seen so far.
func (p *Protocol) Events(eventType string) []Event {
	return append([]Event(nil), p.logs[eventType]...)
}

// Responded reports whether the terminal @response event was dispatched.
func (p *Protocol) Responded() bool {
	return p.responded
}

// Pending returns the buffered text of an unterminated record.
func (p *Protocol) Pending() string {
	return p.buffer
}

// DecodeResponseEvent rebuilds the response carried by an @response event and
// decodes it with response.Decode.
//
// The event data holds statusCode, headers and body. A JSON response keeps the
// body text as-is. For other content types the body is parsed as JSON and a
// {"_base64": ...} envelope is unwrapped into raw bytes; when that fails the
// body text is used.
func DecodeResponseEvent(data any) (*response.Result, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return &response.Result{Headers: map[string]string{}},
			errors.Decode(fmt.Errorf("%w: @response data is not an object", errors.ErrInvalidEventData),
				"Protocol", "DecodeResponseEvent")
	}

	status := 200
	if n, ok := obj["statusCode"].(float64); ok {
		status = int(n)
	}

	headers := make(map[string]string)
	if h, ok := obj["headers"].(map[string]any); ok {
		for k, v := range h {
			if s, ok := v.(string); ok {
				headers[k] = s
			} else {
				headers[k] = fmt.Sprint(v)
			}
		}
	}

	contentType := ""
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			contentType = response.MediaType(v)
			break
		}
	}

	body, err := responseBody(obj["body"], contentType == response.ContentTypeJSON)
	if err != nil {
		return &response.Result{StatusCode: status, Headers: headers, ContentType: contentType},
			errors.WrapDecode(err, "Protocol", "DecodeResponseEvent", "unwrap base64 body")
	}

	return response.Decode(status, headers, body)
}

func responseBody(body any, isJSON bool) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return []byte{}, nil
	case string:
		if isJSON {
			return []byte(b), nil
		}
		var inner any
		if err := json.Unmarshal([]byte(b), &inner); err == nil {
			if data, ok, err := params.Unwrap(inner); ok {
				return data, err
			}
		}
		return []byte(b), nil
	default:
		if !isJSON {
			if data, ok, err := params.Unwrap(b); ok {
				return data, err
			}
		}
		return json.Marshal(b)
	}
}
