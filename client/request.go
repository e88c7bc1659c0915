package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/acode/lib-go/errors"
	"github.com/acode/lib-go/namespace"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/stream"
)

// Reserved keyword parameters. The first three are removed from the body
// and turned into protocol behavior; the stream ones stay on the wire.
const (
	ParamPath      = "__path"
	ParamHeaders   = "__headers"
	ParamProviders = "__providers"
	ParamStream    = "_stream"
	ParamDebug     = "_debug"
)

const localHost = "localhost"

// request is a fully resolved invocation, ready for the transport.
type request struct {
	url       string
	header    map[string]string
	bag       params.Bag
	streaming bool
	listeners stream.Listeners
}

// prepare validates reserved parameters and builds the URL and headers.
// Nothing here performs I/O.
func (c *Call) prepare(bag params.Bag) (*request, error) {
	cfg := c.client.cfg
	req := &request{header: map[string]string{
		"Content-Type": "application/json",
		"X-Faaslang":   "true",
	}}

	if cfg.Token != "" {
		req.header["Authorization"] = "Bearer " + cfg.Token
	}
	keys := cfg.Keys
	if c.keys != nil {
		keys = c.keys
	}
	if len(keys) > 0 {
		encoded, err := json.Marshal(keys)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Call", "prepare", "encode keys")
		}
		req.header["X-Authorization-Keys"] = string(encoded)
	}
	if cfg.Convert {
		req.header["X-Convert-Strings"] = "true"
	}

	var subPath string
	if bag.IsKeywords() {
		if v, ok := bag.Field(ParamPath); ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, errors.WrapInvalid(fmt.Errorf("%s must be a string, got %T", ParamPath, v),
					"Call", "prepare", "read path parameter")
			}
			subPath = normalizeSubPath(s)
		}

		if v, ok := bag.Field(ParamHeaders); ok && v != nil {
			extra, err := headerObject(v)
			if err != nil {
				return nil, err
			}
			for k, val := range extra {
				req.header[k] = val
			}
		}

		if v, ok := bag.Field(ParamProviders); ok && v != nil {
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, errors.WrapInvalid(err, "Call", "prepare", "encode providers")
			}
			req.header["X-Authorization-Providers"] = string(encoded)
		}

		bag = bag.Without(ParamPath, ParamHeaders, ParamProviders)
	}

	streaming, err := c.streamParams(&bag, req)
	if err != nil {
		return nil, err
	}
	req.streaming = streaming
	req.bag = bag
	req.url = c.url(subPath)
	return req, nil
}

// streamParams collects listeners from the call and from the _stream and
// _debug parameters, and rewrites those parameters into their wire form.
func (c *Call) streamParams(bag *params.Bag, req *request) (bool, error) {
	var (
		listeners stream.Listeners
		streaming bool
		debug     bool

		// subscriptions supplied as plain data rather than listeners
		streamData, debugData any
	)
	if c.listeners != nil {
		listeners = *c.listeners
		streaming = true
		debug = len(listeners.Debug) > 0
	}

	if bag.IsKeywords() {
		if v, ok := bag.Field(ParamStream); ok {
			streaming = true
			switch l := v.(type) {
			case stream.Listeners:
				listeners = mergeListeners(listeners, l)
				debug = debug || len(l.Debug) > 0
			case map[string]stream.Listener:
				listeners.Stream = mergeSlot(listeners.Stream, l)
			default:
				streamData = v
			}
		}
		if v, ok := bag.Field(ParamDebug); ok {
			streaming = true
			debug = true
			if l, ok := v.(map[string]stream.Listener); ok {
				listeners.Debug = mergeSlot(listeners.Debug, l)
			} else {
				debugData = v
			}
		}
	}

	if !streaming {
		return false, nil
	}
	if !bag.IsKeywords() {
		if bag.Len() > 0 {
			return false, errors.Invalid(errors.ErrStreamArguments, "Call", "prepare")
		}
		*bag = params.Keywords(nil)
	}

	fields := bag.Fields()
	fields[ParamStream] = subscription(listeners.Stream, streamData)
	if debug {
		fields[ParamDebug] = subscription(listeners.Debug, debugData)
	} else {
		delete(fields, ParamDebug)
	}
	*bag = params.Keywords(fields)
	req.listeners = listeners
	return true, nil
}

// subscription builds the wire value of a _stream or _debug field. Event
// names given as a plain object are kept and merged with the listener names;
// any other plain value is sent as-is when no listener subscribes.
func subscription(slot map[string]stream.Listener, data any) any {
	sub := stream.Subscription(slot)

	var names map[string]any
	switch d := data.(type) {
	case nil:
		return sub
	case map[string]any:
		names = make(map[string]any, len(d)+len(slot))
		for k, v := range d {
			names[k] = v
		}
	case map[string]bool:
		names = make(map[string]any, len(d)+len(slot))
		for k, v := range d {
			names[k] = v
		}
	default:
		if sub == "" {
			return data
		}
		return sub
	}

	if fromListeners, ok := sub.(map[string]bool); ok {
		for k := range fromListeners {
			names[k] = true
		}
	}
	return names
}

func mergeListeners(base, extra stream.Listeners) stream.Listeners {
	base.Stream = mergeSlot(base.Stream, extra.Stream)
	base.Debug = mergeSlot(base.Debug, extra.Debug)
	if extra.Response != nil {
		base.Response = extra.Response
	}
	return base
}

func mergeSlot(base, extra map[string]stream.Listener) map[string]stream.Listener {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]stream.Listener, len(base)+len(extra))
	for k, l := range base {
		out[k] = l
	}
	for k, l := range extra {
		out[k] = l
	}
	return out
}

// headerObject validates the __headers parameter.
func headerObject(v any) (map[string]string, error) {
	out := make(map[string]string)
	switch h := v.(type) {
	case map[string]string:
		for k, val := range h {
			out[k] = val
		}
	case map[string]any:
		for k, val := range h {
			if s, ok := val.(string); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprint(val)
			}
		}
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: expected an object, got %T", errors.ErrInvalidHeaders, v),
			"Call", "prepare", "read headers parameter")
	}
	return out, nil
}

// normalizeSubPath strips a leading "/" and enforces a trailing one.
func normalizeSubPath(s string) string {
	s = strings.TrimPrefix(s, "/")
	if s != "" && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

// url builds scheme://host[:port]/basePath/pathname.
func (c *Call) url(subPath string) string {
	cfg := c.client.cfg
	host, port := cfg.Host, cfg.EffectivePort()

	path := c.path.Resolved()
	if path.Version() == namespace.LocalVersion {
		host, port = localHost, cfg.EffectiveLocalPort()
		path = path.WithVersion("")
	}

	pathname := path.URLPath() + subPath
	if cfg.Background {
		pathname += ":bg"
		if cfg.BackgroundValue != "" {
			pathname += "=" + encodeURIComponent(cfg.BackgroundValue)
		}
	}

	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	hostPort := host
	if port != 80 && port != 443 {
		hostPort += ":" + strconv.Itoa(port)
	}

	return scheme + "://" + hostPort + cfg.EffectivePath() + strings.TrimPrefix(pathname, "/")
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
