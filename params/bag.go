package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/acode/lib-go/errors"
)

// Bag holds the arguments of one invocation: either positional values or
// named keywords, never both.
type Bag struct {
	values   []any
	fields   map[string]any
	keywords bool
}

// Positional builds a positional Bag. The values are copied.
func Positional(values ...any) Bag {
	return Bag{values: append([]any{}, values...)}
}

// Keywords builds a keyword Bag. The map is copied.
func Keywords(fields map[string]any) Bag {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Bag{fields: cp, keywords: true}
}

// FromArgs decides between positional and keyword calling conventions.
//
// A single plain object (a map with string keys or a struct) becomes the
// keyword Bag. A plain object followed by further arguments is ambiguous and
// rejected before any I/O. Everything else is positional.
func FromArgs(args ...any) (Bag, error) {
	if len(args) == 0 || !isPlainObject(args[0]) {
		return Positional(args...), nil
	}
	if len(args) > 1 {
		return Bag{}, errors.Invalid(errors.ErrMixedArguments, "params", "FromArgs")
	}

	fields, err := toFields(args[0])
	if err != nil {
		return Bag{}, errors.WrapInvalid(err, "params", "FromArgs", "convert keyword object")
	}
	return Bag{fields: fields, keywords: true}, nil
}

// IsKeywords reports whether the Bag holds named parameters.
func (b Bag) IsKeywords() bool {
	return b.keywords
}

// Len returns the number of parameters.
func (b Bag) Len() int {
	if b.keywords {
		return len(b.fields)
	}
	return len(b.values)
}

// Values returns a copy of the positional values.
func (b Bag) Values() []any {
	return append([]any{}, b.values...)
}

// Fields returns a copy of the keyword parameters.
func (b Bag) Fields() map[string]any {
	cp := make(map[string]any, len(b.fields))
	for k, v := range b.fields {
		cp[k] = v
	}
	return cp
}

// Field looks up one keyword parameter.
func (b Bag) Field(name string) (any, bool) {
	if !b.keywords {
		return nil, false
	}
	v, ok := b.fields[name]
	return v, ok
}

// Without returns a copy of a keyword Bag with the named parameters removed.
// Positional Bags are returned unchanged.
func (b Bag) Without(names ...string) Bag {
	if !b.keywords {
		return b
	}
	out := Keywords(b.fields)
	for _, n := range names {
		delete(out.fields, n)
	}
	return out
}

// isPlainObject reports whether v is a keyword object rather than a
// positional value: maps keyed by strings and structs qualify, binary values
// and sequences do not.
func isPlainObject(v any) bool {
	if v == nil || IsBinary(v) {
		return false
	}
	if _, ok := v.(json.RawMessage); ok {
		return false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	default:
		return false
	}
}

// toFields converts a plain object to a keyword map. Values are kept as-is so
// top-level binaries stay detectable. Struct fields are named the way
// encoding/json names them.
func toFields(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return cp, nil
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		if _, ok := v.(json.Marshaler); ok {
			return jsonFields(v)
		}
		out := map[string]any{}
		structFields(rv, out)
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported keyword object %T", v)
	}
}

// jsonFields converts v through its own JSON encoding.
func jsonFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// structFields copies the exported fields of rv into out. Tag names,
// "-" and omitempty are honoured; embedded structs are flattened, with
// fields of the outer struct taking precedence.
func structFields(rv reflect.Value, out map[string]any) {
	rt := rv.Type()
	var embedded []reflect.Value

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() || !sf.IsExported() {
						continue
					}
					fv = fv.Elem()
				}
				embedded = append(embedded, fv)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = fv.Interface()
	}

	for _, ev := range embedded {
		inner := map[string]any{}
		structFields(ev, inner)
		for k, v := range inner {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue matches the omitempty rules of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// IsBinary reports whether v is a value sent as a base64 envelope.
func IsBinary(v any) bool {
	switch v.(type) {
	case []byte, *Blob:
		return true
	case io.Reader:
		return true
	default:
		return false
	}
}
