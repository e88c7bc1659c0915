package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acode/lib-go/errors"
)

// DefaultEnvPrefix is the prefix of environment overrides, e.g. LIBGO_TOKEN.
const DefaultEnvPrefix = "LIBGO"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer appends a JSON or YAML file. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation turns on schema checks of each layer and Validate on the
// merged result.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment override prefix. An empty prefix
// disables environment overrides.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer, then environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		if l.validation {
			if err := ValidateSchema(raw); err != nil {
				return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("validate %s", path))
			}
		}
		merged, err := Merge(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("merge %s", path))
		}
		cfg = merged
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads one layer into a generic map.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch f {
	case formatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validateDepth(raw, 0); err != nil {
		return nil, err
	}
	return raw, nil
}

// Merge applies a partial configuration map onto base and returns a new
// Config. Keys use the JSON field names. Nil values are ignored, nested
// maps merge key by key, a string or numeric port goes through ParsePort,
// and timeout accepts a duration string, a number of milliseconds, or a
// time.Duration.
func Merge(base *Config, override map[string]any) (*Config, error) {
	if base == nil {
		base = DefaultConfig()
	}
	if len(override) == 0 {
		return base.Clone(), nil
	}

	normalized, err := normalize(override)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Merge", "normalize override")
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Merge", "marshal base")
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, errors.Wrap(err, "Config", "Merge", "unmarshal base")
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, normalized))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Merge", "marshal merged")
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Merge", "unmarshal merged")
	}
	return &merged, nil
}

// normalize converts loosely typed values into what the Config JSON
// encoding expects.
func normalize(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	for _, key := range []string{"port", "local_port"} {
		if v, ok := out[key]; ok && v != nil {
			out[key] = ParsePort(v)
		}
	}

	if v, ok := out["timeout"]; ok && v != nil {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, err
		}
		out["timeout"] = int64(d)
	}

	if v, ok := out["keys"]; ok && v != nil {
		keys, err := stringMap(v)
		if err != nil {
			return nil, err
		}
		out["keys"] = keys
	}
	return out, nil
}

func parseTimeout(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		return d, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	default:
		return 0, fmt.Errorf("invalid timeout type %T", v)
	}
}

func stringMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = fmt.Sprint(s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("keys must be an object, got %T", v)
	}
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides reads PREFIX_HOST, PREFIX_PORT, PREFIX_PATH,
// PREFIX_LOCAL_PORT, PREFIX_TOKEN, PREFIX_DEBUG and PREFIX_TIMEOUT.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if l.envPrefix == "" {
		return nil
	}

	get := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		v, ok := l.lookupEnv(key)
		if !ok || v == "" {
			return "", false, nil
		}
		if err := validateEnvVar(key, v); err != nil {
			return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", key)
		}
		return v, true, nil
	}

	if v, ok, err := get("HOST"); err != nil {
		return err
	} else if ok {
		cfg.Host = v
	}
	if v, ok, err := get("PORT"); err != nil {
		return err
	} else if ok {
		cfg.Port = ParsePort(v)
	}
	if v, ok, err := get("PATH"); err != nil {
		return err
	} else if ok {
		cfg.Path = v
	}
	if v, ok, err := get("LOCAL_PORT"); err != nil {
		return err
	} else if ok {
		cfg.LocalPort = ParsePort(v)
	}
	if v, ok, err := get("TOKEN"); err != nil {
		return err
	} else if ok {
		cfg.Token = v
	}
	if v, ok, err := get("DEBUG"); err != nil {
		return err
	} else if ok {
		b, perr := strconv.ParseBool(strings.TrimSpace(v))
		if perr != nil {
			return errors.WrapInvalid(perr, "Loader", "applyEnvOverrides", l.envPrefix+"_DEBUG")
		}
		cfg.Debug = b
	}
	if v, ok, err := get("TIMEOUT"); err != nil {
		return err
	} else if ok {
		d, perr := parseTimeout(v)
		if perr != nil {
			return errors.WrapInvalid(perr, "Loader", "applyEnvOverrides", l.envPrefix+"_TIMEOUT")
		}
		cfg.Timeout = d
	}
	return nil
}
