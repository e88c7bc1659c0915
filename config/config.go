package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/acode/lib-go/errors"
)

// Defaults for the hosted function gateway.
const (
	DefaultHost      = "functions.lib.id"
	DefaultPort      = 443
	DefaultPath      = "/"
	DefaultLocalPort = 8170

	// fallbackPort is used when a port value is present but not a number.
	fallbackPort = 80
)

// Config holds everything needed to reach and authenticate against the
// function gateway.
type Config struct {
	Host      string `json:"host"       yaml:"host"`
	Port      int    `json:"port"       yaml:"port"`
	Path      string `json:"path"       yaml:"path"`
	LocalPort int    `json:"local_port" yaml:"local_port"`

	Token string            `json:"token,omitempty" yaml:"token,omitempty"`
	Keys  map[string]string `json:"keys,omitempty"  yaml:"keys,omitempty"`

	Convert         bool   `json:"convert"                    yaml:"convert"`
	Debug           bool   `json:"debug"                      yaml:"debug"`
	Background      bool   `json:"background"                 yaml:"background"`
	BackgroundValue string `json:"background_value,omitempty" yaml:"background_value,omitempty"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:      DefaultHost,
		Port:      DefaultPort,
		Path:      DefaultPath,
		LocalPort: DefaultLocalPort,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "config is nil")
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "host is required")
	}
	if strings.ContainsAny(c.Host, "/ ") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("host %q must not contain a path or spaces", c.Host))
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("local_port %d out of range", c.LocalPort))
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("path %q must start with /", c.Path))
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "timeout must not be negative")
	}
	if c.BackgroundValue != "" && !c.Background {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"background_value requires background")
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	copied := *c
	if c.Keys != nil {
		copied.Keys = make(map[string]string, len(c.Keys))
		for k, v := range c.Keys {
			copied.Keys[k] = v
		}
	}
	return &copied
}

// EffectivePort returns the port to connect to. An unset port means
// DefaultPort.
func (c *Config) EffectivePort() int {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

// EffectivePath returns the base path, always ending in "/".
func (c *Config) EffectivePath() string {
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// EffectiveLocalPort returns the port used for @local invocations.
func (c *Config) EffectiveLocalPort() int {
	if c.LocalPort == 0 {
		return DefaultLocalPort
	}
	return c.LocalPort
}

// String returns a JSON representation of the config with the token masked
func (c *Config) String() string {
	masked := c.Clone()
	if masked.Token != "" {
		masked.Token = "***"
	}
	for k := range masked.Keys {
		masked.Keys[k] = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// ParsePort interprets a loosely typed port value. Missing, empty and zero
// values mean DefaultPort; strings are read up to the first non-digit, and
// anything that does not yield a positive number falls back to port 80.
func ParsePort(v any) int {
	switch p := v.(type) {
	case nil:
		return DefaultPort
	case int:
		if p == 0 {
			return DefaultPort
		}
		return p
	case int64:
		return ParsePort(int(p))
	case float64:
		return ParsePort(int(p))
	case json.Number:
		return ParsePort(p.String())
	case string:
		if p == "" {
			return DefaultPort
		}
		digits := strings.TrimSpace(p)
		end := 0
		for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(digits[:end])
		if err != nil || n == 0 {
			return fallbackPort
		}
		return n
	default:
		return fallbackPort
	}
}
