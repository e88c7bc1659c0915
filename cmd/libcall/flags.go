package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPaths []string
	LogLevel    string
	LogFormat   string
	Token       string
	Host        string
	Port        string
	Background  string
	Timeout     time.Duration
	Stream      bool
	Debug       bool
	MetricsAddr string
	Files       map[string]string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	// Args are the remaining arguments: the namespace followed by parameters.
	Args []string
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{Files: map[string]string{}}

	if p := os.Getenv("LIBCALL_CONFIG"); p != "" {
		cfg.ConfigPaths = append(cfg.ConfigPaths, p)
	}
	addConfig := func(p string) error {
		cfg.ConfigPaths = append(cfg.ConfigPaths, p)
		return nil
	}
	fs.Func("config", "Config layer, JSON or YAML; repeatable (env: LIBCALL_CONFIG)", addConfig)
	fs.Func("c", "Shorthand for -config", addConfig)

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LIBCALL_LOG_LEVEL", "warn"),
		"Log level: debug, info, warn, error (env: LIBCALL_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LIBCALL_LOG_FORMAT", "text"),
		"Log format: json, text (env: LIBCALL_LOG_FORMAT)")

	fs.StringVar(&cfg.Token, "token", "", "Bearer token, overrides config and LIBGO_TOKEN")
	fs.StringVar(&cfg.Host, "host", "", "Gateway host, overrides config")
	fs.StringVar(&cfg.Port, "port", "", "Gateway port, overrides config")
	fs.StringVar(&cfg.Background, "bg", "",
		"Run in the background; the value selects the response mode (\"1\" for the default)")

	fs.DurationVar(&cfg.Timeout, "timeout",
		getEnvDuration("LIBCALL_TIMEOUT", 0),
		"Request timeout, 0 for none (env: LIBCALL_TIMEOUT)")

	fs.BoolVar(&cfg.Stream, "stream", false, "Stream events to stderr while the function runs")
	fs.BoolVar(&cfg.Debug, "debug", getEnvBool("LIBCALL_DEBUG", false),
		"Stream debug events and log at debug level (env: LIBCALL_DEBUG)")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", getEnv("LIBCALL_METRICS_ADDR", ""),
		"Serve Prometheus metrics on this address while running (env: LIBCALL_METRICS_ADDR)")

	fs.Func("file", "Send a file as a binary keyword parameter: name=path; repeatable", func(v string) error {
		name, path, ok := strings.Cut(v, "=")
		if !ok || name == "" || path == "" {
			return fmt.Errorf("expected name=path, got %q", v)
		}
		cfg.Files[name] = path
		return nil
	})

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Args = fs.Args()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	for _, p := range cfg.ConfigPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file not found: %s", p)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.Port != "" {
		if _, err := strconv.Atoi(cfg.Port); err != nil {
			return fmt.Errorf("invalid port: %s", cfg.Port)
		}
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", cfg.Timeout)
	}

	if !cfg.Validate && len(cfg.Args) == 0 {
		return fmt.Errorf("missing function name")
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - invoke a remote function

Usage: %s [options] <service.function[@version]> [params...]

Parameters are either all name=value (keyword) or all bare values
(positional). Values are parsed as JSON when possible, otherwise sent
as strings.

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Keyword parameters
  %s utils.reflect[@dev] name=world count=3

  # Positional parameters
  %s math.add 1 2

  # Upload a file and stream progress events
  %s -stream -file image=./cat.png images.resize width=200

  # Use a config layer and a token from the environment
  export LIBGO_TOKEN=...
  %s -config libgo.yaml svc.fn

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
