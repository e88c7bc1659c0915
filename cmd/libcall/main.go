// Package main implements libcall, a command-line client that invokes a
// remote function and prints its result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acode/lib-go/client"
	"github.com/acode/lib-go/config"
	"github.com/acode/lib-go/metric"
	"github.com/acode/lib-go/params"
	"github.com/acode/lib-go/response"
	"github.com/acode/lib-go/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "libcall"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Invocation failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cliCfg, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid", "config", cfg.String())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	if err := registerBuildInfo(registry); err != nil {
		return err
	}
	if cliCfg.MetricsAddr != "" {
		srv := metric.NewServer(cliCfg.MetricsAddr, "", registry)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		slog.Info("Serving metrics", "address", srv.Address())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	c, err := client.New(cfg,
		client.WithLogger(slog.Default()),
		client.WithMetricsRegistry(registry),
	)
	if err != nil {
		return err
	}

	call, err := buildCall(c, cliCfg, stderr)
	if err != nil {
		return err
	}
	invokeArgs, err := buildParams(cliCfg.Args[1:], cliCfg.Files)
	if err != nil {
		return err
	}

	res, err := call.Invoke(ctx, invokeArgs...)
	if err != nil {
		return err
	}
	return printResult(stdout, res)
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		fs.Usage()
		return nil, true, nil
	}

	slog.SetDefault(setupLogger(cliCfg.LogLevel, cliCfg.LogFormat))
	slog.Debug("Starting libcall",
		"version", Version,
		"build_time", BuildTime,
		"config_paths", cliCfg.ConfigPaths)

	return cliCfg, false, nil
}

// initializeConfiguration loads config layers and applies flag overrides.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	for _, p := range cliCfg.ConfigPaths {
		loader.AddLayer(p)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	overrides := map[string]any{}
	if cliCfg.Token != "" {
		overrides["token"] = cliCfg.Token
	}
	if cliCfg.Host != "" {
		overrides["host"] = cliCfg.Host
	}
	if cliCfg.Port != "" {
		overrides["port"] = cliCfg.Port
	}
	switch cliCfg.Background {
	case "":
	case "1":
		overrides["background"] = true
	default:
		overrides["background"] = true
		overrides["background_value"] = cliCfg.Background
	}
	if cliCfg.Timeout > 0 {
		overrides["timeout"] = cliCfg.Timeout
	}
	if cliCfg.Debug {
		overrides["debug"] = true
	}

	cfg, err = config.Merge(cfg, overrides)
	if err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// registerBuildInfo publishes the libcall version as a constant gauge.
func registerBuildInfo(r metric.MetricsRegistrar) error {
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "libcall_build_info",
		Help:        "Build information of the libcall binary",
		ConstLabels: prometheus.Labels{"version": Version, "build_time": BuildTime},
	})
	info.Set(1)
	return r.RegisterGauge(appName, "build_info", info)
}

// buildCall resolves the namespace argument and attaches stream printers.
func buildCall(c *client.Client, cliCfg *CLIConfig, stderr io.Writer) (*client.Call, error) {
	call := c.Call(cliCfg.Args[0])
	if err := call.Err(); err != nil {
		return nil, err
	}
	if !cliCfg.Stream && !cliCfg.Debug {
		return call, nil
	}

	enc := json.NewEncoder(stderr)
	printEvent := func(ev stream.Event) {
		_ = enc.Encode(map[string]any{
			"event":     ev.Type,
			"index":     ev.Index,
			"timestamp": ev.Timestamp,
			"data":      ev.Data,
		})
	}

	listeners := stream.Listeners{
		Stream: map[string]stream.Listener{stream.Wildcard: printEvent},
	}
	if cliCfg.Debug {
		listeners.Debug = map[string]stream.Listener{stream.Wildcard: printEvent}
	}
	return call.WithListeners(listeners), nil
}

// buildParams turns name=value arguments into keyword parameters and bare
// arguments into positional ones. Files are always keyword parameters.
func buildParams(args []string, files map[string]string) ([]any, error) {
	keywords := map[string]any{}
	var positional []any

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if ok && name != "" && !strings.ContainsAny(name, " {[\"") {
			keywords[name] = parseValue(value)
			continue
		}
		positional = append(positional, parseValue(arg))
	}

	for name, path := range files {
		keywords[name] = params.BlobFromFile(path, "")
	}

	switch {
	case len(keywords) > 0 && len(positional) > 0:
		return nil, fmt.Errorf("cannot mix name=value and positional parameters")
	case len(keywords) > 0:
		return []any{params.Keywords(keywords)}, nil
	default:
		return positional, nil
	}
}

// parseValue reads a JSON value, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func printResult(w io.Writer, res *response.Result) error {
	switch body := res.Body.(type) {
	case []byte:
		_, err := w.Write(body)
		return err
	case string:
		_, err := fmt.Fprintln(w, body)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}
}
