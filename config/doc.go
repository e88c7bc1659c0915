// Package config holds the settings used to reach the function gateway.
//
// A Config names the gateway host, port and base path, the port used for
// @local invocations, and the credentials sent with every request (a bearer
// token and an optional set of named keys). It also carries the convert,
// debug and background flags and an overall request timeout.
//
// # Loading
//
// Loader merges configuration from layered files over DefaultConfig. JSON
// (.json) and YAML (.yaml, .yml) layers are accepted; each later layer
// overrides the keys it names and nested objects merge key by key.
// Environment variables with the LIBGO_ prefix are applied last:
//
//	loader := config.NewLoader()
//	loader.AddLayer("libgo.yaml")
//	loader.AddLayer("libgo.local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// With validation enabled every raw layer is checked against Schema and the
// merged result against Config.Validate.
//
// # Partial overrides
//
// Merge applies a loosely typed map onto an existing Config. Ports may be
// numbers or strings, parsed the same way the gateway client always has:
// an unset port means 443 and a value that is not a number means 80.
//
// # Security
//
// Files are read with size and nesting limits, paths that walk out of the
// working directory are refused, and environment values are length checked.
package config
