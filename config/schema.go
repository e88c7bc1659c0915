package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON Schema each configuration layer must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "host": {"type": "string", "minLength": 1},
    "port": {"type": ["integer", "string"]},
    "path": {"type": "string", "pattern": "^/"},
    "local_port": {"type": ["integer", "string"]},
    "token": {"type": "string"},
    "keys": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "convert": {"type": "boolean"},
    "debug": {"type": "boolean"},
    "background": {"type": "boolean"},
    "background_value": {"type": "string"},
    "timeout": {"type": ["integer", "string"]}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// ValidateSchema checks a raw configuration layer against Schema.
func ValidateSchema(raw map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("config does not match schema: %s", strings.Join(msgs, "; "))
}
