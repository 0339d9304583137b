package runtime

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// EventSchemaJSON describes the hook event wire shape.
const EventSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "wormhole.Event",
  "type": "object",
  "required": ["symbol", "thread_id"],
  "properties": {
    "symbol": {"type": "string", "minLength": 1},
    "service": {"type": "string"},
    "thread_id": {"type": "integer", "minimum": 0},
    "args": {"type": "array", "items": {"type": "string"}},
    "payload_bytes": {"type": "string", "pattern": "^[A-Za-z0-9+/]*={0,2}$"},
    "ret": {"type": "string"},
    "timestamp": {"type": "integer", "minimum": 0}
  }
}`

// EventSchemaError lists every schema violation of one payload.
type EventSchemaError struct {
	Problems []string
}

func (e *EventSchemaError) Error() string {
	return "event does not match schema: " + strings.Join(e.Problems, "; ")
}

// EventValidator checks raw event payloads against EventSchemaJSON.
type EventValidator struct {
	schema *gojsonschema.Schema
}

// NewEventValidator compiles the event schema.
func NewEventValidator() (*EventValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(EventSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	return &EventValidator{schema: schema}, nil
}

// Validate returns an *EventSchemaError when payload is well-formed JSON that
// breaks the schema, and a plain error when it is not JSON at all.
func (v *EventValidator) Validate(payload []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validate event: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &EventSchemaError{Problems: problems}
}
