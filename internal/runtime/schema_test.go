package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidator(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		valid   bool
	}{
		{"minimal", `{"symbol":"s","thread_id":0}`, true},
		{"full", `{"symbol":"s","service":"svc","thread_id":5,"args":["a","{}"],"payload_bytes":"AP8=","ret":"r","timestamp":1}`, true},
		{"unknown fields allowed", `{"symbol":"s","thread_id":1,"pid":9}`, true},
		{"missing thread", `{"symbol":"s"}`, false},
		{"empty symbol", `{"symbol":"","thread_id":1}`, false},
		{"negative thread", `{"symbol":"s","thread_id":-4}`, false},
		{"fractional thread", `{"symbol":"s","thread_id":1.5}`, false},
		{"non-string arg", `{"symbol":"s","thread_id":1,"args":[1]}`, false},
		{"bad base64 alphabet", `{"symbol":"s","thread_id":1,"payload_bytes":"A*=="}`, false},
		{"not an object", `[]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.payload))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var schemaErr *EventSchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Problems)
			assert.Contains(t, schemaErr.Error(), "event does not match schema")
		})
	}
}

func TestEventValidatorRejectsMalformedJSON(t *testing.T) {
	v, err := NewEventValidator()
	require.NoError(t, err)

	err = v.Validate([]byte(`{"symbol":`))
	require.Error(t, err)
	var schemaErr *EventSchemaError
	assert.False(t, errors.As(err, &schemaErr))
}
