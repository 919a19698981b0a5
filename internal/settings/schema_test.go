package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadValues(t *testing.T) {
	var enabled bool
	var name string
	schema := Schema{
		{Name: "enabled", Type: FieldBool, Get: func() any { return enabled }},
		{Name: "name", Type: FieldString, Get: func() any { return name }},
	}
	enabled = true
	name = "x"

	got := ReadValues(schema)
	assert.Equal(t, map[string]any{"enabled": true, "name": "x"}, got)
}

func TestWriteValues_OnlyRecognizedChangedFields(t *testing.T) {
	var a, b int
	schema := Schema{
		{Name: "a", Type: FieldInt, Get: func() any { return a }, Set: func(v any) bool {
			n, ok := v.(float64)
			if !ok || int(n) == a {
				return false
			}
			a = int(n)
			return true
		}},
		{Name: "b", Type: FieldInt, Get: func() any { return b }, Set: func(v any) bool {
			n, ok := v.(float64)
			if !ok || int(n) == b {
				return false
			}
			b = int(n)
			return true
		}},
	}

	changed := WriteValues(schema, map[string]any{"a": float64(5), "unknown": "ignored"})
	assert.Equal(t, 1, changed)
	assert.Equal(t, 5, a)
	assert.Equal(t, 0, b)

	// Writing the same value again changes nothing.
	changed = WriteValues(schema, map[string]any{"a": float64(5)})
	assert.Equal(t, 0, changed)
}
