// Package settings implements the property-reflection schema and
// persistent key/value store described for configuration records (§4.H).
// A schema is re-expressed as a tagged union of closures rather than raw
// struct-offset access: each field owns a getter and a setter bound to a
// specific record instance, which is the idiomatic Go analogue of reading
// and writing a value at a byte offset.
package settings

// FieldType tags the scalar kind a Field carries.
type FieldType int

const (
	FieldBool FieldType = iota
	FieldInt
	FieldString
)

// Field is one named property of a configuration record: a getter
// returning its current value and a setter that applies a new value,
// reporting whether anything actually changed.
type Field struct {
	Name string
	Type FieldType
	Get  func() any
	Set  func(any) bool
}

// Schema is an ordered list of fields over one configuration record.
type Schema []Field

// ReadValues walks the schema and emits a map from field name to scalar
// value.
func ReadValues(schema Schema) map[string]any {
	out := make(map[string]any, len(schema))
	for _, f := range schema {
		out[f.Name] = f.Get()
	}
	return out
}

// WriteValues walks values and applies every recognized field name back
// into the record via its setter. It returns the number of fields whose
// value actually changed.
func WriteValues(schema Schema, values map[string]any) int {
	changed := 0
	for _, f := range schema {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Set(v) {
			changed++
		}
	}
	return changed
}
