package validation

import "encoding/json"

// Fields is a field-scoped error map. Values are either a message string, a
// nested Fields, or an index-aligned []Fields for collection errors, so the
// whole structure marshals directly into the API error body, e.g.
//
//	{"criteria": [{}, {"requirementGroups": [{"id": "..."}]}]}
type Fields map[string]any

// Error is a structured validation failure carrying field-scoped messages.
type Error struct {
	Fields Fields
}

func (e *Error) Error() string {
	b, err := json.Marshal(e.Fields)
	if err != nil {
		return "validation failed"
	}
	return string(b)
}

// NewError builds a single-field validation error.
func NewError(field, message string) *Error {
	return &Error{Fields: Fields{field: message}}
}

// NewFieldsError wraps an already-built field map.
func NewFieldsError(fields Fields) *Error {
	return &Error{Fields: fields}
}

// Merge copies entries of other into f, overwriting on collision.
func (f Fields) Merge(other Fields) {
	for k, v := range other {
		f[k] = v
	}
}

// IndexedList converts a slice of per-item error maps into the index-aligned
// list form used for collection errors. Items without errors stay as empty
// objects so the client can match errors to payload positions.
func IndexedList(items []Fields) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if item == nil {
			item = Fields{}
		}
		out[i] = item
	}
	return out
}

// AnyErrors reports whether at least one item of the slice carries an error.
func AnyErrors(items []Fields) bool {
	for _, item := range items {
		if len(item) > 0 {
			return true
		}
	}
	return false
}
