package graph

// MergeRule determines how a node's partial update is folded into an
// existing state field.
type MergeRule int

const (
	// MergeReplace overwrites the field with the newest value. Default.
	MergeReplace MergeRule = iota
	// MergeAppend concatenates slice values onto the existing slice.
	MergeAppend
)

// Field declares one named state field: its default value and merge rule.
// Every field carries a default so a partial update from any node always
// leaves the state well-formed.
type Field struct {
	Default any
	Merge   MergeRule
}

// Schema maps field names to their declarations.
type Schema map[string]Field

// State is the typed, mergeable record threaded through a multi-step run.
// It is initialized fresh per run from the schema defaults and discarded at
// run completion. Not safe for concurrent mutation; the engine owns it.
type State map[string]any

// newState builds a State populated with every schema default.
func newState(schema Schema) State {
	s := make(State, len(schema))
	for name, f := range schema {
		s[name] = f.Default
	}
	return s
}

// merge folds a partial update into the state using each field's declared
// rule. Fields absent from the schema merge with MergeReplace.
func (s State) merge(schema Schema, update map[string]any) {
	for name, value := range update {
		rule := MergeReplace
		if f, ok := schema[name]; ok {
			rule = f.Merge
		}
		switch rule {
		case MergeAppend:
			s[name] = appendValues(s[name], value)
		default:
			s[name] = value
		}
	}
}

// appendValues concatenates update onto existing, normalizing both to
// []any. Non-slice values are treated as single elements.
func appendValues(existing, update any) []any {
	out := toSlice(existing)
	return append(out, toSlice(update)...)
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

// String returns the field as a string, or fallback when absent or of a
// different type.
func (s State) String(name, fallback string) string {
	if v, ok := s[name].(string); ok {
		return v
	}
	return fallback
}

// Int returns the field as an int, tolerating float64 values produced by
// JSON round-trips.
func (s State) Int(name string, fallback int) int {
	switch v := s[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Bool returns the field as a bool, or fallback when absent or mistyped.
func (s State) Bool(name string, fallback bool) bool {
	if v, ok := s[name].(bool); ok {
		return v
	}
	return fallback
}

// Clone returns a shallow copy of the state for safe external inspection.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
