// Package rawfield classifies heterogeneous raw posting fields into a small
// set of known shapes. Source payloads carry the same logical field as a JSON
// object, a string-encoded object literal, or plain text depending on how the
// batch was produced; every consumer dispatches on the parsed shape instead
// of inspecting types ad hoc.
package rawfield

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the shapes a raw field arrives in.
type Kind int

const (
	// KindMissing marks a nil or empty field.
	KindMissing Kind = iota
	// KindObject marks a field that arrived as a JSON object.
	KindObject
	// KindEncodedObject marks a field that arrived as a string containing
	// an encoded object literal.
	KindEncodedObject
	// KindText marks a plain string field.
	KindText
	// KindOpaque marks any other value, kept in its printed form.
	KindOpaque
)

// Field is one raw posting field in its parsed shape. Object is set for
// KindObject and KindEncodedObject; Text for KindText and KindOpaque.
type Field struct {
	Kind   Kind
	Object map[string]any
	Text   string
}

// Parse classifies a raw value. Strings that look like object literals are
// decoded, first as JSON, then with single quotes swapped for double quotes
// to cover stringified dict literals; when both fail the string is kept as
// plain text.
func Parse(v any) Field {
	switch val := v.(type) {
	case nil:
		return Field{Kind: KindMissing}
	case map[string]any:
		return Field{Kind: KindObject, Object: val}
	case string:
		if val == "" {
			return Field{Kind: KindMissing}
		}
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			if obj := decodeObject(trimmed); obj != nil {
				return Field{Kind: KindEncodedObject, Object: obj}
			}
		}
		return Field{Kind: KindText, Text: val}
	default:
		return Field{Kind: KindOpaque, Text: fmt.Sprint(val)}
	}
}

// IsObject reports whether the field carries an object in either encoding.
func (f Field) IsObject() bool {
	return f.Kind == KindObject || f.Kind == KindEncodedObject
}

// Get returns the string value stored under key when the field is an object
// shape, empty otherwise.
func (f Field) Get(key string) string {
	if !f.IsObject() {
		return ""
	}
	if s, ok := f.Object[key].(string); ok {
		return s
	}
	return ""
}

func decodeObject(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}
	swapped := strings.ReplaceAll(s, "'", `"`)
	if err := json.Unmarshal([]byte(swapped), &obj); err == nil {
		return obj
	}
	return nil
}
