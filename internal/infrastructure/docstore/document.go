// Package docstore is the document store the marketplace keeps its business
// entities in. Documents are schemaless JSON objects with a few system fields
// and reference fields that point at other documents.
package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// System fields present on every stored document.
const (
	FieldID        = "_id"
	FieldType      = "_type"
	FieldCreatedAt = "_createdAt"
	FieldUpdatedAt = "_updatedAt"

	FieldRef      = "_ref"
	TypeReference = "reference"
)

// TimeLayout is the timestamp format used for system fields. Fixed width, so
// lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Document is a schemaless stored object.
type Document map[string]any

// ID returns the document id
func (d Document) ID() string {
	return d.String(FieldID)
}

// Revision identifies the stored version of the document. It is the
// last update stamp, so it changes on every write.
func (d Document) Revision() string {
	return d.String(FieldUpdatedAt)
}

// Type returns the document type
func (d Document) Type() string {
	return d.String(FieldType)
}

// String returns a string field or "" if absent or of another type.
func (d Document) String(key string) string {
	if v, ok := d.Lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Bool returns a boolean field or false.
func (d Document) Bool(key string) bool {
	if v, ok := d.Lookup(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Time parses a timestamp field. Zero time if absent or malformed.
func (d Document) Time(key string) time.Time {
	return ParseTime(d.String(key))
}

// Strings returns a string list field. Non-string items are skipped.
func (d Document) Strings(key string) []string {
	v, ok := d.Lookup(key)
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns a nested object field.
func (d Document) Map(key string) map[string]any {
	v, ok := d.Lookup(key)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]any:
		return m
	case Document:
		return m
	}
	return nil
}

// RefID returns the id a reference field points at.
func (d Document) RefID(key string) string {
	v, ok := d.Lookup(key)
	if !ok {
		return ""
	}
	return RefID(v)
}

// RefIDs returns the ids of a list of references.
func (d Document) RefIDs(key string) []string {
	v, ok := d.Lookup(key)
	if !ok {
		return nil
	}
	return RefIDs(v)
}

// Expanded returns the dereferenced document stored in key, if the field was
// expanded by a query.
func (d Document) Expanded(key string) (Document, bool) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, false
	}
	m := asMap(v)
	if m == nil || m[FieldType] == TypeReference {
		return nil, false
	}
	if _, ok := m[FieldID]; !ok {
		return nil, false
	}
	return Document(m), true
}

// Lookup resolves a dotted path ("address.city", "company._ref").
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m := asMap(cur)
		if m == nil {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

// Ref builds a reference value pointing at id.
func Ref(id string) map[string]any {
	return map[string]any{FieldRef: id, FieldType: TypeReference}
}

// Refs builds a list of references.
func Refs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, Ref(id))
	}
	return out
}

// RefID reads the target id of a reference. Already expanded references
// yield the embedded document's _id.
func RefID(v any) string {
	m := asMap(v)
	if m == nil {
		return ""
	}
	if s, ok := m[FieldRef].(string); ok {
		return s
	}
	if s, ok := m[FieldID].(string); ok {
		return s
	}
	return ""
}

// RefIDs reads a list of references.
func RefIDs(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if maps, ok := v.([]map[string]any); ok {
			for _, m := range maps {
				items = append(items, m)
			}
		} else {
			return nil
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if id := RefID(it); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout or RFC3339 timestamp.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// Normalize round-trips a document through JSON so typed values (structs,
// []string, decimals) become plain JSON values. Backends store normalized
// documents only.
func Normalize(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out := Document{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Document:
		return m
	}
	return nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
