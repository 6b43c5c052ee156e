package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op is a filter comparison operator
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpIn       Op = "in"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains" // array field contains value
	OpRef      Op = "ref"      // reference field points at id
	OpExists   Op = "exists"   // value is a bool
)

// Filter is one condition on a document field. Conditions in a Query are
// AND-ed.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter       { return Filter{Field: field, Op: OpEq, Value: v} }
func Neq(field string, v any) Filter      { return Filter{Field: field, Op: OpNeq, Value: v} }
func In(field string, v []string) Filter  { return Filter{Field: field, Op: OpIn, Value: v} }
func Gte(field string, v any) Filter      { return Filter{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Filter      { return Filter{Field: field, Op: OpLte, Value: v} }
func RefTo(field, id string) Filter       { return Filter{Field: field, Op: OpRef, Value: id} }
func Contains(field string, v any) Filter { return Filter{Field: field, Op: OpContains, Value: v} }
func Exists(field string, yes bool) Filter {
	return Filter{Field: field, Op: OpExists, Value: yes}
}

// Order sorts results by a field
type Order struct {
	Field string
	Desc  bool
}

// Search is a case-insensitive substring match over several string fields.
// A document matches if any field contains the term.
type Search struct {
	Fields []string
	Term   string
}

// Query selects documents of one type.
type Query struct {
	Type    string
	Filters []Filter
	Search  *Search
	Order   []Order
	Offset  int
	Limit   int
	// Expand lists reference fields to dereference in the results.
	Expand []string
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField reports whether a field path is safe to use in a query.
func ValidField(path string) bool {
	return fieldPattern.MatchString(path)
}

// Validate checks field names and operators.
func (q Query) Validate() error {
	if q.Type == "" {
		return fmt.Errorf("query type is required")
	}
	for _, f := range q.Filters {
		if !ValidField(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpNeq, OpIn, OpGt, OpGte, OpLt, OpLte, OpContains, OpRef, OpExists:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	if q.Search != nil {
		for _, field := range q.Search.Fields {
			if !ValidField(field) {
				return fmt.Errorf("invalid search field %q", field)
			}
		}
	}
	for _, o := range q.Order {
		if !ValidField(o.Field) {
			return fmt.Errorf("invalid order field %q", o.Field)
		}
	}
	for _, e := range q.Expand {
		if !ValidField(e) {
			return fmt.Errorf("invalid expand field %q", e)
		}
	}
	if q.Offset < 0 || q.Limit < 0 {
		return fmt.Errorf("offset and limit must not be negative")
	}
	return nil
}

// CountQuery strips paging, ordering and expansion.
func (q Query) CountQuery() Query {
	return Query{Type: q.Type, Filters: q.Filters, Search: q.Search}
}

// Key returns a stable string form of the query, used for cache keys.
func (q Query) Key() string {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf("%+v", q)
	}
	return string(raw)
}

// Matches evaluates filters and search against a document in memory.
func (q Query) Matches(doc Document) bool {
	if doc.Type() != q.Type {
		return false
	}
	for _, f := range q.Filters {
		if !f.Matches(doc) {
			return false
		}
	}
	if q.Search != nil && q.Search.Term != "" {
		return q.Search.Matches(doc)
	}
	return true
}

// Matches evaluates the search against a document.
func (s Search) Matches(doc Document) bool {
	term := strings.ToLower(strings.TrimSpace(s.Term))
	if term == "" {
		return true
	}
	for _, field := range s.Fields {
		v, ok := doc.Lookup(field)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.Contains(strings.ToLower(t), term) {
				return true
			}
		case []any:
			for _, it := range t {
				if str, ok := it.(string); ok && strings.Contains(strings.ToLower(str), term) {
					return true
				}
			}
		}
	}
	return false
}

// Matches evaluates one filter.
func (f Filter) Matches(doc Document) bool {
	v, present := doc.Lookup(f.Field)
	switch f.Op {
	case OpExists:
		want, _ := f.Value.(bool)
		return (present && v != nil) == want
	case OpNeq:
		return !present || !equalValues(v, f.Value)
	}
	if !present {
		return false
	}
	switch f.Op {
	case OpEq:
		return equalValues(v, f.Value)
	case OpIn:
		for _, candidate := range toList(f.Value) {
			if equalValues(v, candidate) {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpContains:
		for _, item := range toList(v) {
			if equalValues(item, f.Value) || RefID(item) == fmt.Sprint(f.Value) {
				return true
			}
		}
		return false
	case OpRef:
		id, _ := f.Value.(string)
		if refs := RefIDs(v); refs != nil {
			for _, r := range refs {
				if r == id {
					return true
				}
			}
			return false
		}
		return RefID(v) == id
	}
	return false
}

// SortDocuments orders docs in place. Missing values sort last.
func SortDocuments(docs []Document, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			a, aok := docs[i].Lookup(o.Field)
			b, bok := docs[j].Lookup(o.Field)
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c, ok := compareValues(a, b)
			if !ok || c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Window applies offset and limit. A zero limit means no limit.
func Window(docs []Document, offset, limit int) []Document {
	if offset >= len(docs) {
		return []Document{}
	}
	if offset > 0 {
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// Apply runs the whole query over an in-memory candidate set.
func Apply(q Query, candidates []Document) []Document {
	out := make([]Document, 0, len(candidates))
	for _, d := range candidates {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	SortDocuments(out, q.Order)
	return Window(out, q.Offset, q.Limit)
}

func toList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return false
}

// compareValues orders numbers numerically, strings lexically and booleans
// false < true. Mixed kinds are incomparable.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	switch at := a.(type) {
	case string:
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(at, bs), true
	case bool:
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case at == bb:
			return 0, true
		case !at:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}
