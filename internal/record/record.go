package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LiteralDateField is the one observation field that always stays a
// string, even though its value looks numeric (e.g. "20230715160000").
const LiteralDateField = "local_date_time_full"

var validate = validator.New()

// Field is one observation key/value pair. Values are either float64
// or string; insertion order is significant and preserved end to end.
type Field struct {
	Key   string
	Value any
}

// Record is the latest known reading for one weather station.
type Record struct {
	ID           string `validate:"required"`
	Name         string `validate:"required"`
	LamportClock int
	Fields       []Field
}

// New creates a record with no observation fields.
func New(id, name string) *Record {
	return &Record{ID: id, Name: name}
}

// Set replaces the value for key in place, or appends it when the key
// is new, keeping insertion order stable.
func (r *Record) Set(key string, value any) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
}

// Lookup returns the value for key and whether it exists.
func (r *Record) Lookup(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// FieldMap flattens the record into stringified key/value pairs,
// including id and name. Used by publishers for structural comparison
// during read-after-write verification.
func (r *Record) FieldMap() map[string]string {
	m := make(map[string]string, len(r.Fields)+2)
	m["id"] = r.ID
	m["name"] = r.Name
	for _, f := range r.Fields {
		m[f.Key] = formatValue(f.Value)
	}
	return m
}

// Validate checks the structural requirements shared by every decode
// path: id and name must be present.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid station record: %w", err)
	}
	return nil
}

// typedValue applies the codec typing rule: values parse as numbers
// unless the key is the literal-date field or numeric parsing fails.
func typedValue(key, raw string) any {
	if key == LiteralDateField {
		return raw
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

// formatValue renders a field value the way both codecs emit it.
// Floats drop their trailing zeros so integral readings stay integral.
func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseFeed parses a producer's local feed file: one key:value pair per
// line, split on the first colon. An empty key or value anywhere, or a
// missing id, rejects the whole feed.
func ParseFeed(content string) (*Record, error) {
	rec := &Record{}
	seen := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("invalid feed line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return nil, fmt.Errorf("empty key or value in feed line %q", line)
		}
		seen = true
		switch key {
		case "id":
			rec.ID = value
		case "name":
			rec.Name = value
		default:
			rec.Set(key, typedValue(key, value))
		}
	}
	if !seen {
		return nil, fmt.Errorf("feed is empty")
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("feed is missing required field: id")
	}
	return rec, nil
}
