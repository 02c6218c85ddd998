package record

import (
	"fmt"
	"strconv"
	"strings"
)

// The wire codec is deliberately not encoding/json: the protocol's
// record form is a single-level object whose key order must survive a
// round trip and whose typing rules (numbers stay bare, the
// literal-date field stays quoted, empty values are invalid) are not
// expressible through map- or struct-based marshalling.

// MarshalFlat renders the record as a flat JSON object: id, name and
// lamportClock first, then the observation fields in insertion order.
func (r *Record) MarshalFlat() []byte {
	var b strings.Builder
	b.WriteString(`{"id":"`)
	b.WriteString(r.ID)
	b.WriteString(`","name":"`)
	b.WriteString(r.Name)
	b.WriteString(`","lamportClock":`)
	b.WriteString(strconv.Itoa(r.LamportClock))
	for _, f := range r.Fields {
		b.WriteString(`,"`)
		b.WriteString(f.Key)
		b.WriteString(`":`)
		switch v := f.Value.(type) {
		case string:
			b.WriteString(`"`)
			b.WriteString(v)
			b.WriteString(`"`)
		default:
			b.WriteString(formatValue(v))
		}
	}
	b.WriteString("}")
	return []byte(b.String())
}

// MarshalFlatArray renders records as a JSON array of flat objects.
func MarshalFlatArray(recs []*Record) []byte {
	var b strings.Builder
	b.WriteString("[")
	for i, r := range recs {
		if i > 0 {
			b.WriteString(",")
		}
		b.Write(r.MarshalFlat())
	}
	b.WriteString("]")
	return []byte(b.String())
}

// UnmarshalFlat parses a flat JSON object into a record. id and name
// must be present; an empty string value for any key is a decode error.
func UnmarshalFlat(data []byte) (*Record, error) {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("invalid json object")
	}
	body := s[1 : len(s)-1]

	rec := &Record{}
	sawName := false
	for _, pair := range splitTopLevel(body, ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := splitTopLevel(pair, ':')
		if len(kv) < 2 {
			return nil, fmt.Errorf("invalid key-value pair %q", pair)
		}
		key := strings.Trim(strings.TrimSpace(kv[0]), `"`)
		raw := strings.TrimSpace(strings.Join(kv[1:], ":"))

		quoted := strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2
		var value string
		if quoted {
			value = raw[1 : len(raw)-1]
		} else {
			value = raw
		}

		switch key {
		case "id":
			rec.ID = value
		case "name":
			rec.Name = value
			sawName = true
		case "lamportClock":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lamportClock %q", value)
			}
			rec.LamportClock = int(n)
		default:
			if value == "" {
				return nil, fmt.Errorf("empty value for key %q", key)
			}
			if quoted {
				rec.Set(key, value)
				continue
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q for key %q", value, key)
			}
			rec.Set(key, n)
		}
	}

	if rec.ID == "" {
		return nil, fmt.Errorf("missing or empty 'id' field")
	}
	if !sawName || rec.Name == "" {
		return nil, fmt.Errorf("missing or empty 'name' field")
	}
	return rec, nil
}

// UnmarshalFlatArray parses a JSON array of flat objects.
func UnmarshalFlatArray(data []byte) ([]*Record, error) {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid json array")
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}

	var recs []*Record
	depth := 0
	start := -1
	inString := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					rec, err := UnmarshalFlat([]byte(body[start : i+1]))
					if err != nil {
						return nil, err
					}
					recs = append(recs, rec)
				}
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced json array")
	}
	return recs, nil
}

// splitTopLevel splits on sep, ignoring separators inside quoted
// strings. Observation values like "15/04:00pm" carry colons.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	inString := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inString = !inString
		case s[i] == sep && !inString:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}
