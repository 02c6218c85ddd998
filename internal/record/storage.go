package record

import (
	"fmt"
	"strconv"
	"strings"
)

// StorageLine renders the record for the on-disk snapshot: one line of
// comma-separated key:value pairs, id first, then name and
// lamportClock, then the observation fields in insertion order.
func (r *Record) StorageLine() string {
	var b strings.Builder
	b.WriteString("id:")
	b.WriteString(r.ID)
	b.WriteString(",name:")
	b.WriteString(r.Name)
	b.WriteString(",lamportClock:")
	b.WriteString(strconv.Itoa(r.LamportClock))
	for _, f := range r.Fields {
		b.WriteString(",")
		b.WriteString(f.Key)
		b.WriteString(":")
		b.WriteString(formatValue(f.Value))
	}
	return b.String()
}

// FromStorageLine parses one snapshot line back into a record. A line
// without an id, or with a non-integer lamportClock, is rejected; the
// caller skips such lines instead of aborting the whole load.
func FromStorageLine(line string) (*Record, error) {
	rec := &Record{}
	sawID := false
	for _, part := range strings.Split(line, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid storage pair %q", part)
		}
		switch key {
		case "id":
			rec.ID = value
			sawID = true
		case "name":
			rec.Name = value
		case "lamportClock":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid lamportClock %q: %w", value, err)
			}
			rec.LamportClock = n
		default:
			rec.Set(key, typedValue(key, value))
		}
	}
	if !sawID || rec.ID == "" {
		return nil, fmt.Errorf("missing 'id' in storage line")
	}
	return rec, nil
}
