package record

import (
	"strings"
	"testing"
)

func TestParseFeed(t *testing.T) {
	feed := "id:IDS60901\n" +
		"name:Adelaide (West Terrace / ngayirdapira)\n" +
		"state:SA\n" +
		"air_temp:13.3\n" +
		"local_date_time:15/04:00pm\n" +
		"local_date_time_full:20230715160000\n" +
		"wind_spd_kt:8\n"

	rec, err := ParseFeed(feed)
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if rec.ID != "IDS60901" {
		t.Errorf("ID = %q, want IDS60901", rec.ID)
	}
	if rec.Name != "Adelaide (West Terrace / ngayirdapira)" {
		t.Errorf("Name = %q", rec.Name)
	}

	if v, _ := rec.Lookup("air_temp"); v != 13.3 {
		t.Errorf("air_temp = %v (%T), want 13.3 (float64)", v, v)
	}
	// Value containing a colon splits on the first colon only.
	if v, _ := rec.Lookup("local_date_time"); v != "15/04:00pm" {
		t.Errorf("local_date_time = %v, want 15/04:00pm", v)
	}
	// The literal-date field stays a string despite looking numeric.
	if v, _ := rec.Lookup(LiteralDateField); v != "20230715160000" {
		t.Errorf("%s = %v (%T), want string", LiteralDateField, v, v)
	}
	if v, _ := rec.Lookup("wind_spd_kt"); v != 8.0 {
		t.Errorf("wind_spd_kt = %v (%T), want 8 (float64)", v, v)
	}
}

func TestParseFeedRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing id":  "name:Adelaide\nair_temp:13.3\n",
		"empty value": "id:IDS60901\nair_temp:\n",
		"empty key":   "id:IDS60901\n:13.3\n",
		"no colon":    "id:IDS60901\nair_temp\n",
		"empty feed":  "\n\n",
	}
	for name, feed := range cases {
		if _, err := ParseFeed(feed); err == nil {
			t.Errorf("%s: expected error, got none", name)
		}
	}
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	rec := New("IDS60901", "Adelaide")
	rec.Set("air_temp", 13.3)
	rec.Set("cloud", "Partly cloudy")
	rec.Set("air_temp", 15.0) // replace in place

	if len(rec.Fields) != 2 {
		t.Fatalf("Fields length = %d, want 2", len(rec.Fields))
	}
	if rec.Fields[0].Key != "air_temp" || rec.Fields[0].Value != 15.0 {
		t.Errorf("first field = %+v, want air_temp=15", rec.Fields[0])
	}
	if rec.Fields[1].Key != "cloud" {
		t.Errorf("second field = %+v, want cloud", rec.Fields[1])
	}
}

func TestFieldMapStringifiesValues(t *testing.T) {
	rec := New("IDS60901", "Adelaide")
	rec.Set("air_temp", 23.5)
	rec.Set("wind_spd_kt", 8.0)
	rec.Set("cloud", "Clear")

	m := rec.FieldMap()
	want := map[string]string{
		"id":          "IDS60901",
		"name":        "Adelaide",
		"air_temp":    "23.5",
		"wind_spd_kt": "8",
		"cloud":       "Clear",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("FieldMap[%q] = %q, want %q", k, m[k], v)
		}
	}
}

func TestValidateRequiresIDAndName(t *testing.T) {
	rec := New("", "Adelaide")
	if err := rec.Validate(); err == nil {
		t.Error("expected error for missing id")
	}
	rec = New("IDS60901", "")
	if err := rec.Validate(); err == nil {
		t.Error("expected error for missing name")
	}
	rec = New("IDS60901", "Adelaide")
	if err := rec.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFormatValueDropsTrailingZeros(t *testing.T) {
	if got := formatValue(60.0); got != "60" {
		t.Errorf("formatValue(60.0) = %q, want 60", got)
	}
	if got := formatValue(13.3); got != "13.3" {
		t.Errorf("formatValue(13.3) = %q, want 13.3", got)
	}
	if got := formatValue("SA"); got != "SA" {
		t.Errorf("formatValue(SA) = %q", got)
	}
	if got := formatValue(-0.5); !strings.HasPrefix(got, "-0.5") {
		t.Errorf("formatValue(-0.5) = %q", got)
	}
}
