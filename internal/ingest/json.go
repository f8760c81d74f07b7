package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// textOf reads a forecast that may be a plain string or an object carrying a
// "text" field. Anything else yields "".
func textOf(r gjson.Result) string {
	switch {
	case r.Type == gjson.String:
		return r.String()
	case r.IsObject():
		if t := r.Get("text"); t.Type == gjson.String {
			return t.String()
		}
	}
	return ""
}

// numberOf reads a number that may arrive as JSON number or numeric string.
func numberOf(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Float()
		return &v
	case gjson.String:
		if v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return &v
		}
	}
	return nil
}

// firstPresent returns the first of the given paths that exists under r and
// is neither null nor an empty string.
func firstPresent(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null || (v.Type == gjson.String && v.Str == "") {
			continue
		}
		return v
	}
	return gjson.Result{}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timeOf parses an optional timestamp field, returning the zero time when it
// is absent or unparseable.
func timeOf(r gjson.Result) time.Time {
	t, _ := parseTime(r.String())
	return t
}

// timePtrOf is timeOf for fields whose absence must stay visible.
func timePtrOf(r gjson.Result) *time.Time {
	t, ok := parseTime(r.String())
	if !ok {
		return nil
	}
	return &t
}
