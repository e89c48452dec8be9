package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Epoch values at or above this threshold are interpreted as milliseconds.
// The cutoff corresponds to 2001-09-09 in milliseconds and 33658-09-27 in
// seconds, so no plausible transaction date is misread.
const millisThreshold = 1e12

// dateLayouts are tried in order for string-encoded dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate interprets the heterogeneous date encodings found in stored
// records, in the order the clients produced them:
//
//  1. a structured timestamp object with a "seconds" component (and optional
//     "nanoseconds"), as written by the backend SDK;
//  2. an ISO-8601 string;
//  3. a raw epoch number, milliseconds or seconds.
//
// Anything else is unparseable; ok is false and the caller rejects the
// record. parseDate itself never panics.
func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case map[string]any:
		secs, ok := numberValue(d["seconds"])
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := numberValue(d["nanoseconds"])
		return time.Unix(secs, nanos).UTC(), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d.UTC(), true
	default:
		epoch, ok := numberValue(v)
		if !ok || epoch <= 0 {
			return time.Time{}, false
		}
		if epoch >= millisThreshold {
			return time.UnixMilli(epoch).UTC(), true
		}
		return time.Unix(epoch, 0).UTC(), true
	}
}

func numberValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}
