package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// rawObject is a decoded request object whose fields are validated one by
// one. Unknown fields are rejected up front so nothing unvalidated can pass
// through to an engine.
type rawObject map[string]json.RawMessage

// decodeObject parses raw as a JSON object and verifies that every present
// field is one of the allowed names. A nil/empty raw decodes as an empty
// object so that tools with all-optional fields accept an absent argument
// payload.
func decodeObject(raw json.RawMessage, allowed ...string) (rawObject, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return rawObject{}, nil
	}
	var obj rawObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, Failf(KindInvalidInput, "arguments must be a JSON object: %v", err)
	}
	for name := range obj {
		if !containsString(allowed, name) {
			return nil, FailDetail(KindInvalidInput,
				fmt.Sprintf("unknown field %q", name),
				map[string]any{"field": name})
		}
	}
	return obj, nil
}

// intField returns the named field as an integer clamped-checked against the
// inclusive [min, max] range, or def when the field is absent. Non-integer
// numbers (1.5, "7", true) are rejected, not coerced.
func (o rawObject) intField(name string, def, min, max int) (int, error) {
	raw, ok := o[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return def, nil
	}
	token := bytes.TrimSpace(raw)
	if len(token) == 0 || token[0] == '"' {
		// json.Number would coerce a quoted "5000"; only bare literals count.
		return 0, rangeFailure(name, min, max, "must be an integer")
	}
	var num json.Number
	if err := json.Unmarshal(token, &num); err != nil {
		return 0, rangeFailure(name, min, max, "must be an integer")
	}
	v, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, rangeFailure(name, min, max, "must be an integer")
	}
	if v < int64(min) || v > int64(max) {
		return 0, rangeFailure(name, min, max, fmt.Sprintf("out of range: %d", v))
	}
	return int(v), nil
}

// stringField returns the named field as a string, def when absent.
func (o rawObject) stringField(name, def string) (string, error) {
	raw, ok := o[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", FailDetail(KindInvalidInput,
			fmt.Sprintf("field %q must be a string", name),
			map[string]any{"field": name})
	}
	return s, nil
}

// stringSliceField returns the named field as a string array, nil when absent.
func (o rawObject) stringSliceField(name string) ([]string, error) {
	raw, ok := o[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, FailDetail(KindInvalidInput,
			fmt.Sprintf("field %q must be an array of strings", name),
			map[string]any{"field": name})
	}
	return out, nil
}

func rangeFailure(name string, min, max int, reason string) *Failure {
	return FailDetail(KindInvalidInput,
		fmt.Sprintf("field %q %s", name, reason),
		map[string]any{"field": name, "min": min, "max": max})
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
