package tool

import (
	"encoding/json"
	"strings"
	"time"
)

// FetchRequest is the validated, bounded form of a fetch invocation.
type FetchRequest struct {
	URL          string
	Timeout      time.Duration
	MaxBytes     int
	MaxRedirects int
}

// parseFetchRequest validates the untrusted argument object against the
// closed fetch schema, applying configured defaults and hard caps.
func parseFetchRequest(raw json.RawMessage, defTimeout time.Duration, defMaxBytes, defMaxRedirects int) (FetchRequest, error) {
	obj, err := decodeObject(raw, "url", "timeoutMs", "maxBytes", "maxRedirects")
	if err != nil {
		return FetchRequest{}, err
	}

	target, err := obj.stringField("url", "")
	if err != nil {
		return FetchRequest{}, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return FetchRequest{}, FailDetail(KindInvalidInput,
			"field \"url\" is required", map[string]any{"field": "url"})
	}

	timeoutMs, err := obj.intField("timeoutMs", int(defTimeout/time.Millisecond), 1, int(MaxFetchTimeout/time.Millisecond))
	if err != nil {
		return FetchRequest{}, err
	}
	maxBytes, err := obj.intField("maxBytes", defMaxBytes, 1, MaxFetchBodyBytes)
	if err != nil {
		return FetchRequest{}, err
	}
	maxRedirects, err := obj.intField("maxRedirects", defMaxRedirects, 0, MaxFetchRedirects)
	if err != nil {
		return FetchRequest{}, err
	}

	return FetchRequest{
		URL:          target,
		Timeout:      time.Duration(timeoutMs) * time.Millisecond,
		MaxBytes:     maxBytes,
		MaxRedirects: maxRedirects,
	}, nil
}
