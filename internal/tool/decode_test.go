package tool

import (
	"encoding/json"
	"testing"
	"time"
)

func failureKind(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected a failure")
	}
	f := AsFailure(err)
	if f == nil {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	return f.Kind
}

func TestParseExecRequest_Defaults(t *testing.T) {
	raw := json.RawMessage(`{"command": "git"}`)
	req, err := parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.Command != "git" || len(req.Args) != 0 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Timeout != 60*time.Second {
		t.Fatalf("unexpected default timeout: %v", req.Timeout)
	}
	if req.MaxOutputBytes != 200_000 {
		t.Fatalf("unexpected default output cap: %d", req.MaxOutputBytes)
	}
}

func TestParseExecRequest_RejectsUnknownField(t *testing.T) {
	raw := json.RawMessage(`{"command": "git", "shell": true}`)
	_, err := parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if kind := failureKind(t, err); kind != KindInvalidInput {
		t.Fatalf("unexpected kind: %s", kind)
	}
}

func TestParseExecRequest_RejectsNonObject(t *testing.T) {
	for _, raw := range []string{`"git"`, `[1,2]`, `42`} {
		_, err := parseExecRequest(json.RawMessage(raw), DefaultExecTimeout, DefaultExecOutputBytes)
		if kind := failureKind(t, err); kind != KindInvalidInput {
			t.Fatalf("input %s: unexpected kind %s", raw, kind)
		}
	}
}

func TestParseExecRequest_NumericBounds(t *testing.T) {
	cases := []string{
		`{"command": "git", "timeoutMs": 0}`,
		`{"command": "git", "timeoutMs": 120001}`,
		`{"command": "git", "timeoutMs": 1.5}`,
		`{"command": "git", "timeoutMs": "5000"}`,
		`{"command": "git", "maxOutputBytes": 1000001}`,
		`{"command": "git", "maxOutputBytes": -1}`,
	}
	for _, raw := range cases {
		_, err := parseExecRequest(json.RawMessage(raw), DefaultExecTimeout, DefaultExecOutputBytes)
		if kind := failureKind(t, err); kind != KindInvalidInput {
			t.Fatalf("input %s: unexpected kind %s", raw, kind)
		}
	}

	req, err := parseExecRequest(json.RawMessage(`{"command": "git", "timeoutMs": 120000}`), DefaultExecTimeout, DefaultExecOutputBytes)
	if err != nil {
		t.Fatalf("boundary value rejected: %v", err)
	}
	if req.Timeout != 120*time.Second {
		t.Fatalf("unexpected timeout: %v", req.Timeout)
	}
}

func TestParseExecRequest_ArgBounds(t *testing.T) {
	args := make([]string, MaxExecArgs+1)
	for i := range args {
		args[i] = "x"
	}
	raw, _ := json.Marshal(map[string]any{"command": "git", "args": args})
	_, err := parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if kind := failureKind(t, err); kind != KindInvalidInput {
		t.Fatalf("unexpected kind: %s", kind)
	}

	long := make([]byte, MaxExecArgLen+1)
	for i := range long {
		long[i] = 'a'
	}
	raw, _ = json.Marshal(map[string]any{"command": "git", "args": []string{string(long)}})
	_, err = parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if kind := failureKind(t, err); kind != KindInvalidInput {
		t.Fatalf("unexpected kind: %s", kind)
	}

	raw, _ = json.Marshal(map[string]any{"command": "git", "args": []string{"sta\x00tus"}})
	_, err = parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if kind := failureKind(t, err); kind != KindInvalidInput {
		t.Fatalf("unexpected kind: %s", kind)
	}
}

func TestParseExecRequest_MissingCommand(t *testing.T) {
	_, err := parseExecRequest(json.RawMessage(`{}`), DefaultExecTimeout, DefaultExecOutputBytes)
	if kind := failureKind(t, err); kind != KindInvalidInput {
		t.Fatalf("unexpected kind: %s", kind)
	}
}

func TestParseFetchRequest_DefaultsAndBounds(t *testing.T) {
	req, err := parseFetchRequest(json.RawMessage(`{"url": "https://example.com"}`),
		DefaultFetchTimeout, DefaultFetchBodyBytes, DefaultFetchRedirects)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.Timeout != 15*time.Second || req.MaxBytes != 500_000 || req.MaxRedirects != 3 {
		t.Fatalf("unexpected defaults: %+v", req)
	}

	// maxRedirects of zero is valid: follow nothing.
	req, err = parseFetchRequest(json.RawMessage(`{"url": "https://example.com", "maxRedirects": 0}`),
		DefaultFetchTimeout, DefaultFetchBodyBytes, DefaultFetchRedirects)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.MaxRedirects != 0 {
		t.Fatalf("unexpected maxRedirects: %d", req.MaxRedirects)
	}

	cases := []string{
		`{}`,
		`{"url": ""}`,
		`{"url": "https://example.com", "maxRedirects": 6}`,
		`{"url": "https://example.com", "timeoutMs": 30001}`,
		`{"url": "https://example.com", "maxBytes": 0}`,
		`{"url": "https://example.com", "follow": true}`,
	}
	for _, raw := range cases {
		_, err := parseFetchRequest(json.RawMessage(raw),
			DefaultFetchTimeout, DefaultFetchBodyBytes, DefaultFetchRedirects)
		if kind := failureKind(t, err); kind != KindInvalidInput {
			t.Fatalf("input %s: unexpected kind %s", raw, kind)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	raw := json.RawMessage(`{"command": "git", "args": ["status"], "timeoutMs": 5000}`)
	first, err1 := parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	second, err2 := parseExecRequest(raw, DefaultExecTimeout, DefaultExecOutputBytes)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errs: %v / %v", err1, err2)
	}
	if first.Command != second.Command || first.Timeout != second.Timeout ||
		len(first.Args) != len(second.Args) {
		t.Fatalf("parsing is not stable: %+v vs %+v", first, second)
	}

	bad := json.RawMessage(`{"command": "git", "timeoutMs": -3}`)
	_, e1 := parseExecRequest(bad, DefaultExecTimeout, DefaultExecOutputBytes)
	_, e2 := parseExecRequest(bad, DefaultExecTimeout, DefaultExecOutputBytes)
	if failureKind(t, e1) != failureKind(t, e2) {
		t.Fatal("classification is not stable")
	}
}
