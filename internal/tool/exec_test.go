package tool

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func execOutcome(t *testing.T, res any) ExecOutcome {
	t.Helper()
	outcome, ok := res.(ExecOutcome)
	if !ok {
		t.Fatalf("expected ExecOutcome, got %T", res)
	}
	return outcome
}

func execFailureOutcome(t *testing.T, err error, kind string) ExecOutcome {
	t.Helper()
	f := AsFailure(err)
	if f == nil {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	if f.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, f.Kind, f.Message)
	}
	outcome, ok := f.Details.(ExecOutcome)
	if !ok {
		t.Fatalf("expected ExecOutcome details, got %T", f.Details)
	}
	return outcome
}

func TestExec_NodeVersion(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{"command": "node", "args": []string{"-v"}})
	res, err := e.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	outcome := execOutcome(t, res)
	if outcome.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %d (stderr: %s)", outcome.ExitCode, outcome.Stderr)
	}
	if strings.TrimSpace(outcome.Stdout) == "" {
		t.Fatal("expected version output on stdout")
	}
	if outcome.TimedOut || outcome.StdoutTruncated {
		t.Fatalf("unexpected flags: %+v", outcome)
	}
}

func TestExec_PolicyRejections(t *testing.T) {
	e := NewExec(t.TempDir(), time.Second, 0)

	raw, _ := json.Marshal(map[string]any{"command": "bash", "args": []string{"-c", "true"}})
	_, err := e.Execute(context.Background(), raw)
	if kind := failureKind(t, err); kind != KindCommandNotAllowed {
		t.Fatalf("unexpected kind: %s", kind)
	}

	raw, _ = json.Marshal(map[string]any{"command": "git", "args": []string{"-C", "/"}})
	_, err = e.Execute(context.Background(), raw)
	if kind := failureKind(t, err); kind != KindDisallowedArgument {
		t.Fatalf("unexpected kind: %s", kind)
	}
}

func TestExec_NonZeroExit(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{
		"command": "node",
		"args":    []string{"-e", "console.error('boom'); process.exit(3)"},
	})
	_, err := e.Execute(context.Background(), raw)
	outcome := execFailureOutcome(t, err, KindNonZeroExit)
	if outcome.ExitCode != 3 {
		t.Fatalf("unexpected exit code: %d", outcome.ExitCode)
	}
	if !strings.Contains(outcome.Stderr, "boom") {
		t.Fatalf("expected captured stderr, got %q", outcome.Stderr)
	}
}

func TestExec_Timeout(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{
		"command":   "node",
		"args":      []string{"-e", "setInterval(() => {}, 1000)"},
		"timeoutMs": 300,
	})
	started := time.Now()
	_, err := e.Execute(context.Background(), raw)
	outcome := execFailureOutcome(t, err, KindTimeout)
	if !outcome.TimedOut {
		t.Fatal("expected timedOut flag")
	}
	if outcome.Signal != "SIGKILL" {
		t.Fatalf("unexpected signal: %q", outcome.Signal)
	}
	// Wait returned, so the process group is gone; the call must not have
	// lingered anywhere near the default timeout.
	if time.Since(started) > 5*time.Second {
		t.Fatalf("timeout took too long: %v", time.Since(started))
	}
}

func TestExec_Aborted(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	raw, _ := json.Marshal(map[string]any{"command": "node", "args": []string{"-v"}})
	_, err := e.Execute(ctx, raw)
	if kind := failureKind(t, err); kind != KindAborted {
		t.Fatalf("unexpected kind: %s", kind)
	}

	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	raw, _ = json.Marshal(map[string]any{
		"command": "node",
		"args":    []string{"-e", "setInterval(() => {}, 1000)"},
	})
	_, err = e.Execute(ctx, raw)
	outcome := execFailureOutcome(t, err, KindAborted)
	if outcome.TimedOut {
		t.Fatal("cancellation must not set the timedOut flag")
	}
}

func TestExec_StdinRoundTrip(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{
		"command": "node",
		"args":    []string{"-e", "process.stdin.pipe(process.stdout)"},
		"stdin":   "ping\n",
	})
	res, err := e.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out := execOutcome(t, res).Stdout; out != "ping\n" {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestExec_OutputTruncation(t *testing.T) {
	requireBinary(t, "node")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{
		"command":        "node",
		"args":           []string{"-e", "process.stdout.write('x'.repeat(5000))"},
		"maxOutputBytes": 1000,
	})
	res, err := e.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	outcome := execOutcome(t, res)
	if len(outcome.Stdout) != 1000 {
		t.Fatalf("expected exactly 1000 bytes, got %d", len(outcome.Stdout))
	}
	if outcome.Stdout != strings.Repeat("x", 1000) {
		t.Fatal("prefix not preserved verbatim")
	}
	if !outcome.StdoutTruncated || outcome.StderrTruncated {
		t.Fatalf("unexpected truncation flags: %+v", outcome)
	}
}

func TestExec_SpawnFailure(t *testing.T) {
	requireBinary(t, "git")
	// A workdir that does not exist fails at spawn, before any output.
	e := NewExec("/nonexistent/toolguard-test-dir", time.Second, 0)

	raw, _ := json.Marshal(map[string]any{"command": "git", "args": []string{"status"}})
	_, err := e.Execute(context.Background(), raw)
	f := AsFailure(err)
	if f == nil || f.Kind != KindSpawnFailed {
		t.Fatalf("expected SPAWN_FAILED, got %v", err)
	}
	if f.Details != nil {
		t.Fatal("spawn failure must not carry an outcome")
	}
}

func TestExec_GitVersion(t *testing.T) {
	requireBinary(t, "git")
	e := NewExec(t.TempDir(), 10*time.Second, 0)

	raw, _ := json.Marshal(map[string]any{"command": "git", "args": []string{"--version"}})
	res, err := e.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(execOutcome(t, res).Stdout, "git version") {
		t.Fatal("expected git version output")
	}
}
