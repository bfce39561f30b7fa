package tool

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ExecOutcome is the full diagnostic record of one process run. It is
// produced even when the run failed (timeout, non-zero exit) and attached to
// the failure as its details payload.
type ExecOutcome struct {
	Cwd             string   `json:"cwd"`
	Command         string   `json:"command"`
	Args            []string `json:"args"`
	ExitCode        int      `json:"exitCode"`
	Signal          string   `json:"signal,omitempty"`
	TimedOut        bool     `json:"timedOut"`
	DurationMs      int64    `json:"durationMs"`
	Stdout          string   `json:"stdout"`
	Stderr          string   `json:"stderr"`
	StdoutTruncated bool     `json:"stdoutTruncated"`
	StderrTruncated bool     `json:"stderrTruncated"`
}

// Exec runs allowlisted commands in a fixed working directory, each in its
// own process group so a timeout or cancellation tears down the command and
// every subprocess it spawned.
type Exec struct {
	workdir        string
	defaultTimeout time.Duration
	defaultMaxOut  int
}

// NewExec creates the exec tool rooted at workdir. Zero defaults fall back
// to the documented ones; everything is clamped to the hard maxima.
func NewExec(workdir string, defaultTimeout time.Duration, defaultMaxOutput int) *Exec {
	return &Exec{
		workdir:        workdir,
		defaultTimeout: clampDuration(defaultTimeout, DefaultExecTimeout, MaxExecTimeout),
		defaultMaxOut:  clampInt(defaultMaxOutput, DefaultExecOutputBytes, MaxExecOutputBytes),
	}
}

func (t *Exec) Name() string { return "exec" }

func (t *Exec) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := parseExecRequest(raw, t.defaultTimeout, t.defaultMaxOut)
	if err != nil {
		return nil, err
	}
	if err := checkCommandPolicy(req.Command, req.Args); err != nil {
		return nil, err
	}
	return t.run(ctx, req)
}

func (t *Exec) run(ctx context.Context, req ExecRequest) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, Failf(KindAborted, "aborted before spawn: %v", err)
	}

	cmd := exec.Command(req.Command, req.Args...)
	cmd.Dir = t.workdir
	// Own process group, so the negative-pid kill below reaches children
	// the command spawned, not just the command itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newCappedBuffer(req.MaxOutputBytes)
	stderr := newCappedBuffer(req.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if req.Stdin != "" {
		// strings.Reader hits EOF after the text, which closes the
		// child's stdin pipe and signals end-of-input.
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, Failf(KindSpawnFailed, "failed to start %s: %v", req.Command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	aborted := false
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		killProcessGroup(cmd.Process)
		waitErr = <-done
	case <-ctx.Done():
		aborted = true
		killProcessGroup(cmd.Process)
		waitErr = <-done
	}

	outcome := ExecOutcome{
		Cwd:             t.workdir,
		Command:         req.Command,
		Args:            req.Args,
		TimedOut:        timedOut,
		DurationMs:      time.Since(started).Milliseconds(),
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		outcome.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			outcome.Signal = unix.SignalName(status.Signal())
		}
	default:
		// Wait failed for a reason other than process exit status
		// (stdin copy error, I/O failure). The process is gone either
		// way; surface what was captured.
		return nil, FailDetail(KindExecFailed, waitErr.Error(), outcome)
	}

	switch {
	case timedOut:
		return nil, FailDetail(KindTimeout,
			"command timed out after "+req.Timeout.String(), outcome)
	case aborted:
		return nil, FailDetail(KindAborted, "command aborted", outcome)
	case outcome.ExitCode != 0:
		return nil, FailDetail(KindNonZeroExit,
			"command exited with code "+strconv.Itoa(outcome.ExitCode), outcome)
	default:
		return outcome, nil
	}
}

// killProcessGroup sends SIGKILL to the whole process group; if the group
// kill is unsupported or the group is already gone, it falls back to killing
// the single child.
func killProcessGroup(p *os.Process) {
	if p == nil || p.Pid <= 0 {
		return
	}
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		_ = p.Kill()
	}
}
