package tool

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExecRequest is the validated, bounded form of an exec invocation. It is
// constructed only by parseExecRequest and is immutable for the rest of the
// call.
type ExecRequest struct {
	Command        string
	Args           []string
	Stdin          string
	Timeout        time.Duration
	MaxOutputBytes int
}

// parseExecRequest validates the untrusted argument object against the closed
// exec schema. Defaults come from the tool configuration; every bound is
// checked here so the policy engine and process runner only ever see a
// well-formed request.
func parseExecRequest(raw json.RawMessage, defTimeout time.Duration, defMaxOutput int) (ExecRequest, error) {
	obj, err := decodeObject(raw, "command", "args", "stdin", "timeoutMs", "maxOutputBytes")
	if err != nil {
		return ExecRequest{}, err
	}

	command, err := obj.stringField("command", "")
	if err != nil {
		return ExecRequest{}, err
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return ExecRequest{}, FailDetail(KindInvalidInput,
			"field \"command\" is required", map[string]any{"field": "command"})
	}

	args, err := obj.stringSliceField("args")
	if err != nil {
		return ExecRequest{}, err
	}
	if len(args) > MaxExecArgs {
		return ExecRequest{}, FailDetail(KindInvalidInput,
			fmt.Sprintf("field \"args\" has %d elements, limit is %d", len(args), MaxExecArgs),
			map[string]any{"field": "args", "max": MaxExecArgs})
	}
	for i, arg := range args {
		if len(arg) > MaxExecArgLen {
			return ExecRequest{}, FailDetail(KindInvalidInput,
				fmt.Sprintf("field \"args[%d]\" is %d chars, limit is %d", i, len(arg), MaxExecArgLen),
				map[string]any{"field": "args", "index": i, "max": MaxExecArgLen})
		}
		if strings.ContainsRune(arg, 0) {
			return ExecRequest{}, FailDetail(KindInvalidInput,
				fmt.Sprintf("field \"args[%d]\" contains a NUL byte", i),
				map[string]any{"field": "args", "index": i})
		}
	}

	stdin, err := obj.stringField("stdin", "")
	if err != nil {
		return ExecRequest{}, err
	}
	if len(stdin) > MaxExecStdin {
		return ExecRequest{}, FailDetail(KindInvalidInput,
			fmt.Sprintf("field \"stdin\" is %d bytes, limit is %d", len(stdin), MaxExecStdin),
			map[string]any{"field": "stdin", "max": MaxExecStdin})
	}

	timeoutMs, err := obj.intField("timeoutMs", int(defTimeout/time.Millisecond), 1, int(MaxExecTimeout/time.Millisecond))
	if err != nil {
		return ExecRequest{}, err
	}
	maxOutput, err := obj.intField("maxOutputBytes", defMaxOutput, 1, MaxExecOutputBytes)
	if err != nil {
		return ExecRequest{}, err
	}

	if args == nil {
		args = []string{}
	}
	return ExecRequest{
		Command:        command,
		Args:           args,
		Stdin:          stdin,
		Timeout:        time.Duration(timeoutMs) * time.Millisecond,
		MaxOutputBytes: maxOutput,
	}, nil
}
