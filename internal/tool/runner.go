package tool

import (
	"context"
	"encoding/json"
	"strings"
)

// Call represents one tool invocation request.
type Call struct {
	Name      string
	Arguments json.RawMessage
}

// Runner executes registered tools. It is the classification boundary: every
// error leaving RunOne is a *Failure with a stable kind, with INTERNAL_ERROR
// as the catch-all so no raw fault (including a panic inside a tool) escapes
// to the transport.
type Runner struct {
	registry *Registry
}

func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// Tools returns the sorted names of the registered tools.
func (r *Runner) Tools() []string {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.List()
}

func (r *Runner) RunOne(ctx context.Context, call Call) (any, *Failure) {
	if r == nil || r.registry == nil {
		return nil, Failf(KindInternalError, "tool runner is not initialized")
	}
	toolName := strings.TrimSpace(call.Name)
	if toolName == "" {
		return nil, Failf(KindInvalidInput, "empty tool name")
	}
	t, ok := r.registry.Get(toolName)
	if !ok {
		return nil, Failf(KindInvalidInput, "unknown tool: %s", toolName)
	}
	result, err := r.invoke(ctx, t, call.Arguments)
	if err != nil {
		return nil, Classify(err)
	}
	return result, nil
}

func (r *Runner) invoke(ctx context.Context, t Tool, raw json.RawMessage) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = Failf(KindInternalError, "tool %s panicked: %v", t.Name(), rec)
		}
	}()
	return t.Execute(ctx, raw)
}
