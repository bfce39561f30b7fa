package tool

import (
	"context"
	"encoding/json"
)

// Tool is the common abstraction for all guardrailed tool backends. Execute
// receives the raw, untrusted argument object and returns a structured result
// payload, or an error that carries (or is classified by the runner into) one
// of the Failure kinds.
type Tool interface {
	Name() string
	Execute(ctx context.Context, raw json.RawMessage) (any, error)
}
