// Package stage defines the port interface for calling one configured
// stage service.
package stage

import (
	"context"
	"encoding/json"

	"github.com/parleybot/parley/internal/pipeline"
)

// Caller issues one request/response call to a stage service. The raw
// response is normalized by the stage's formatter; transport failures and
// timeouts surface as errors and are converted to per-call fallbacks by
// the orchestrator.
type Caller interface {
	Call(ctx context.Context, spec *pipeline.StageSpec, payload any) (json.RawMessage, error)
}
