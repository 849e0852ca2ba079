package planner

import (
	"context"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/types"
)

// Planner is the AI planning collaborator: an opaque function from a prompt
// and the current project context to a validated plan. The chat orchestrator
// and the per-feature AI assist both consume it; failures surface as plain
// errors and never touch wizard state.
type Planner interface {
	// GeneratePlan produces an exhaustive project plan from a natural-language
	// request, refining planCtx when the project already has state.
	GeneratePlan(ctx context.Context, prompt string, planCtx *types.PlanContext) (*types.PlanResult, error)

	// GenerateConfig produces a kind-specific configuration payload for one
	// feature, starting from base (which may carry reference context such as
	// registered CRUD tables).
	GenerateConfig(ctx context.Context, kind models.FeatureKind, prompt string, base map[string]any) (map[string]any, error)
}
