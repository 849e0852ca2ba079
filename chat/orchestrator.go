// Package chat sequences chat-mode turns: prompt in, AI plan out, plan
// reconciled against the persisted feature set, wizard state refreshed from
// the authoritative result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/planner"
	"github.com/backforge/backforge/reconcile"
	"github.com/backforge/backforge/store"
	"github.com/backforge/backforge/telemetry"
	"github.com/backforge/backforge/types"
	"github.com/backforge/backforge/wizard"
)

// ErrTurnInFlight is returned when a message is submitted while a previous
// turn is still running. Turns are strictly sequential per project.
var ErrTurnInFlight = errors.New("a chat turn is already in flight")

// StateSink is the wizard surface a chat turn drives. *wizard.Controller
// implements it.
type StateSink interface {
	State() wizard.State
	SetProjectID(id string)
	UpdateProjectInfo(patch wizard.ProjectInfoPatch)
	SetFeatures(features []models.Feature)
}

// Orchestrator runs chat turns end-to-end. Every failure path appends an
// assistant transcript entry and leaves the wizard state untouched; nothing
// here is fatal.
type Orchestrator struct {
	mu         sync.Mutex
	inFlight   bool
	transcript []Message

	sink     StateSink
	planner  planner.Planner
	projects store.ProjectStore
	features store.FeatureStore
	history  *History
	tel      telemetry.Client
}

// NewOrchestrator wires a chat session. history may be nil for an ephemeral
// transcript; tel may be nil.
func NewOrchestrator(sink StateSink, p planner.Planner, projects store.ProjectStore, features store.FeatureStore, history *History, tel telemetry.Client) *Orchestrator {
	if tel == nil {
		tel = telemetry.NewNoopClient()
	}
	return &Orchestrator{
		sink:     sink,
		planner:  p,
		projects: projects,
		features: features,
		history:  history,
		tel:      tel,
	}
}

// InFlight reports whether a turn is currently running. The UI disables
// submission while true.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Transcript returns a copy of the session transcript in order.
func (o *Orchestrator) Transcript() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.transcript...)
}

// Send runs one chat turn: append the user message, invoke the planner with
// the current project context, upsert the project, reconcile the plan against
// the persisted feature list, and refresh the wizard from the authoritative
// result. The returned message is the assistant's reply.
func (o *Orchestrator) Send(ctx context.Context, text string) (Message, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return Message{}, ErrTurnInFlight
	}
	o.inFlight = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	st := o.sink.State()
	o.append(ctx, st.ProjectID, RoleUser, text)

	res, err := o.planner.GeneratePlan(ctx, text, buildContext(st))
	if err != nil {
		return o.append(ctx, st.ProjectID, RoleAssistant, "I couldn't generate a plan: "+err.Error()), nil
	}
	plan := res.Plan
	if plan == nil || plan.Features == nil {
		return o.append(ctx, st.ProjectID, RoleAssistant, "The planner returned an unusable plan; your project was left unchanged. Please rephrase and try again."), nil
	}

	projectID := st.ProjectID
	if projectID == "" {
		info := models.ProjectInfo{
			Name:        plan.ProjectInfo.Name,
			Description: plan.ProjectInfo.Description,
			Environment: models.EnvDevelopment,
		}
		p, err := o.projects.CreateProject(ctx, info, string(models.ModeAI))
		if err != nil {
			return o.append(ctx, st.ProjectID, RoleAssistant, "Creating the project failed: "+err.Error()), nil
		}
		projectID = p.ID
		o.sink.SetProjectID(p.ID)
		if o.history != nil {
			_ = o.history.AdoptProject(ctx, p.ID)
		}
		o.tel.Track("project_created", telemetry.Properties{"generation_mode": string(models.ModeAI)})
	} else {
		_, err := o.projects.UpdateProject(ctx, projectID, map[string]any{
			"name":        plan.ProjectInfo.Name,
			"description": plan.ProjectInfo.Description,
		})
		if err != nil {
			return o.append(ctx, projectID, RoleAssistant, "Updating the project failed: "+err.Error()), nil
		}
	}
	o.sink.UpdateProjectInfo(infoPatch(plan.ProjectInfo))

	previous, err := o.features.ListFeatures(ctx, projectID)
	if err != nil {
		return o.append(ctx, projectID, RoleAssistant, "Fetching the current features failed: "+err.Error()), nil
	}

	ops := reconcile.Plan(previous, plan.Features)
	applyErr := reconcile.Apply(ctx, o.features, projectID, ops)

	// Always refresh from the store, never from locally computed operations:
	// the persistence layer may normalize fields, and after a partial failure
	// the fetched list is the only truthful one.
	fetched, err := o.features.ListFeatures(ctx, projectID)
	if err != nil {
		return o.append(ctx, projectID, RoleAssistant, "Refreshing the feature list failed: "+err.Error()), nil
	}
	o.sink.SetFeatures(fetched)

	o.tel.Track("chat_turn", telemetry.Properties{
		"plan_features": len(plan.Features),
		"creates":       len(ops.Creates),
		"updates":       len(ops.Updates),
		"deletes":       len(ops.Deletes),
	})

	return o.append(ctx, projectID, RoleAssistant, buildSummary(plan, applyErr)), nil
}

// append records a transcript entry in memory and, best effort, in history.
func (o *Orchestrator) append(ctx context.Context, projectID string, role Role, content string) Message {
	m := Message{ProjectID: projectID, Role: role, Content: content}
	if o.history != nil {
		if stored, err := o.history.Append(ctx, projectID, role, content); err == nil {
			m = stored
		}
	}
	o.mu.Lock()
	o.transcript = append(o.transcript, m)
	o.mu.Unlock()
	return m
}

// buildContext converts the wizard snapshot into planner context. Nil when
// the project has no state yet, so a first prompt starts from scratch.
func buildContext(st wizard.State) *types.PlanContext {
	if st.ProjectInfo.Name == "" && len(st.Features) == 0 {
		return nil
	}
	pc := &types.PlanContext{}
	if st.ProjectInfo.Name != "" {
		pc.ProjectInfo = &types.PlanProjectInfo{
			Name:        st.ProjectInfo.Name,
			Description: st.ProjectInfo.Description,
		}
	}
	for _, f := range st.Features {
		pc.Features = append(pc.Features, types.PlanFeature{
			Name:   f.Name,
			Type:   string(models.KindOf(f)),
			Config: f.Config,
		})
	}
	return pc
}

func infoPatch(pi types.PlanProjectInfo) wizard.ProjectInfoPatch {
	patch := wizard.ProjectInfoPatch{}
	if pi.Name != "" {
		patch.Name = &pi.Name
	}
	if pi.Description != "" {
		patch.Description = &pi.Description
	}
	return patch
}

// buildSummary renders the human-readable turn summary enumerating the plan's
// feature names and kinds.
func buildSummary(plan *types.ProjectPlan, applyErr error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated %s with %d feature(s):\n", plan.ProjectInfo.Name, len(plan.Features))
	for _, f := range plan.Features {
		kind := models.ParseKind(f.Type)
		if kind == "" {
			kind = models.KindCRUD
		}
		fmt.Fprintf(&sb, "  - %s (%s)\n", f.Name, kind)
	}
	if applyErr != nil {
		fmt.Fprintf(&sb, "Some changes could not be saved and will be retried on your next message: %v\n", applyErr)
	}
	return strings.TrimRight(sb.String(), "\n")
}
