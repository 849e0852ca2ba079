package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/store"
	"github.com/backforge/backforge/telemetry"
)

// FlowMode identifies which wizard entry flow the user picked.
type FlowMode string

const (
	FlowUnselected FlowMode = ""
	FlowManual     FlowMode = "manual"
	FlowChat       FlowMode = "chat"
)

var (
	ErrModeSelected  = errors.New("flow mode already selected")
	ErrInvalidMode   = errors.New("invalid flow mode")
	ErrNotManualFlow = errors.New("not in manual flow")
	ErrNotChatFlow   = errors.New("not in chat flow")
	ErrFlowCompleted = errors.New("wizard already completed")
	ErrSaveInFlight  = errors.New("a save is already in flight")
	ErrForwardJump   = errors.New("cannot jump forward past unvalidated steps")
)

// Controller drives the wizard flow: ModeUnselected, then ManualFlow (steps
// 1..StepCount) or ChatFlow, then Completed once the manual flow advances past
// the last step.
//
// Persistence side effects run optimistically: a failed save is recorded on
// LastSyncError and surfaced to the user, but never blocks the in-memory step
// advance. Every side effect is idempotent, so the next advance or an explicit
// save retries cleanly. A single in-flight flag serializes side-effect runs;
// there is no queue.
type Controller struct {
	mu          sync.Mutex
	state       State
	mode        FlowMode
	genMode     string
	saving      bool
	lastFetched []models.Feature
	lastSyncErr error

	projects store.ProjectStore
	features store.FeatureStore
	tel      telemetry.Client
}

// NewController creates a controller in the mode-unselected state.
func NewController(projects store.ProjectStore, features store.FeatureStore, tel telemetry.Client) *Controller {
	if tel == nil {
		tel = telemetry.NewNoopClient()
	}
	return &Controller{
		state:    NewState(),
		projects: projects,
		features: features,
		tel:      tel,
	}
}

// SelectMode picks the entry flow. Valid only while no mode is selected.
// For the manual flow, resumeStep positions the wizard (0 means step 1).
func (c *Controller) SelectMode(mode FlowMode, resumeStep int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != FlowUnselected {
		return ErrModeSelected
	}
	switch mode {
	case FlowManual:
		c.mode = FlowManual
		c.genMode = string(models.ModeManual)
		if resumeStep >= StepProjectInfo && resumeStep <= StepCount {
			c.state = c.state.GoToStep(resumeStep)
		}
	case FlowChat:
		c.mode = FlowChat
		c.genMode = string(models.ModeAI)
	default:
		return ErrInvalidMode
	}
	c.tel.Track("wizard_mode_selected", telemetry.Properties{"mode": string(mode)})
	return nil
}

// Advance validates the current step and, on success, runs the step's
// persistence side effects and increments the step. A non-empty error map
// means validation failed and the step did not change; the error return
// reports flow-state problems only, never a failed save.
func (c *Controller) Advance(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	if c.mode != FlowManual {
		c.mu.Unlock()
		return nil, ErrNotManualFlow
	}
	if c.state.Step > StepCount {
		c.mu.Unlock()
		return nil, ErrFlowCompleted
	}
	if errs := ValidateStep(c.state, c.state.Step); len(errs) > 0 {
		c.mu.Unlock()
		return errs, nil
	}
	if c.saving {
		c.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	c.saving = true
	step := c.state.Step
	c.mu.Unlock()

	syncErr := c.runSideEffects(ctx, step)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	c.lastSyncErr = syncErr
	c.state = c.state.NextStep()
	c.tel.Track("wizard_step_advanced", telemetry.Properties{"from_step": step})
	if c.state.Step > StepCount {
		c.tel.Track("wizard_completed", nil)
	}
	return nil, nil
}

// Retreat steps back one step, floored at the first. It never runs side
// effects.
func (c *Controller) Retreat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != FlowManual {
		return
	}
	c.state = c.state.PrevStep()
}

// JumpTo repositions to an earlier step. Forward jumps are rejected so no
// step's validation can be skipped.
func (c *Controller) JumpTo(step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != FlowManual {
		return ErrNotManualFlow
	}
	if step >= c.state.Step {
		return ErrForwardJump
	}
	c.state = c.state.GoToStep(step)
	return nil
}

// CompleteChat hands a chat-mode project over to the manual flow at the
// download step, once its plan has been applied and the user is ready to
// package the result.
func (c *Controller) CompleteChat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != FlowChat {
		return ErrNotChatFlow
	}
	c.mode = FlowManual
	c.state = c.state.GoToStep(StepDownload)
	c.tel.Track("chat_completed", nil)
	return nil
}

// Completed reports whether the manual flow has advanced past the last step.
func (c *Controller) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == FlowManual && c.state.Step > StepCount
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the selected flow mode.
func (c *Controller) Mode() FlowMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Saving reports whether a side-effect run is in flight.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// LastSyncError returns the outcome of the most recent side-effect run, nil
// when it succeeded. Surfaced to the user as a sync status, never fatal.
func (c *Controller) LastSyncError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncErr
}

// LoadProject hydrates the wizard from a persisted project so an earlier
// session can be resumed.
func (c *Controller) LoadProject(ctx context.Context, id string) error {
	p, err := c.projects.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	feats, err := c.features.ListFeatures(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load project features: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Step: c.state.Step, ProjectInfo: p.Info()}.SetProjectID(p.ID).SetFeatures(feats)
	c.lastFetched = feats
	return nil
}

// UpdateProjectInfo applies a partial metadata update to the snapshot.
func (c *Controller) UpdateProjectInfo(patch ProjectInfoPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.UpdateProjectInfo(patch)
}

// AddFeature appends a feature to the snapshot.
func (c *Controller) AddFeature(f models.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.AddFeature(f)
}

// UpdateFeature applies a partial update to one feature in the snapshot.
func (c *Controller) UpdateFeature(id string, patch FeaturePatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.UpdateFeature(id, patch)
}

// RemoveFeature drops one feature from the snapshot.
func (c *Controller) RemoveFeature(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.RemoveFeature(id)
}

// SetFeatures replaces the snapshot's feature list with the authoritative
// persisted list and caches it as the baseline for the next save.
func (c *Controller) SetFeatures(features []models.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.SetFeatures(features)
	c.lastFetched = append([]models.Feature(nil), features...)
}

// SetProjectID records the durable project identifier, once.
func (c *Controller) SetProjectID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.SetProjectID(id)
}

func (c *Controller) runSideEffects(ctx context.Context, step int) error {
	switch step {
	case StepProjectInfo:
		return c.saveProject(ctx)
	case StepFeatures, StepConfiguration:
		return c.saveFeatures(ctx)
	case StepDownload:
		return c.completeProject(ctx)
	}
	return nil
}

// saveProject upserts the project metadata: create on first save, update
// afterwards. The durable ID from a create is adopted into the snapshot.
func (c *Controller) saveProject(ctx context.Context) error {
	c.mu.Lock()
	info := c.state.ProjectInfo
	id := c.state.ProjectID
	genMode := c.genMode
	c.mu.Unlock()

	if id == "" {
		p, err := c.projects.CreateProject(ctx, info, genMode)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		c.mu.Lock()
		c.state = c.state.SetProjectID(p.ID)
		c.mu.Unlock()
		c.tel.Track("project_created", telemetry.Properties{"generation_mode": genMode})
		return nil
	}

	_, err := c.projects.UpdateProject(ctx, id, map[string]any{
		"name":        info.Name,
		"description": info.Description,
		"environment": string(info.Environment),
	})
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// saveFeatures pushes the in-memory selection to the platform. Features are
// matched by exact name against the last persisted list: matched records get
// an update, unmatched ones a create (adopting the durable ID). Partial
// failures are collected; the run is safe to repeat.
func (c *Controller) saveFeatures(ctx context.Context) error {
	c.mu.Lock()
	projectID := c.state.ProjectID
	local := append([]models.Feature(nil), c.state.Features...)
	previous := append([]models.Feature(nil), c.lastFetched...)
	c.mu.Unlock()

	if projectID == "" {
		return errors.New("no project to save features to")
	}

	// Prefer the server's current list as the matching baseline so a retry
	// after a partial failure does not re-create features.
	if fetched, err := c.features.ListFeatures(ctx, projectID); err == nil {
		previous = fetched
	}

	var errs []error
	for _, f := range local {
		if prev, ok := featureByName(previous, f.Name); ok {
			_, err := c.features.UpdateFeature(ctx, prev.ID, map[string]any{
				"feature_type":    string(models.KindOf(f)),
				"generation_mode": string(f.Mode),
				"status":          string(f.Status),
				"configuration":   f.Config,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("update feature %q: %w", f.Name, err))
			}
			continue
		}
		created, err := c.features.CreateFeature(ctx, projectID, f)
		if err != nil {
			errs = append(errs, fmt.Errorf("create feature %q: %w", f.Name, err))
			continue
		}
		if created.ID != "" && created.ID != f.ID {
			c.mu.Lock()
			c.state = c.state.AdoptFeatureID(f.ID, created.ID)
			c.mu.Unlock()
		}
	}

	fetched, err := c.features.ListFeatures(ctx, projectID)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh features: %w", err))
	} else {
		c.mu.Lock()
		c.lastFetched = fetched
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// completeProject marks the project completed once the final step passes.
func (c *Controller) completeProject(ctx context.Context) error {
	c.mu.Lock()
	id := c.state.ProjectID
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	_, err := c.projects.UpdateProject(ctx, id, map[string]any{
		"status": string(models.ProjectCompleted),
	})
	if err != nil {
		return fmt.Errorf("mark project completed: %w", err)
	}
	return nil
}

func featureByName(features []models.Feature, name string) (models.Feature, bool) {
	for _, f := range features {
		if f.Name == name {
			return f, true
		}
	}
	return models.Feature{}, false
}
