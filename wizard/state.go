// Package wizard implements the project-configuration wizard: an immutable
// state snapshot, per-step validation, and the flow controller that gates
// progress and persists state as the user advances.
package wizard

import (
	"strings"

	"github.com/backforge/backforge/models"
)

// State is one immutable snapshot of the wizard. Every operation returns a
// new snapshot and never fails: invalid input (unknown feature ID, empty
// project ID, out-of-range step) leaves the snapshot unchanged. The UI layer
// must never crash mid-edit, so there is no error channel here at all.
type State struct {
	Step        int
	ProjectID   string
	ProjectInfo models.ProjectInfo
	Features    []models.Feature
}

// NewState returns the initial snapshot, positioned at the first step.
func NewState() State {
	return State{Step: StepProjectInfo, ProjectInfo: models.ProjectInfo{Environment: models.EnvDevelopment}}
}

// ProjectInfoPatch is a partial update to the project metadata. Nil fields are
// left untouched.
type ProjectInfoPatch struct {
	Name        *string
	Description *string
	Environment *models.Environment
}

// FeaturePatch is a partial update to a single feature. Nil fields are left
// untouched. A non-nil Config replaces the whole payload (and its alias).
type FeaturePatch struct {
	Name   *string
	Kind   *models.FeatureKind
	Mode   *models.GenerationMode
	Status *models.FeatureStatus
	Config map[string]any
}

// UpdateProjectInfo applies a partial metadata update.
func (s State) UpdateProjectInfo(patch ProjectInfoPatch) State {
	if patch.Name != nil {
		s.ProjectInfo.Name = *patch.Name
	}
	if patch.Description != nil {
		s.ProjectInfo.Description = *patch.Description
	}
	if patch.Environment != nil {
		s.ProjectInfo.Environment = *patch.Environment
	}
	return s
}

// AddFeature appends a feature to the selection. Ordering is insertion order.
func (s State) AddFeature(f models.Feature) State {
	f.Normalize()
	out := make([]models.Feature, len(s.Features), len(s.Features)+1)
	copy(out, s.Features)
	s.Features = append(out, f)
	return s
}

// UpdateFeature applies a partial update to the feature with the given ID.
// An unknown ID is a no-op.
func (s State) UpdateFeature(id string, patch FeaturePatch) State {
	idx := -1
	for i := range s.Features {
		if s.Features[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	out := make([]models.Feature, len(s.Features))
	copy(out, s.Features)
	f := &out[idx]
	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Kind != nil {
		f.Kind = *patch.Kind
	}
	if patch.Mode != nil {
		f.Mode = *patch.Mode
	}
	if patch.Status != nil {
		f.Status = *patch.Status
	}
	if patch.Config != nil {
		f.SetConfig(patch.Config)
	}
	f.Normalize()
	s.Features = out
	return s
}

// RemoveFeature drops the feature with the given ID. An unknown ID is a no-op.
func (s State) RemoveFeature(id string) State {
	idx := -1
	for i := range s.Features {
		if s.Features[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	out := make([]models.Feature, 0, len(s.Features)-1)
	out = append(out, s.Features[:idx]...)
	out = append(out, s.Features[idx+1:]...)
	s.Features = out
	return s
}

// SetFeatures replaces the whole selection, re-normalizing every record's
// config aliasing before storing. Used when refreshing from the persisted
// authoritative list.
func (s State) SetFeatures(features []models.Feature) State {
	out := make([]models.Feature, len(features))
	copy(out, features)
	for i := range out {
		out[i].Normalize()
	}
	s.Features = out
	return s
}

// NextStep advances one step. Validation gating lives in the flow controller;
// the snapshot transition itself is unconditional.
func (s State) NextStep() State {
	if s.Step <= StepCount {
		s.Step++
	}
	return s
}

// PrevStep retreats one step, floored at the first step.
func (s State) PrevStep() State {
	if s.Step > StepProjectInfo {
		s.Step--
	}
	return s
}

// GoToStep positions the wizard at step n. Out-of-range values are a no-op.
func (s State) GoToStep(n int) State {
	if n >= StepProjectInfo && n <= StepCount {
		s.Step = n
	}
	return s
}

// SetProjectID records the durable project identifier. It is set at most once
// per project lifetime: a second call, or an empty ID, is a no-op.
func (s State) SetProjectID(id string) State {
	if s.ProjectID != "" || strings.TrimSpace(id) == "" {
		return s
	}
	s.ProjectID = id
	return s
}

// AdoptFeatureID swaps a temporary local feature ID for the durable one the
// persistence layer assigned on create. An unknown local ID is a no-op.
func (s State) AdoptFeatureID(localID, durableID string) State {
	if strings.TrimSpace(durableID) == "" {
		return s
	}
	idx := -1
	for i := range s.Features {
		if s.Features[i].ID == localID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	out := make([]models.Feature, len(s.Features))
	copy(out, s.Features)
	out[idx].ID = durableID
	s.Features = out
	return s
}

// FeatureByID returns the feature with the given ID, if present.
func (s State) FeatureByID(id string) (models.Feature, bool) {
	for _, f := range s.Features {
		if f.ID == id {
			return f, true
		}
	}
	return models.Feature{}, false
}
