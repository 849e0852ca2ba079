package types

import (
	"fmt"
	"strings"
)

// PlanProjectInfo is the project metadata block of an AI-generated plan.
type PlanProjectInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PlanFeature is one feature entry of an AI-generated plan. Type carries the
// feature kind as a string ("CRUD", "AUTH", ...); the planner prompt pins the
// vocabulary but the value is re-parsed defensively downstream. Some model
// outputs use "configuration" instead of "config", so both keys are accepted.
type PlanFeature struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Config        map[string]any `json:"config,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// ConfigMap returns the feature's configuration payload regardless of which
// JSON key the model emitted it under. Never nil.
func (f PlanFeature) ConfigMap() map[string]any {
	if f.Config != nil {
		return f.Config
	}
	if f.Configuration != nil {
		return f.Configuration
	}
	return map[string]any{}
}

// ProjectPlan is the structured output the planner extracts from a model
// response: updated project metadata plus the full desired feature set.
type ProjectPlan struct {
	ProjectInfo PlanProjectInfo `json:"project_info"`
	Features    []PlanFeature   `json:"features"`
}

// Validate checks the minimal shape contract: a named project and a name on
// every feature entry. A plan with zero features is valid (it means "remove
// everything").
func (p *ProjectPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if strings.TrimSpace(p.ProjectInfo.Name) == "" {
		return fmt.Errorf("plan is missing project_info.name")
	}
	for i, f := range p.Features {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("plan feature %d has no name", i)
		}
	}
	return nil
}

// PlanContext carries the current wizard state into the planner so the model
// revises the existing configuration instead of starting over.
type PlanContext struct {
	ProjectInfo *PlanProjectInfo `json:"project_info,omitempty"`
	Features    []PlanFeature    `json:"features,omitempty"`
}

// PlanResult wraps a validated plan with generation metadata.
type PlanResult struct {
	Plan     *ProjectPlan
	Raw      string
	Model    string
	Attempts int
}
