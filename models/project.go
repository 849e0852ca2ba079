package models

import "time"

// Environment is the deployment target a project is configured for.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ProjectStatus tracks a project's overall lifecycle on the platform.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectCompleted ProjectStatus = "completed"
	ProjectDeployed  ProjectStatus = "deployed"
)

// ProjectInfo holds the user-editable project metadata owned by the wizard.
type ProjectInfo struct {
	Name        string      `json:"name" validate:"required,min=1,max=255"`
	Description string      `json:"description"`
	Environment Environment `json:"environment,omitempty" validate:"omitempty,oneof=development staging production"`
}

// Project is the platform's persisted record for a generated backend project.
type Project struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         ProjectStatus `json:"status,omitempty"`
	GenerationMode string        `json:"generation_mode,omitempty"`
	Environment    Environment   `json:"environment,omitempty"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at,omitempty"`
	Features       []Feature     `json:"features,omitempty"`
}

// Info extracts the wizard-editable metadata from a persisted project.
func (p Project) Info() ProjectInfo {
	env := p.Environment
	if env == "" {
		env = EnvDevelopment
	}
	return ProjectInfo{Name: p.Name, Description: p.Description, Environment: env}
}
