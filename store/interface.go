package store

import (
	"context"
	"errors"

	"github.com/backforge/backforge/models"
)

// ErrNotFound is returned when a project or feature does not exist.
var ErrNotFound = errors.New("record not found")

// ProjectStore defines persistence operations for projects. Implementations
// include the hosted platform API and the local draft file store.
type ProjectStore interface {
	// CreateProject persists a new project and returns it with its durable ID.
	CreateProject(ctx context.Context, info models.ProjectInfo, generationMode string) (models.Project, error)

	// GetProject retrieves a project by ID. Returns ErrNotFound if missing.
	GetProject(ctx context.Context, id string) (models.Project, error)

	// UpdateProject applies a partial update and returns the updated project.
	// Updates use the persistence layer's field names (name, description,
	// environment, status).
	UpdateProject(ctx context.Context, id string, updates map[string]any) (models.Project, error)

	// DeleteProject removes a project and its features.
	DeleteProject(ctx context.Context, id string) error

	// ListProjects returns all projects visible to the caller.
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// FeatureStore defines persistence operations for features within a project.
type FeatureStore interface {
	// ListFeatures returns the authoritative feature list for a project.
	ListFeatures(ctx context.Context, projectID string) ([]models.Feature, error)

	// CreateFeature persists a new feature and returns it with its durable ID.
	CreateFeature(ctx context.Context, projectID string, f models.Feature) (models.Feature, error)

	// UpdateFeature applies a partial update by durable feature ID.
	UpdateFeature(ctx context.Context, id string, updates map[string]any) (models.Feature, error)

	// DeleteFeature removes a feature by durable ID.
	DeleteFeature(ctx context.Context, id string) error
}

// Store combines project and feature persistence. Both backends implement it.
type Store interface {
	ProjectStore
	FeatureStore

	// Close releases any resources held by the store, such as file locks.
	Close() error
}
