package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/types"
)

const defaultRequestTimeout = 30 * time.Second

// APIStore talks to the hosted platform's REST API. Projects and features are
// wrapped in singular/plural envelopes ({"project": ...}, {"features": [...]})
// and errors carry a message or error field.
type APIStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPIStore creates a platform API client. A zero timeout falls back to the
// default.
func NewAPIStore(baseURL, token string, timeout time.Duration) *APIStore {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &APIStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (s *APIStore) Close() error {
	return nil
}

// doJSON issues one request and decodes the JSON response into out (when
// non-nil). Platform error envelopes become PlatformError values; a 404 maps
// to ErrNotFound.
func (s *APIStore) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return types.NewPlatformError(fmt.Sprintf("http_%d", resp.StatusCode), msg, nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateProject implements ProjectStore.
func (s *APIStore) CreateProject(ctx context.Context, info models.ProjectInfo, generationMode string) (models.Project, error) {
	var env struct {
		Project models.Project `json:"project"`
	}
	err := s.doJSON(ctx, http.MethodPost, "/api/projects", map[string]any{
		"name":            info.Name,
		"description":     info.Description,
		"environment":     string(info.Environment),
		"generation_mode": generationMode,
	}, &env)
	return env.Project, err
}

// GetProject implements ProjectStore.
func (s *APIStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	var env struct {
		Project models.Project `json:"project"`
	}
	err := s.doJSON(ctx, http.MethodGet, "/api/projects/"+id, nil, &env)
	return env.Project, err
}

// UpdateProject implements ProjectStore.
func (s *APIStore) UpdateProject(ctx context.Context, id string, updates map[string]any) (models.Project, error) {
	var env struct {
		Project models.Project `json:"project"`
	}
	err := s.doJSON(ctx, http.MethodPut, "/api/projects/"+id, updates, &env)
	return env.Project, err
}

// DeleteProject implements ProjectStore.
func (s *APIStore) DeleteProject(ctx context.Context, id string) error {
	return s.doJSON(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil)
}

// ListProjects implements ProjectStore.
func (s *APIStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	var env struct {
		Projects []models.Project `json:"projects"`
	}
	err := s.doJSON(ctx, http.MethodGet, "/api/projects", nil, &env)
	return env.Projects, err
}

// ListFeatures implements FeatureStore.
func (s *APIStore) ListFeatures(ctx context.Context, projectID string) ([]models.Feature, error) {
	var env struct {
		Features []models.Feature `json:"features"`
	}
	err := s.doJSON(ctx, http.MethodGet, "/api/features/project/"+projectID, nil, &env)
	if err != nil {
		return nil, err
	}
	for i := range env.Features {
		env.Features[i].Normalize()
	}
	return env.Features, nil
}

// CreateFeature implements FeatureStore.
func (s *APIStore) CreateFeature(ctx context.Context, projectID string, f models.Feature) (models.Feature, error) {
	var env struct {
		Feature models.Feature `json:"feature"`
	}
	err := s.doJSON(ctx, http.MethodPost, "/api/features", map[string]any{
		"project_id":      projectID,
		"name":            f.Name,
		"feature_type":    string(models.KindOf(f)),
		"generation_mode": string(f.Mode),
		"status":          string(f.Status),
		"configuration":   f.Config,
	}, &env)
	env.Feature.Normalize()
	return env.Feature, err
}

// UpdateFeature implements FeatureStore.
func (s *APIStore) UpdateFeature(ctx context.Context, id string, updates map[string]any) (models.Feature, error) {
	var env struct {
		Feature models.Feature `json:"feature"`
	}
	err := s.doJSON(ctx, http.MethodPut, "/api/features/"+id, updates, &env)
	env.Feature.Normalize()
	return env.Feature, err
}

// DeleteFeature implements FeatureStore.
func (s *APIStore) DeleteFeature(ctx context.Context, id string) error {
	return s.doJSON(ctx, http.MethodDelete, "/api/features/"+id, nil, nil)
}

// PreviewFiles holds the generated source tree keyed by relative path.
type PreviewFiles map[string]string

// Preview asks the platform to generate the project's code without
// persisting anything, returning the file tree for inspection.
func (s *APIStore) Preview(ctx context.Context, info models.ProjectInfo, features []models.Feature) (PreviewFiles, error) {
	var env struct {
		Success bool           `json:"success"`
		Files   map[string]any `json:"files"`
	}
	err := s.doJSON(ctx, http.MethodPost, "/api/projects/preview", map[string]any{
		"projectInfo": info,
		"features":    features,
	}, &env)
	if err != nil {
		return nil, err
	}
	files := make(PreviewFiles, len(env.Files))
	for path, content := range env.Files {
		if str, ok := content.(string); ok {
			files[path] = str
		}
	}
	return files, nil
}

// SyncFromFiles pushes locally edited generated files back to the platform so
// the project's feature configuration is re-derived from them.
func (s *APIStore) SyncFromFiles(ctx context.Context, projectID string, files PreviewFiles) error {
	return s.doJSON(ctx, http.MethodPost, "/api/projects/"+projectID+"/sync-from-files", map[string]any{
		"files": files,
	}, nil)
}

// Download fetches the packaged project archive.
func (s *APIStore) Download(ctx context.Context, info models.ProjectInfo, features []models.Feature) ([]byte, error) {
	b, err := json.Marshal(map[string]any{
		"projectInfo": info,
		"features":    features,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/projects/download", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, types.NewPlatformError(fmt.Sprintf("http_%d", resp.StatusCode), "download failed", nil)
	}
	return io.ReadAll(resp.Body)
}
