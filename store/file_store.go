package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	yaml "gopkg.in/yaml.v3"

	"github.com/backforge/backforge/models"
)

const (
	defaultDataFile   = "drafts.json"
	dataFileKey       = "dataFile"
	dataFileFormatKey = "dataFileFormat"
	defaultDataFormat = "json"
	formatJSON        = "json"
	formatYAML        = "yaml"
	checksumSuffix    = ".checksum"
)

// draftDocument is the on-disk shape of the local draft store: all projects
// plus their features keyed by project ID.
type draftDocument struct {
	Projects []models.Project            `json:"projects" yaml:"projects"`
	Features map[string][]models.Feature `json:"features" yaml:"features"`
}

// FileStore implements Store using a single local file, for working on drafts
// without a platform connection. It supports JSON and YAML formats, guards
// the file with an OS-level lock, and keeps a SHA256 checksum sidecar to
// detect corruption.
type FileStore struct {
	filePath string
	format   string
	flk      *flock.Flock

	projects map[string]models.Project
	features map[string][]models.Feature
}

// NewFileStore creates a new instance of FileStore.
// It does not initialize the store; Initialize must be called separately.
func NewFileStore() *FileStore {
	return &FileStore{
		projects: make(map[string]models.Project),
		features: make(map[string][]models.Feature),
	}
}

// Initialize configures the FileStore. It expects a 'dataFile' key in the
// config map specifying the path to the data file, defaulting to
// 'drafts.json' in the current working directory. Existing drafts are loaded
// if the file exists.
func (s *FileStore) Initialize(config map[string]string) error {
	if val, ok := config[dataFileKey]; ok && val != "" {
		s.filePath = val
	} else {
		s.filePath = defaultDataFile
	}

	if val, ok := config[dataFileFormatKey]; ok && val != "" {
		formatLower := strings.ToLower(val)
		switch formatLower {
		case formatJSON, formatYAML:
			s.format = formatLower
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s. Supported formats are json, yaml", val)
		}
	} else {
		s.format = defaultDataFormat
	}

	if s.filePath == defaultDataFile && s.format != formatJSON {
		ext := filepath.Ext(s.filePath)
		s.filePath = strings.TrimSuffix(s.filePath, ext) + "." + s.format
	}

	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// flock uses the file path itself for locking
	s.flk = flock.New(s.filePath)

	locked, err := s.flk.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire initial lock for %s: %w", s.filePath, err)
	}
	if !locked {
		if err := s.flk.Lock(); err != nil {
			return fmt.Errorf("failed to acquire blocking initial lock for %s: %w", s.filePath, err)
		}
	}
	defer func() { _ = s.flk.Unlock() }()

	return s.loadInternal()
}

// Close releases the file lock.
func (s *FileStore) Close() error {
	if s.flk != nil {
		return s.flk.Unlock()
	}
	return nil
}

// calculateChecksum computes the SHA256 checksum of the given data.
func calculateChecksum(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data) // Write never returns an error
	return hex.EncodeToString(hasher.Sum(nil))
}

// loadInternal reads the draft document, verifies checksum, and unmarshals.
// Assumes the file lock is held.
func (s *FileStore) loadInternal() error {
	checksumFilePath := s.filePath + checksumSuffix

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.projects = make(map[string]models.Project)
			s.features = make(map[string][]models.Feature)
			_ = os.Remove(checksumFilePath)
			f, createErr := os.OpenFile(s.filePath, os.O_CREATE|os.O_RDWR, 0o644)
			if createErr != nil {
				return fmt.Errorf("failed to create data file %s: %w", s.filePath, createErr)
			}
			_ = f.Close()
			_ = os.WriteFile(checksumFilePath, []byte(calculateChecksum([]byte{})), 0o644)
			return nil
		}
		return fmt.Errorf("failed to read data file %s: %w", s.filePath, err)
	}

	if _, err := os.Stat(checksumFilePath); err == nil {
		expectedChecksumBytes, readErr := os.ReadFile(checksumFilePath)
		if readErr != nil {
			return fmt.Errorf("failed to read checksum file %s: %w", checksumFilePath, readErr)
		}
		expectedChecksum := strings.TrimSpace(string(expectedChecksumBytes))
		actualChecksum := calculateChecksum(data)

		if actualChecksum != expectedChecksum {
			return fmt.Errorf("checksum mismatch for %s - expected %s, got %s - file is corrupt or tampered", s.filePath, expectedChecksum, actualChecksum)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking checksum file %s: %w", checksumFilePath, err)
	}
	// A missing checksum file means pre-checksum data; load it and let the
	// next save create the sidecar.

	if len(data) == 0 {
		_ = os.WriteFile(checksumFilePath, []byte(calculateChecksum([]byte{})), 0o644)
		s.projects = make(map[string]models.Project)
		s.features = make(map[string][]models.Feature)
		return nil
	}

	var doc draftDocument
	switch s.format {
	case formatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to unmarshal JSON from %s: %w", s.filePath, err)
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from %s: %w", s.filePath, err)
		}
	default:
		return fmt.Errorf("unsupported data format for loading: %s", s.format)
	}

	s.projects = make(map[string]models.Project, len(doc.Projects))
	for _, p := range doc.Projects {
		s.projects[p.ID] = p
	}
	s.features = doc.Features
	if s.features == nil {
		s.features = make(map[string][]models.Feature)
	}
	for _, list := range s.features {
		for i := range list {
			list[i].Normalize()
		}
	}
	return nil
}

// saveInternal writes the draft document to file, then writes its checksum.
// Assumes the file lock is held.
func (s *FileStore) saveInternal() error {
	doc := draftDocument{
		Projects: make([]models.Project, 0, len(s.projects)),
		Features: s.features,
	}
	for _, p := range s.projects {
		doc.Projects = append(doc.Projects, p)
	}
	sort.Slice(doc.Projects, func(i, j int) bool {
		return doc.Projects[i].CreatedAt.Before(doc.Projects[j].CreatedAt)
	})

	var marshaledData []byte
	var err error
	switch s.format {
	case formatJSON:
		marshaledData, err = json.MarshalIndent(doc, "", "  ")
	case formatYAML:
		marshaledData, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("unsupported data format for saving: %s", s.format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal drafts: %w", err)
	}

	if err := os.WriteFile(s.filePath, marshaledData, 0o644); err != nil {
		return fmt.Errorf("failed to write data file %s: %w", s.filePath, err)
	}
	checksumFilePath := s.filePath + checksumSuffix
	if err := os.WriteFile(checksumFilePath, []byte(calculateChecksum(marshaledData)), 0o644); err != nil {
		return fmt.Errorf("failed to write checksum file %s: %w", checksumFilePath, err)
	}
	return nil
}

// withLock runs fn with the file lock held and a freshly loaded document, so
// concurrent CLI invocations cannot clobber each other's writes.
func (s *FileStore) withLock(fn func() error) error {
	if s.flk == nil {
		return errors.New("store not initialized")
	}
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", s.filePath, err)
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadInternal(); err != nil {
		return err
	}
	return fn()
}

// CreateProject implements ProjectStore.
func (s *FileStore) CreateProject(ctx context.Context, info models.ProjectInfo, generationMode string) (models.Project, error) {
	var created models.Project
	err := s.withLock(func() error {
		now := time.Now().UTC()
		created = models.Project{
			ID:             uuid.NewString(),
			Name:           info.Name,
			Description:    info.Description,
			Environment:    info.Environment,
			GenerationMode: generationMode,
			Status:         models.ProjectDraft,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.projects[created.ID] = created
		return s.saveInternal()
	})
	return created, err
}

// GetProject implements ProjectStore.
func (s *FileStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	var found models.Project
	err := s.withLock(func() error {
		p, ok := s.projects[id]
		if !ok {
			return ErrNotFound
		}
		found = p
		return nil
	})
	return found, err
}

// UpdateProject implements ProjectStore.
func (s *FileStore) UpdateProject(ctx context.Context, id string, updates map[string]any) (models.Project, error) {
	var updated models.Project
	err := s.withLock(func() error {
		p, ok := s.projects[id]
		if !ok {
			return ErrNotFound
		}
		if v, ok := updates["name"].(string); ok {
			p.Name = v
		}
		if v, ok := updates["description"].(string); ok {
			p.Description = v
		}
		if v, ok := updates["environment"].(string); ok {
			p.Environment = models.Environment(v)
		}
		if v, ok := updates["status"].(string); ok {
			p.Status = models.ProjectStatus(v)
		}
		p.UpdatedAt = time.Now().UTC()
		s.projects[id] = p
		updated = p
		return s.saveInternal()
	})
	return updated, err
}

// DeleteProject implements ProjectStore. A project's features go with it.
func (s *FileStore) DeleteProject(ctx context.Context, id string) error {
	return s.withLock(func() error {
		if _, ok := s.projects[id]; !ok {
			return ErrNotFound
		}
		delete(s.projects, id)
		delete(s.features, id)
		return s.saveInternal()
	})
}

// ListProjects implements ProjectStore, ordered by creation time.
func (s *FileStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := s.withLock(func() error {
		out = make([]models.Project, 0, len(s.projects))
		for _, p := range s.projects {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

// ListFeatures implements FeatureStore.
func (s *FileStore) ListFeatures(ctx context.Context, projectID string) ([]models.Feature, error) {
	var out []models.Feature
	err := s.withLock(func() error {
		out = append([]models.Feature(nil), s.features[projectID]...)
		return nil
	})
	return out, err
}

// CreateFeature implements FeatureStore.
func (s *FileStore) CreateFeature(ctx context.Context, projectID string, f models.Feature) (models.Feature, error) {
	var created models.Feature
	err := s.withLock(func() error {
		if _, ok := s.projects[projectID]; !ok {
			return ErrNotFound
		}
		f.ID = uuid.NewString()
		f.ProjectID = projectID
		f.Kind = models.KindOf(f)
		f.Normalize()
		s.features[projectID] = append(s.features[projectID], f)
		created = f
		return s.saveInternal()
	})
	return created, err
}

// UpdateFeature implements FeatureStore.
func (s *FileStore) UpdateFeature(ctx context.Context, id string, updates map[string]any) (models.Feature, error) {
	var updated models.Feature
	err := s.withLock(func() error {
		for pid, list := range s.features {
			for i, f := range list {
				if f.ID != id {
					continue
				}
				if v, ok := updates["name"].(string); ok {
					f.Name = v
				}
				if v, ok := updates["feature_type"].(string); ok {
					f.Kind = models.ParseKind(v)
				}
				if v, ok := updates["generation_mode"].(string); ok {
					f.Mode = models.GenerationMode(v)
				}
				if v, ok := updates["status"].(string); ok {
					f.Status = models.FeatureStatus(v)
				}
				if v, ok := updates["configuration"].(map[string]any); ok {
					f.SetConfig(v)
				}
				f.Normalize()
				s.features[pid][i] = f
				updated = f
				return s.saveInternal()
			}
		}
		return ErrNotFound
	})
	return updated, err
}

// DeleteFeature implements FeatureStore.
func (s *FileStore) DeleteFeature(ctx context.Context, id string) error {
	return s.withLock(func() error {
		for pid, list := range s.features {
			for i, f := range list {
				if f.ID == id {
					s.features[pid] = append(list[:i], list[i+1:]...)
					return s.saveInternal()
				}
			}
		}
		return ErrNotFound
	})
}
