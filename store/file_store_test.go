package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/backforge/backforge/models"
)

func newTestFileStore(t *testing.T, format string) *FileStore {
	t.Helper()
	s := NewFileStore()
	cfg := map[string]string{
		dataFileKey:       filepath.Join(t.TempDir(), "drafts."+format),
		dataFileFormatKey: format,
	}
	if err := s.Initialize(cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileStoreProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, "json")

	p, err := s.CreateProject(ctx, models.ProjectInfo{Name: "Shop", Description: "desc", Environment: models.EnvDevelopment}, "manual")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" || p.Status != models.ProjectDraft {
		t.Errorf("created = %+v", p)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil || got.Name != "Shop" {
		t.Errorf("GetProject: %+v, %v", got, err)
	}

	upd, err := s.UpdateProject(ctx, p.ID, map[string]any{"description": "new", "status": "completed"})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if upd.Description != "new" || upd.Status != models.ProjectCompleted {
		t.Errorf("updated = %+v", upd)
	}

	list, err := s.ListProjects(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListProjects: %v, %v", list, err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject after delete: %v", err)
	}
}

func TestFileStoreFeatureLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, "json")

	p, err := s.CreateProject(ctx, models.ProjectInfo{Name: "Shop", Description: "d"}, "manual")
	if err != nil {
		t.Fatal(err)
	}

	f := models.NewFeature("Products", models.KindCRUD)
	f.SetConfig(map[string]any{"table": "products"})
	created, err := s.CreateFeature(ctx, p.ID, f)
	if err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}
	if created.ID == f.ID || created.ID == "" {
		t.Error("store did not assign a new durable ID")
	}

	list, err := s.ListFeatures(ctx, p.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListFeatures: %v, %v", list, err)
	}
	if list[0].Configuration["table"] != "products" {
		t.Errorf("alias not persisted: %+v", list[0])
	}

	upd, err := s.UpdateFeature(ctx, created.ID, map[string]any{
		"name":          "Items",
		"configuration": map[string]any{"table": "items"},
	})
	if err != nil {
		t.Fatalf("UpdateFeature: %v", err)
	}
	if upd.Name != "Items" || upd.Config["table"] != "items" {
		t.Errorf("updated = %+v", upd)
	}

	if err := s.DeleteFeature(ctx, created.ID); err != nil {
		t.Fatalf("DeleteFeature: %v", err)
	}
	list, _ = s.ListFeatures(ctx, p.ID)
	if len(list) != 0 {
		t.Errorf("features after delete: %v", list)
	}

	if _, err := s.CreateFeature(ctx, "missing", f); !errors.Is(err, ErrNotFound) {
		t.Errorf("create for unknown project: %v", err)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "drafts.yaml")

	s1 := NewFileStore()
	if err := s1.Initialize(map[string]string{dataFileKey: path, dataFileFormatKey: "yaml"}); err != nil {
		t.Fatal(err)
	}
	p, err := s1.CreateProject(ctx, models.ProjectInfo{Name: "Shop", Description: "d"}, "ai")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.CreateFeature(ctx, p.ID, models.NewFeature("Auth", models.KindAuth)); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := NewFileStore()
	if err := s2.Initialize(map[string]string{dataFileKey: path, dataFileFormatKey: "yaml"}); err != nil {
		t.Fatalf("re-open: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.GetProject(ctx, p.ID)
	if err != nil || got.GenerationMode != "ai" {
		t.Errorf("reloaded project = %+v, %v", got, err)
	}
	feats, err := s2.ListFeatures(ctx, p.ID)
	if err != nil || len(feats) != 1 || feats[0].Name != "Auth" {
		t.Errorf("reloaded features = %+v, %v", feats, err)
	}
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drafts.json")

	s1 := NewFileStore()
	if err := s1.Initialize(map[string]string{dataFileKey: path}); err != nil {
		t.Fatal(err)
	}
	if _, err := s1.CreateProject(context.Background(), models.ProjectInfo{Name: "Shop", Description: "d"}, "manual"); err != nil {
		t.Fatal(err)
	}
	_ = s1.Close()

	// Tamper with the data file but leave the checksum sidecar alone.
	if err := os.WriteFile(path, []byte(`{"projects":[],"features":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s2 := NewFileStore()
	if err := s2.Initialize(map[string]string{dataFileKey: path}); err == nil {
		t.Error("tampered data file loaded without a checksum error")
		_ = s2.Close()
	}
}

func TestFileStoreRejectsUnknownFormat(t *testing.T) {
	s := NewFileStore()
	err := s.Initialize(map[string]string{
		dataFileKey:       filepath.Join(t.TempDir(), "drafts.toml"),
		dataFileFormatKey: "toml",
	})
	if err == nil {
		t.Error("unsupported format accepted")
	}
}
