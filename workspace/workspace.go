// Package workspace holds the generated-code preview for a project: an
// in-memory file tree the user can inspect and edit before the backend
// definition is synced back from the edited sources.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/store"
)

// Generator produces preview files for a project definition and parses edited
// files back into features. *store.APIStore implements it.
type Generator interface {
	Preview(ctx context.Context, info models.ProjectInfo, features []models.Feature) (store.PreviewFiles, error)
	SyncFromFiles(ctx context.Context, projectID string, files store.PreviewFiles) error
}

// Workspace is the editable preview tree. Files live on an afero filesystem,
// in memory by default, so edits never touch the user's disk until Export.
type Workspace struct {
	mu    sync.Mutex
	fs    afero.Fs
	dirty map[string]bool

	gen      Generator
	features store.FeatureStore
}

// New creates an empty workspace backed by an in-memory filesystem.
func New(gen Generator, features store.FeatureStore) *Workspace {
	return &Workspace{
		fs:       afero.NewMemMapFs(),
		dirty:    make(map[string]bool),
		gen:      gen,
		features: features,
	}
}

// Refresh regenerates the preview from the current project definition and
// replaces the whole tree. Local edits are discarded; callers should check
// Dirty first and confirm with the user.
func (w *Workspace) Refresh(ctx context.Context, info models.ProjectInfo, features []models.Feature) error {
	files, err := w.gen.Preview(ctx, info, features)
	if err != nil {
		return fmt.Errorf("generate preview: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fs = afero.NewMemMapFs()
	w.dirty = make(map[string]bool)
	for path, content := range files {
		if err := w.writeLocked(path, content); err != nil {
			return err
		}
	}
	return nil
}

// Files lists the preview paths in stable order.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	_ = afero.Walk(w.fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		out = append(out, strings.TrimPrefix(path, "/"))
		return nil
	})
	sort.Strings(out)
	return out
}

// Read returns one preview file's content.
func (w *Workspace) Read(path string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := afero.ReadFile(w.fs, "/"+strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// Write replaces one preview file's content and marks it dirty.
func (w *Workspace) Write(path, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path = strings.TrimPrefix(path, "/")
	if err := w.writeLocked(path, content); err != nil {
		return err
	}
	w.dirty[path] = true
	return nil
}

func (w *Workspace) writeLocked(path, content string) error {
	full := "/" + path
	if dir := filepath.Dir(full); dir != "/" {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(w.fs, full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Dirty lists paths edited since the last Refresh or Sync, in stable order.
func (w *Workspace) Dirty() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.dirty))
	for p := range w.dirty {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the whole tree as a path-to-content map.
func (w *Workspace) Snapshot() store.PreviewFiles {
	files := store.PreviewFiles{}
	for _, p := range w.Files() {
		if content, err := w.Read(p); err == nil {
			files[p] = content
		}
	}
	return files
}

// Sync pushes the edited tree back to the platform, which re-derives the
// project's features from the sources. Returns the refreshed authoritative
// feature list so the caller can update wizard state.
func (w *Workspace) Sync(ctx context.Context, projectID string) ([]models.Feature, error) {
	if err := w.gen.SyncFromFiles(ctx, projectID, w.Snapshot()); err != nil {
		return nil, fmt.Errorf("sync from files: %w", err)
	}
	features, err := w.features.ListFeatures(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("refresh features: %w", err)
	}

	w.mu.Lock()
	w.dirty = make(map[string]bool)
	w.mu.Unlock()
	return features, nil
}

// Export writes the preview tree to a directory on disk so the user can open
// it in an editor. Existing files are overwritten.
func (w *Workspace) Export(dir string) error {
	for path, content := range w.Snapshot() {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
	}
	return nil
}

// Import reads edited files from an exported directory back into the
// workspace, marking changed files dirty.
func (w *Workspace) Import(dir string) error {
	for _, path := range w.Files() {
		full := filepath.Join(dir, filepath.FromSlash(path))
		b, err := os.ReadFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("import %s: %w", path, err)
		}
		current, err := w.Read(path)
		if err != nil {
			return err
		}
		if string(b) != current {
			if err := w.Write(path, string(b)); err != nil {
				return err
			}
		}
	}
	return nil
}
