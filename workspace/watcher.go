package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors an exported preview directory and reports edits in
// debounced batches, so a save-heavy editor session produces one sync prompt
// instead of dozens.
type Watcher struct {
	basePath  string
	watcher   *fsnotify.Watcher
	debouncer *changeDebouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over dir. onChange receives the relative paths
// of changed files after the edits settle.
func NewWatcher(dir string, onChange func(paths []string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		basePath:  dir,
		watcher:   fw,
		debouncer: newChangeDebouncer(onChange),
		ctx:       ctx,
		cancel:    cancel,
	}
	return w, nil
}

// Start begins watching. The directory is walked recursively; directories
// created later are added as they appear.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.basePath); err != nil {
		return fmt.Errorf("add watch paths: %w", err)
	}
	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
	w.debouncer.stop()
	w.wg.Wait()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.basePath, event.Name)
	if err != nil {
		return
	}
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return
	}
	w.debouncer.add(filepath.ToSlash(rel))
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// changeDebouncer batches rapid file changes behind a settle delay.
type changeDebouncer struct {
	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	onFlush func([]string)
	delay   time.Duration
	stopped bool
}

func newChangeDebouncer(onFlush func([]string)) *changeDebouncer {
	return &changeDebouncer{
		pending: make(map[string]bool),
		onFlush: onFlush,
		delay:   500 * time.Millisecond,
	}
}

func (d *changeDebouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *changeDebouncer) flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]bool)
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

func (d *changeDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
