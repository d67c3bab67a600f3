package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher re-runs a callback whenever a file that may feed the merge changes.
// It watches the directories of every layer (recursively below glob layers)
// and the config file's directory.
type Watcher struct {
	cfg      *Config
	log      hclog.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the layers of cfg. A zero debounce
// selects DefaultDebounce.
func NewWatcher(cfg *Config, log hclog.Logger, debounce time.Duration) (*Watcher, error) {
	if log == nil {
		log = hclog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	fw := &Watcher{cfg: cfg, log: log.Named("watch"), debounce: debounce, watcher: w}
	if err := fw.addPaths(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return fw, nil
}

// Watch blocks until ctx is cancelled, calling onChange after each debounced
// burst of relevant events. Calls to onChange never overlap, and none is
// running once Watch returns. onChange errors are logged and watching goes on.
// The underlying fsnotify watcher is closed on return.
func (w *Watcher) Watch(ctx context.Context, onChange func() error) error {
	defer w.watcher.Close()
	d := newDebouncer(w.debounce)
	defer d.stop()

	w.log.Info("watching for changes", "dirs", len(w.watcher.WatchList()), "debounce_ms", w.debounce.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if ev.Op&fsnotify.Create != 0 {
				// new directories below a glob layer must be watched too
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.watcher.Add(ev.Name); err != nil {
						w.log.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			d.trigger(func() {
				if err := onChange(); err != nil {
					w.log.Error("reload failed", "error", err)
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) addPaths() error {
	dirs := make(map[string]bool)
	if w.cfg.Path != "" {
		dirs[filepath.Dir(w.cfg.Path)] = false
	}
	for _, layer := range w.cfg.Layers {
		p := w.cfg.resolve(layer.Path)
		if isGlob(layer.Path) {
			dirs[globBase(p)] = true
		} else if _, seen := dirs[filepath.Dir(p)]; !seen {
			dirs[filepath.Dir(p)] = false
		}
	}
	for dir, recursive := range dirs {
		if err := w.add(dir, recursive); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) add(dir string, recursive bool) error {
	if _, err := os.Stat(dir); err != nil {
		w.log.Debug("not watching missing directory", "path", dir)
		return nil
	}
	if !recursive {
		return w.watcher.Add(dir)
	}
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", path, err)
			}
		}
		return nil
	})
}

// relevant filters out chmod events and files no layer can read.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if w.cfg.Path != "" && filepath.Clean(ev.Name) == w.cfg.Path {
		return true
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	for _, layer := range w.cfg.Layers {
		if layer.Format != "" {
			// extensionless files can only feed layers with an explicit format
			return true
		}
	}
	return false
}

// globBase returns the longest directory prefix of pattern without glob metacharacters.
func globBase(pattern string) string {
	i := strings.IndexAny(pattern, "*?[{")
	if i < 0 {
		return filepath.Dir(pattern)
	}
	return filepath.Dir(pattern[:i+1])
}

// debouncer collapses bursts of triggers into one call after a quiet period.
// Calls never overlap: a call that comes due while another runs waits for it.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	run      sync.Mutex // held while fn runs
	timer    *time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.run.Lock()
		defer d.run.Unlock()
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

// stop cancels pending calls and waits for a running one to finish.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.run.Lock()
	d.run.Unlock()
}
