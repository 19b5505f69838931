// Package watch reruns a callback when files under a dataset root change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultExcludes are base-name patterns ignored by every watcher: hidden
// files and editor droppings.
var DefaultExcludes = []string{".*", "*~", "*.swp", "*.tmp"}

// Watcher batches filesystem events below a root and reports each batch
// once the tree has been quiet for the debounce interval.
type Watcher struct {
	root     string
	debounce time.Duration
	exclude  []glob.Glob
	onChange func([]string)
	ready    chan struct{}
}

// New returns a watcher over root. onChange receives the sorted set of
// changed paths; it runs on the Run goroutine, so batches never overlap.
// Extra exclude patterns are matched against base names like DefaultExcludes.
func New(root string, debounce time.Duration, onChange func([]string), exclude ...string) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil callback")
	}
	patterns := append(slices.Clone(DefaultExcludes), exclude...)
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		exclude:  compiled,
		onChange: onChange,
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once every directory below the root is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only if watching could not start.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.root, nil); err != nil {
		return err
	}
	close(w.ready)
	slog.Debug("watching", "root", w.root, "debounce", w.debounce)

	pending := make(map[string]bool)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	schedule := func(path string) {
		pending[path] = true
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.excluded(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					var found []string
					if err := w.addRecursive(fsw, event.Name, &found); err != nil {
						slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					for _, p := range found {
						schedule(p)
					}
					continue
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule(event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			slog.Debug("change detected", "paths", len(paths))
			w.onChange(paths)
		}
	}
}

// addRecursive watches dir and every directory below it. Files already
// present are appended to found when it is non-nil, so a directory created
// and filled between events is still reported.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string, found *[]string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && w.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		if found != nil {
			*found = append(*found, path)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.exclude {
		if g.Match(base) {
			return true
		}
	}
	return false
}
