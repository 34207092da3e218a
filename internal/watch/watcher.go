package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// Source delivers filesystem change notifications.
type Source interface {
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	// Observe lets the source react to an event before it is filtered,
	// e.g. to start watching a newly created directory.
	Observe(ev fsnotify.Event)
	Close() error
}

// Watcher is an fsnotify Source that watches directory trees recursively.
// Directories below any skip root, and hidden directories, are not watched.
type Watcher struct {
	fsw    *fsnotify.Watcher
	skip   []string
	logger *slog.Logger
}

// NewWatcher watches every directory below roots.
func NewWatcher(roots, skip []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "create fsnotify watcher").Fatal().Build()
	}
	w := &Watcher{fsw: fsw, logger: logger}
	for _, s := range skip {
		w.skip = append(w.skip, Canonical(s))
	}
	for _, root := range roots {
		if err := w.addDirsRecursive(Canonical(root)); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) Events() <-chan fsnotify.Event { return w.fsw.Events }
func (w *Watcher) Errors() <-chan error          { return w.fsw.Errors }
func (w *Watcher) Close() error                  { return w.fsw.Close() }

// Observe starts watching directories created after startup.
func (w *Watcher) Observe(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
		if err := w.addDirsRecursive(Canonical(ev.Name)); err != nil {
			w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
		}
	}
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string { return w.fsw.WatchList() }

func (w *Watcher) skipped(dir string) bool {
	for _, s := range w.skip {
		if within(s, dir) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		w.logger.Debug("Watch root not present", logfields.Path(root))
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryWatch, "watch directory").
				Fatal().WithContext("path", path).Build()
		}
		return nil
	})
}
