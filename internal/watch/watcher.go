// Package watch turns filesystem changes below a set of directory trees into debounced
// rebuild notifications.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Watcher watches directory trees recursively. Directories created after the watcher
// started are added as they appear.
type Watcher struct {
	name      string
	fs        *fsnotify.Watcher
	debouncer *Debouncer
}

// New watches every directory below roots. Missing roots are skipped with a warning.
// name identifies the watcher in log lines.
func New(name string, debounce time.Duration, roots ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{name: name, fs: fw, debouncer: NewDebouncer(debounce)}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			slog.Warn("Not watching missing directory", slog.String("watcher", name), logfields.Path(root))
			continue
		}
		if err := w.addRecursive(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// C delivers one notification per debounced burst of changes.
func (w *Watcher) C() <-chan struct{} {
	return w.debouncer.C()
}

// Run forwards filesystem events to the debouncer until ctx is done or the underlying
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", slog.String("watcher", w.name), logfields.Error(err))
		}
	}
}

// Close stops watching and cancels any pending notification.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fs.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ShouldIgnore(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				slog.Warn("Watch add failed", logfields.Path(ev.Name), logfields.Error(err))
			}
		}
	}
	slog.Debug("File change detected",
		slog.String("watcher", w.name),
		logfields.Path(ev.Name),
		slog.String("op", ev.Op.String()))
	w.debouncer.Trigger()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && document.IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// ShouldIgnore reports whether a change to path is noise: hidden files, editor swap and
// backup files, and OS metadata files.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)

	if document.IsHidden(base) {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	// vim probes directory writability with a file named 4913.
	return base == "Thumbs.db" || base == "4913"
}
