package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
)

// catalogWatcher watches the catalog file and invokes onChange after writes
// settle. The containing directory is watched because editors replace files
// by rename, which drops a watch on the file itself.
type catalogWatcher struct {
	path     string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	stop    chan struct{}
	changes chan struct{}
}

func newCatalogWatcher(path string, debounce time.Duration, onChange func()) (*catalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.DaemonError("failed to resolve catalog path").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.DaemonError("failed to watch catalog directory").
			WithCause(err).
			WithContext("path", filepath.Dir(abs)).
			Build()
	}

	return &catalogWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		stop:     make(chan struct{}),
		changes:  make(chan struct{}, 1),
	}, nil
}

func (w *catalogWatcher) Start(ctx context.Context) {
	slog.Info("Watching catalog", logfields.Path(w.path))
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
}

func (w *catalogWatcher) Stop() {
	close(w.stop)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Failed to close file watcher", logfields.Error(err))
	}
}

func (w *catalogWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				if event.Op&fsnotify.Remove != 0 {
					slog.Warn("Catalog file removed", logfields.Path(event.Name))
				}
				continue
			}
			slog.Debug("Catalog change detected", logfields.Path(event.Name))
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Catalog watcher error", logfields.Error(err))
		}
	}
}

func (w *catalogWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changes:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onChange)
		}
	}
}
