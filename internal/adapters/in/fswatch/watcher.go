// Package fswatch restarts a managed process when files in its directory
// change.
package fswatch

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/fsnotify/fsnotify"

	"github.com/bnema/spaceport/internal/boundaries/in"
	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

const defaultDebounce = time.Second

// ignoredDirs are never watched.
var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"__pycache__":  true,
	"node_modules": true,
	".venv":        true,
	".mypy_cache":  true,
}

// Config holds the watcher configuration.
type Config struct {
	Dir      string
	Process  string
	Debounce time.Duration
}

// Watcher debounces file system events under Dir and restarts Process.
type Watcher struct {
	config     Config
	supervisor in.SupervisorService
	events     out.EventPublisher
}

// New creates a watcher. events may be nil.
func New(config Config, supervisor in.SupervisorService, events out.EventPublisher) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = defaultDebounce
	}
	return &Watcher{
		config:     config,
		supervisor: supervisor,
		events:     events,
	}
}

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "fswatch",
		"process":             w.config.Process,
		"dir":                 w.config.Dir,
	})
	log := zerowrap.FromCtx(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return log.WrapErr(err, "failed to create file watcher")
	}
	defer fw.Close()

	if err := addRecursive(fw, w.config.Dir); err != nil {
		return log.WrapErr(err, "failed to watch directory")
	}
	log.Info().Dur("debounce", w.config.Debounce).Msg("watching for changes")

	timer := time.NewTimer(w.config.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.config.Dir, event.Name)
			if err != nil {
				rel = event.Name
			}
			if !relevant(event, rel) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories are watched as they appear.
				if err := addRecursive(fw, event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					log.Debug().Err(err).Str("path", event.Name).Msg("failed to watch new path")
				}
			}
			pending[rel] = struct{}{}
			timer.Reset(w.config.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)

			if err := w.restart(ctx, files); err != nil {
				// Keep the changes and try again once the cooldown or
				// startup is over.
				timer.Reset(w.config.Debounce)
				continue
			}
			clear(pending)
		}
	}
}

func (w *Watcher) restart(ctx context.Context, files []string) error {
	log := zerowrap.FromCtx(ctx)

	err := w.supervisor.Restart(ctx, w.config.Process)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRestartCooldown), errors.Is(err, domain.ErrNotReady):
		log.Debug().Err(err).Int(zerowrap.FieldCount, len(files)).Msg("restart deferred")
		return err
	default:
		// The supervisor applies the restart policy; a retry would only
		// repeat the failure.
		log.Warn().Err(err).Msg("restart after change failed")
	}

	log.Info().Strs("files", files).Msg("files changed, process restarted")
	if w.events != nil {
		if perr := w.events.Publish(domain.EventPreviewChanged, domain.PreviewChangedPayload{Dir: w.config.Dir, Files: files}); perr != nil {
			log.Warn().Err(perr).Msg("failed to publish event")
		}
	}
	return nil
}

// relevant reports whether an event on rel, relative to the watched
// directory, should trigger a restart.
func relevant(event fsnotify.Event, rel string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if ignoredDirs[part] {
			return false
		}
	}
	return !ignoredFile(filepath.Base(rel))
}

// ignoredFile matches editor swap and backup files and compiled bytecode.
func ignoredFile(name string) bool {
	switch {
	case strings.HasPrefix(name, ".#"),
		strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".swx"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".pyc"),
		name == "4913": // vim write probe
		return true
	}
	return false
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
