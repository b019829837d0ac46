package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/sipico/vssv/internal/logging"
)

// Watcher reloads the configuration when the config file changes and
// applies a changed log level to a live LevelVar. Other settings need a
// restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	opts     LoadOptions
	path     string
	levelVar *slog.LevelVar
	logger   *slog.Logger
}

// NewWatcher starts watching opts.File. The file's directory is watched so
// that editors replacing the file by rename are noticed.
func NewWatcher(opts LoadOptions, levelVar *slog.LevelVar, logger *slog.Logger) (*Watcher, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}

	path, err := filepath.Abs(opts.File)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config file path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		watcher:  w,
		opts:     opts,
		path:     path,
		levelVar: levelVar,
		logger:   logger,
	}, nil
}

// Run processes file events until ctx is cancelled. A reload that fails
// validation is logged and the current level is kept.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.opts)
	if err != nil {
		w.logger.Warn("config reload failed, keeping current settings", "file", w.path, "error", err)
		return
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return
	}
	if level != w.levelVar.Level() {
		w.levelVar.Set(level)
		w.logger.Info("log level changed", "level", cfg.LogLevel)
	}
}
