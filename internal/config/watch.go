package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// Watch reloads the file at path whenever it is written and hands the new
// Config to onChange. A reload that fails to parse or validate is logged and
// the previous config stays in effect. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save.
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config watch %s: %w", dir, err)
	}

	log := logger.Named("config")
	log.Info(ctx, "watching config file", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := LoadFile(ctx, path)
			if err != nil {
				metrics.RecordConfigReload(false)
				log.Error(ctx, "config reload failed, keeping previous config",
					logger.String("path", path), logger.Error(err))
				continue
			}
			metrics.RecordConfigReload(true)
			log.Info(ctx, "config reloaded", logger.String("path", path))
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "config watcher error", logger.Error(err))
		}
	}
}
