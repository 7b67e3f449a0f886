package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file on write events and invokes onReload with
// the freshly loaded Config. Structural fields that require a restart
// (database dialect/DSN, server addresses) are still picked up, but callers
// should only act on the fields they know are safe to change live
// (thresholds, caps, log level) per spec.md §9's tunables-not-constants note.
// Watch blocks until stop is closed or the watcher's event or error channel
// closes; watcher errors are logged and do not end the loop. It returns an
// error only when the watcher cannot be created or path cannot be added.
func Watch(path string, stop <-chan struct{}, onReload func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				slog.Warn("config: reload failed, keeping previous config", "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				slog.Warn("config: reloaded config failed validation, ignoring", "error", err)
				continue
			}
			onReload(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "error", err)
		}
	}
}
