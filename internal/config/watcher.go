package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"clarity/internal/logging"
)

// debounce collapses editor write bursts into one reload.
const debounce = 250 * time.Millisecond

// Watch reloads the config whenever the file changes and delivers each
// new version to the returned channel. The watcher shuts down with the
// context and closes the channel on exit.
func Watch(ctx context.Context, path string) (<-chan *UserConfig, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace the file on save, which
	// drops a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan *UserConfig, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerC = timer.C
				} else {
					timer.Reset(debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryBoot).Warn("config watcher error: %v", err)
			case <-timerC:
				cfg, err := Load(path)
				if err != nil {
					logging.Get(logging.CategoryBoot).Warn("config reload failed: %v", err)
					continue
				}
				logging.Boot("config reloaded from %s", path)
				if err := logging.ReloadConfig(); err != nil {
					logging.Get(logging.CategoryBoot).Warn("logging reload failed: %v", err)
				}
				select {
				case out <- cfg:
				default:
				}
			}
		}
	}()
	return out, nil
}
