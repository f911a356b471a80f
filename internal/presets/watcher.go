package presets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// Watch следит за файлом пресетов и подменяет набор в holder после каждого изменения.
// Следим за каталогом, а не за файлом: редакторы часто заменяют файл целиком.
// Невалидный файл не применяется, в holder остаётся предыдущий набор.
func Watch(ctx context.Context, path string, holder *Holder, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating presets watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", path, err)
	}

	target := filepath.Clean(path)
	reload := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case <-reload:
				p, err := Load(path)
				if err != nil {
					log.Warn("presets reload rejected", "path", path, "error", err)
					continue
				}
				holder.Set(p)
				log.Info("presets reloaded", "path", path,
					"sets", len(p.Sets), "weights", len(p.Weights), "reps", len(p.Reps))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("presets watcher error", "error", err)
			}
		}
	}()

	log.Info("watching presets file", "path", path)
	return nil
}
