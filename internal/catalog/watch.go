package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LaravelPlus/commander/internal/logging"
)

// reloadDelay coalesces bursts of file events into one reload.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the catalog when command files change, until ctx is done.
// onReload, if set, is called after each reload.
func (c *Catalog) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := 0
	for _, dir := range c.commandDirs() {
		watched += addTree(w, dir)
	}
	if watched == 0 {
		w.Close()
		logging.Debug().Msg("no command directories to watch")
		return nil
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						addTree(w, ev.Name)
					}
				}
				if !isCommandFile(ev.Name) && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				c.Reload()
				logging.Info().Int("commands", c.Count()).Msg("command catalog reloaded")
				if onReload != nil {
					onReload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Error().Err(err).Msg("command watcher error")
			}
		}
	}()

	return nil
}

func addTree(w *fsnotify.Watcher, root string) int {
	n := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err == nil {
				n++
			}
		}
		return nil
	})
	return n
}

func isCommandFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
