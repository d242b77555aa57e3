package compositor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch composes once and then again every time the frame files change.
// Failed composes are logged, the watch ends with ctx.
func (c *Compositor) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dirs := c.watchDirs()
	for _, dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			return err
		}
	}
	c.log.Info().Msgf("watching %v", dirs)

	c.composeLogged(ctx)

	timer := time.NewTimer(c.conf.Watch.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("watch has ended")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&watchOps == 0 {
				continue
			}
			rel, err := filepath.Rel(c.conf.Frames.Dir, event.Name)
			if err != nil {
				continue
			}
			if _, ok := c.pattern.Match(filepath.ToSlash(rel)); !ok {
				continue
			}
			c.log.Debug().Msgf("%v", event)
			timer.Reset(c.conf.Watch.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn().Err(err).Msg("watch error")
		case <-timer.C:
			c.composeLogged(ctx)
		}
	}
}

func (c *Compositor) composeLogged(ctx context.Context) {
	if _, err := c.Compose(ctx); err != nil && ctx.Err() == nil {
		c.log.Error().Err(err).Msg("compose has failed")
	}
}

// watchDirs lists every dir the frame names point into, the pattern may have a dir part.
func (c *Compositor) watchDirs() []string {
	if !strings.ContainsAny(c.pattern.Format, `/\`) {
		return []string{c.conf.Frames.Dir}
	}
	seen := make(map[string]struct{})
	var dirs []string
	for _, i := range c.pattern.Numbers() {
		dir := filepath.Dir(c.loader.Path(i))
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}
