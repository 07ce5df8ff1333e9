package preview

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// Watch reloads the snapshot whenever files below the content or template
// directories change. Bursts of events cause a single reload. It blocks
// until ctx is canceled.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "cannot create file watcher").Build()
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range []string{s.cfg.Content.Directory, s.cfg.Content.Templates} {
		if dir == "" {
			continue
		}
		if err := addDirsRecursive(watcher, dir); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "cannot watch directory").WithFile(dir).Build()
		}
	}

	reload, trigger, stop := debouncer(s.debounce)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(watcher, ev.Name)
				}
			}
			s.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Stage(ev.Op.String()))
			trigger()
		case <-reload:
			if err := s.Reload(); err != nil {
				s.logger.Warn("Reload failed", logfields.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// debouncer returns a channel that fires once d after the last trigger.
func debouncer(d time.Duration) (<-chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return fire, trigger, stop
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// shouldIgnoreEvent reports events on hidden, editor swap and OS metadata
// files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
