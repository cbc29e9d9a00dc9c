package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for further events before
// reporting a batch.
const DefaultDebounce = 200 * time.Millisecond

// ChangeCallback receives the slash-separated tree paths changed since the
// last call, sorted and deduplicated.
type ChangeCallback func(paths []string)

// Watch starts an fsnotify watcher on the content root and reports file
// changes until ctx is cancelled. Events are debounced: a burst of writes
// becomes one callback. Any change can alter the reference graph, so the
// caller typically rebuilds.
//
// New directories created at runtime are automatically added to the watch
// list and the files already inside them are reported.
func Watch(ctx context.Context, root string, logger *slog.Logger, debounce time.Duration, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			logger.Debug("watcher: changes", slog.Int("count", len(paths)))
			if cb != nil {
				cb(paths)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					for _, rel := range filesUnder(root, absPath) {
						schedule(rel)
					}
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ignored(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			schedule(filepath.ToSlash(rel))

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// ignored reports editor and atomic-write temporaries.
func ignored(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}

// filesUnder lists the files in a newly created directory.
func filesUnder(root, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || ignored(p) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
