package lib

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// Watch runs the task once, then reruns it whenever a stylesheet under one
// of the file set directories changes. Compile failures are logged and never
// end the watch; configuration errors do.
func (r *Runner) Watch(ctx context.Context) error {
	if r.log != nil {
		ctx = withLogger(ctx, r.log)
	}
	log := loggerFrom(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for _, set := range r.cfg.FileSets {
		if err := addWatchTree(w, set.Dir); err != nil {
			return &ConfigError{Msg: "watching " + set.Dir, Err: err}
		}
	}

	cfg := r.cfg
	cfg.FailOnError = false
	rr := *r
	rr.cfg = cfg

	if err := rr.runOnce(ctx); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				_ = addWatchTree(w, ev.Name)
			}
			if !NewFileEntry(ev.Name).isStylesheet() {
				continue
			}
			log.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case <-fire:
			fire = nil
			if err := rr.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	st, err := r.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	loggerFrom(ctx).Info("compiled", "succeeded", st.Succeeded, "empty", st.Empty, "failed", st.Failed)
	return nil
}

func addWatchTree(w *fsnotify.Watcher, root string) error {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
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
