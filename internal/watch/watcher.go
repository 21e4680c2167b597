package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/posform-export/constants"
)

type Config struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit folders that already hold documents
	Debounce    time.Duration // quiet period before a folder is emitted
}

// Start watches the roots and emits the folder of every document that is
// created, written or renamed into place. Bursts within Debounce are merged
// so a folder is emitted once per burst. Both channels close when ctx ends.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	pending := map[string]struct{}{}
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && isHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && isDocument(path) {
				pending[filepath.Dir(path)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			logger.Error("watch.root.failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	folders := make(chan string, 64)
	errs := make(chan error, 1)
	go loop(ctx, w, cfg.Debounce, pending, folders, errs, logger)
	return folders, errs, nil
}

func loop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, pending map[string]struct{}, folders chan<- string, errs chan<- error, logger *slog.Logger) {
	defer close(folders)
	defer close(errs)
	defer func() { _ = w.Close() }()

	flush := func() bool {
		dirs := make([]string, 0, len(pending))
		for d := range pending {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		for _, d := range dirs {
			select {
			case folders <- d:
				delete(pending, d)
			case <-ctx.Done():
				return false
			}
		}
		return true
	}
	if !flush() {
		return
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 && !isHidden(e.Name) {
				watchIfDir(w, e.Name, logger)
			}
			if !isDocument(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending[filepath.Dir(e.Name)] = struct{}{}
			if debounce <= 0 {
				if !flush() {
					return
				}
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			if !flush() {
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("watch.error", "error", err)
			select {
			case errs <- err:
			default:
			}
		}
	}
}

func isDocument(path string) bool {
	return !isHidden(path) && constants.IsAllowedExt(filepath.Ext(path))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// watchIfDir adds path to w when it is a directory created under a root.
// inotify accepts plain files too, so documents are filtered out here.
func watchIfDir(w *fsnotify.Watcher, path string, logger *slog.Logger) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := w.Add(path); err != nil {
		logger.Warn("watch.add.failed", "path", path, "error", err)
		return false
	}
	return true
}
