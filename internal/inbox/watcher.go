// Package inbox watches a drop directory for canvas export files and
// imports them into the live canvas.
package inbox

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arlide/mural/internal/storage"
)

// scanDebounce coalesces bursts of fsnotify events (editors and file
// managers often fire several per drop) into a single inbox scan.
const scanDebounce = 200 * time.Millisecond

// Importer replaces the canvas with the contents of an export file.
type Importer interface {
	Import(ctx context.Context, data []byte) (nodes, edges int, err error)
}

// Watch starts an fsnotify watcher on the inbox directory and imports
// dropped export files until ctx is cancelled. Files are removed from the
// inbox after a successful import; files that fail to parse stay in place
// and are skipped until their mod time changes.
func Watch(ctx context.Context, dir *storage.Dir, root string, importer Importer, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("inbox: started", slog.String("root", root))

	// failed remembers files that could not be imported, keyed by name,
	// so a bad file is not retried on every scan.
	failed := make(map[string]time.Time)

	scan(ctx, dir, importer, logger, failed)

	var scanTimer *time.Timer
	var scanCh <-chan time.Time

	schedule := func() {
		if scanTimer == nil {
			scanTimer = time.NewTimer(scanDebounce)
			scanCh = scanTimer.C
		} else {
			scanTimer.Reset(scanDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if scanTimer != nil {
				scanTimer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-scanCh:
			scan(ctx, dir, importer, logger, failed)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// scan imports every pending .json file, oldest first, so a directory
// holding several drops converges on the newest one.
func scan(ctx context.Context, dir *storage.Dir, importer Importer, logger *slog.Logger, failed map[string]time.Time) {
	files, err := dir.List()
	if err != nil {
		logger.Warn("inbox: list failed", slog.String("error", err.Error()))
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.Before(files[j].ModTime) })

	for _, f := range files {
		if when, ok := failed[f.Name]; ok && when.Equal(f.ModTime) {
			continue
		}

		data, err := dir.Read(f.Name)
		if err != nil {
			logger.Warn("inbox: read failed", slog.String("file", f.Name), slog.String("error", err.Error()))
			continue
		}

		nodes, edges, err := importer.Import(ctx, data)
		if err != nil {
			logger.Warn("inbox: import rejected", slog.String("file", f.Name), slog.String("error", err.Error()))
			failed[f.Name] = f.ModTime
			continue
		}
		delete(failed, f.Name)

		if err := dir.Remove(f.Name); err != nil {
			logger.Warn("inbox: remove failed", slog.String("file", f.Name), slog.String("error", err.Error()))
		}
		logger.Info("inbox: imported",
			slog.String("file", f.Name),
			slog.Int("nodes", nodes),
			slog.Int("edges", edges))
	}
}
