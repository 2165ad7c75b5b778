package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on the vault directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// The vault is a single flat scope, so only the root directory itself is
// watched; events for subdirectories are ignored. Rename events trigger a
// debounced reconciliation pass that re-aligns the index with the on-disk
// listing — a hierarchy move renames many files back to back, and
// reconciliation folds them into one pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !strings.HasSuffix(ev.Name, levelpath.Extension) {
				continue
			}
			name := filepath.Base(ev.Name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("name", name), slog.String("error", readErr.Error()))
					continue
				}
				// Editors save in different patterns (truncate+write,
				// write to temp + rename), so the op flags don't say
				// whether the document is new. The index does.
				prior, csErr := db.GetChecksum(name)
				if csErr != nil {
					logger.Warn("watcher: checksum lookup failed", slog.String("name", name), slog.String("error", csErr.Error()))
					continue
				}
				if idxErr := indexFile(db, name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("name", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if prior == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("name", name), slog.String("op", kind))
				if cb != nil {
					cb(kind, name)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(name); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("name", name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("name", name))
				if cb != nil {
					cb("deleted", name)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD name only; the new
				// name arrives as a separate Create event. Drop the old
				// entry now and reconcile shortly after to catch the
				// rest of a multi-rename plan.
				if delErr := db.DeleteDocument(name); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("name", name), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("name", name))
					if cb != nil {
						cb("deleted", name)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a file on disk are removed, on-disk files missing or changed in
// the index are (re)indexed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Name] = m.Checksum
	}

	for n := range checksums {
		if _, ok := disk[n]; !ok {
			if delErr := db.DeleteDocument(n); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("name", n))
				if cb != nil {
					cb("deleted", n)
				}
			}
		}
	}

	for n, cs := range disk {
		if checksums[n] == cs {
			continue
		}
		data, readErr := store.Read(n)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(db, n, data); idxErr == nil {
			kind := "updated"
			if _, indexed := checksums[n]; !indexed {
				kind = "created"
			}
			logger.Debug("reconcile: indexed", slog.String("name", n))
			if cb != nil {
				cb(kind, n)
			}
		}
	}
}
