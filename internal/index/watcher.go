package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reconcileDelay = 200 * time.Millisecond

// Watch follows filesystem changes under root until ctx is cancelled,
// reindexing documents and reporting each change through the callback.
//
// Directories created at runtime join the watch list. fsnotify reports a
// rename on the old path only, so renames schedule a debounced
// reconciliation that picks up the new path.
func (ix *Indexer) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	ix.logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var reconcile <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reconcileDelay)
			reconcile = timer.C
			return
		}
		timer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			ix.logger.Info("watcher: stopped")
			return nil

		case <-reconcile:
			ix.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			ix.handle(w, root, ev, schedule)

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			ix.logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func (ix *Indexer) handle(w *fsnotify.Watcher, root string, ev fsnotify.Event, schedule func()) {
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil || hidden(rel) {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, ev.Name); err != nil {
				ix.logger.Warn("watcher: add dir failed", slog.String("path", rel), slog.String("error", err.Error()))
			}
			ix.indexDir(root, ev.Name)
			return
		}
	}
	if !ix.store.IsDocument(rel) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		data, err := ix.store.Read(rel)
		if err != nil {
			ix.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		kind := ChangeUpdated
		if ev.Has(fsnotify.Create) {
			kind = ChangeCreated
		}
		if err := ix.File(rel, data); err != nil {
			ix.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		ix.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		ix.notify(kind, rel)

	case ev.Has(fsnotify.Remove):
		if err := ix.Remove(rel); err != nil {
			ix.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		ix.logger.Debug("watcher: deleted", slog.String("path", rel))
		ix.notify(ChangeDeleted, rel)

	case ev.Has(fsnotify.Rename):
		if err := ix.Remove(rel); err != nil {
			ix.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			ix.notify(ChangeDeleted, rel)
		}
		schedule()
	}
}

// reconcile removes index entries without a file and indexes files whose
// checksum differs from the index.
func (ix *Indexer) reconcile() {
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		ix.logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := ix.store.List("")
	if err != nil {
		ix.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := ix.Remove(p); err == nil {
			ix.notify(ChangeDeleted, p)
		}
	}
	for p, cs := range disk {
		old, seen := checksums[p]
		if old == cs {
			continue
		}
		data, err := ix.store.Read(p)
		if err != nil {
			continue
		}
		if err := ix.File(p, data); err != nil {
			continue
		}
		kind := ChangeUpdated
		if !seen {
			kind = ChangeCreated
		}
		ix.logger.Debug("reconcile: indexed", slog.String("path", p))
		ix.notify(kind, p)
	}
}

func (ix *Indexer) indexDir(root, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hidden(rel) || !ix.store.IsDocument(rel) {
			return nil
		}
		data, err := ix.store.Read(rel)
		if err != nil {
			return nil
		}
		if err := ix.File(rel, data); err == nil {
			ix.notify(ChangeCreated, rel)
		}
		return nil
	})
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
