package notestore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/scriptor/internal/checksum"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// EventCallback is called after a watcher-driven index change made by
// someone other than this Store.
type EventCallback func(kind string, id string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. Files whose bytes match the indexed
// checksum were written by this Store and are ignored; every other change
// is indexed and reported to cb (if non-nil).
//
// Notes live flat in the vault root, so only the root is watched. Rename
// events trigger a reconciliation pass that removes stale index entries
// whose files no longer exist on disk.
func (s *Store) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.files.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	s.logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			s.reconcile(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			id, _, isNote := storage.ParseName(filepath.Base(ev.Name))
			if !isNote {
				continue
			}
			rel := filepath.Base(ev.Name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				s.changed(models.FileInfo{ID: id, Path: rel}, ev.Op&fsnotify.Create != 0, cb)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create. A reconciliation pass picks
				// up anything that slipped through.
				s.removed(id, cb)
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *Store) changed(info models.FileInfo, created bool, cb EventCallback) {
	s.mu.Lock()
	raw, err := s.files.Read(info.Path)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("watcher: read failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		return
	}
	indexed, _ := s.db.GetChecksum(info.ID)
	if indexed == checksum.Sum(raw) {
		s.mu.Unlock()
		return
	}
	err = s.IndexFile(info)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("watcher: index failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		return
	}
	kind := Updated
	if created && indexed == "" {
		kind = Created
	}
	s.logger.Debug("watcher: indexed", slog.String("id", info.ID), slog.String("op", kind))
	if cb != nil {
		cb(kind, info.ID)
	}
}

func (s *Store) removed(id string, cb EventCallback) {
	s.mu.Lock()
	// A copy under another codec means this was our own stale-copy cleanup.
	if _, _, err := s.read(id); err == nil {
		s.mu.Unlock()
		return
	}
	indexed, _ := s.db.GetChecksum(id)
	if indexed == "" {
		s.mu.Unlock()
		return
	}
	err := s.db.DeleteNote(id)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("watcher: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("watcher: deleted", slog.String("id", id))
	if cb != nil {
		cb(Deleted, id)
	}
}

// reconcile does a lightweight sync using batch lookups: it removes index
// entries without a file on disk and indexes files that are new or changed.
func (s *Store) reconcile(cb EventCallback) {
	s.mu.Lock()
	checksums, err := s.db.AllChecksums()
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	infos, err := s.files.List("")
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	type change struct{ kind, id string }
	var changes []change

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if !topLevel(info) {
			continue
		}
		disk[info.ID] = struct{}{}
		if checksums[info.ID] == info.Checksum {
			continue
		}
		if idxErr := s.IndexFile(info); idxErr == nil {
			kind := Updated
			if _, known := checksums[info.ID]; !known {
				kind = Created
			}
			changes = append(changes, change{kind, info.ID})
		}
	}
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := s.db.DeleteNote(id); delErr == nil {
				changes = append(changes, change{Deleted, id})
			}
		}
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.logger.Debug("reconcile: applied", slog.String("id", c.id), slog.String("op", c.kind))
		if cb != nil {
			cb(c.kind, c.id)
		}
	}
}

// topLevel reports a note file directly in the vault root; files in
// subdirectories are not notes of this vault.
func topLevel(info models.FileInfo) bool {
	return filepath.Dir(info.Path) == "."
}
