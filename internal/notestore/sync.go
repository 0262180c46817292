package notestore

import (
	"log/slog"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are decoded and upserted
//   - notes whose files are gone are deleted from the index
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := s.files.List("")
	if err != nil {
		return err
	}

	checksums, err := s.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if !topLevel(info) {
			continue
		}
		disk[info.ID] = struct{}{}

		if checksums[info.ID] == info.Checksum {
			continue
		}
		if err := s.IndexFile(info); err != nil {
			s.logger.Warn("sync: index failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		} else {
			s.logger.Debug("sync: indexed", slog.String("path", info.Path))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := s.db.DeleteNote(id); err != nil {
				s.logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				s.logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}
