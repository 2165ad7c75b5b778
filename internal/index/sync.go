package index

import (
	"log/slog"
	"time"

	"github.com/starford/eihwaz/internal/checksum"
	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/parser"
	"github.com/starford/eihwaz/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed hierarchy files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files whose names do not follow the level-path convention are foreign:
// they are never indexed, and a file that stops following the convention
// is dropped from the index on its next sync.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("name", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("name", m.Name))
		}
	}

	// Remove stale entries.
	for n := range checksums {
		if _, ok := disk[n]; !ok {
			if err := db.DeleteDocument(n); err != nil {
				logger.Warn("sync: delete failed", slog.String("name", n), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("name", n))
			}
		}
	}

	return nil
}

// indexFile decodes the filename and upserts the parsed content. Foreign
// names are removed from the index rather than indexed.
func indexFile(db *DB, name string, data []byte) error {
	path, fileTitle, ok := levelpath.ParseName(name)
	if !ok {
		return db.DeleteDocument(name)
	}

	res := parser.Parse(data)
	row := DocumentRow{
		Name:      name,
		LevelPath: path.String(),
		Depth:     path.Depth(),
		Title:     res.Title,
		FileTitle: fileTitle,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	return db.UpsertDocument(row, res.Body)
}
