package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentRow represents a row in the documents table. Title is the
// metadata (frontmatter) title and may be empty; FileTitle is the title
// embedded in the filename.
type DocumentRow struct {
	Name      string
	LevelPath string
	Depth     int
	Title     string
	FileTitle string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name    string
	Title   string
	Snippet string
}

// UpsertDocument inserts or replaces a document row and its FTS entry
// within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (name, level_path, depth, title, file_title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			level_path = excluded.level_path,
			depth      = excluded.depth,
			title      = excluded.title,
			file_title = excluded.file_title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Name, d.LevelPath, d.Depth, d.Title, d.FileTitle, d.Checksum, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Name, d.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// RenameDocument re-keys a row after a vault rename. Content is unchanged
// by a rename, so only the name-derived columns move.
func (db *DB) RenameDocument(oldName, newName, levelPath string, depth int, fileTitle string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		UPDATE documents
		SET name = ?, level_path = ?, depth = ?, file_title = ?, updated_at = ?
		WHERE name = ?
	`, newName, levelPath, depth, fileTitle, time.Now(), oldName)
	if err != nil {
		return fmt.Errorf("index: rename document: %w", err)
	}

	if err := ftsRename(tx, oldName, newName); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document row and its FTS entry.
func (db *DB) DeleteDocument(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	_, _ = tx.Exec(`DELETE FROM documents WHERE name = ?`, name)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if not indexed.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns name -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}

// TitleMap returns name -> metadata title for every indexed document.
// Entries with no frontmatter title map to the empty string; callers fall
// back to the filename title.
func (db *DB) TitleMap() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, title FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: title map: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, t string
		if err := rows.Scan(&n, &t); err != nil {
			return nil, err
		}
		out[n] = t
	}
	return out, rows.Err()
}

// ListDocuments returns paginated document rows plus the total count.
// sort is one of "name" (default), "title", "updated_at".
func (db *DB) ListDocuments(limit, offset int, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	orderBy := "name ASC"
	switch sort {
	case "title":
		orderBy = "title ASC, name ASC"
	case "updated_at":
		orderBy = "updated_at DESC"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT name, level_path, depth, title, file_title, checksum, updated_at
		FROM documents
		ORDER BY `+orderBy+`
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Name, &d.LevelPath, &d.Depth, &d.Title, &d.FileTitle, &d.Checksum, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
