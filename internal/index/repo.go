package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/reftree/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Type      string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// RefRow is one reference written in Source. Target is empty when the
// pointer could not be resolved to a tree path.
type RefRow struct {
	Source  string
	Field   string
	Pointer string
	Target  string
}

// AssetRow is one asset used by Source. Target is the tree path of a
// local asset.
type AssetRow struct {
	Source   string
	Location string
	Local    bool
	Target   string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertDocument inserts or replaces a document, its FTS entry, its
// references and its assets within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, refs []RefRow, assets []AssetRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, type, title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			type       = excluded.type,
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Type, d.Title, d.Checksum, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear refs: %w", err)
	}
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source, field, pointer, target) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(d.Path, r.Field, r.Pointer, r.Target); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM assets WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear assets: %w", err)
	}
	if len(assets) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO assets (source, location, local, target) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare asset insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range assets {
			if _, err := stmt.Exec(d.Path, a.Location, a.Local, a.Target); err != nil {
				return fmt.Errorf("index: insert asset: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, its references and assets.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM assets WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns the row for path, or apperr.ErrNotFound.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`SELECT path, type, title, checksum, updated_at FROM documents WHERE path = ?`, path).
		Scan(&d.Path, &d.Type, &d.Title, &d.Checksum, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents ordered by path, optionally
// restricted to one type, and the total count.
func (db *DB) ListDocuments(typ string, limit, offset int) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents WHERE ? = '' OR type = ?`, typ, typ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, type, title, checksum, updated_at
		FROM documents
		WHERE ? = '' OR type = ?
		ORDER BY path
		LIMIT ? OFFSET ?
	`, typ, typ, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Type, &d.Title, &d.Checksum, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns every reference whose target is the given tree path.
func (db *DB) Backlinks(target string) ([]RefRow, error) {
	return db.queryRefs(`SELECT source, field, pointer, target FROM refs WHERE target = ? ORDER BY source, field`, target)
}

// Refs returns every reference written in source.
func (db *DB) Refs(source string) ([]RefRow, error) {
	return db.queryRefs(`SELECT source, field, pointer, target FROM refs WHERE source = ? ORDER BY field`, source)
}

func (db *DB) queryRefs(query, arg string) ([]RefRow, error) {
	rows, err := db.conn.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("index: refs: %w", err)
	}
	defer rows.Close()

	var out []RefRow
	for rows.Next() {
		var r RefRow
		if err := rows.Scan(&r.Source, &r.Field, &r.Pointer, &r.Target); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Assets returns the assets used by source, or every asset when source
// is empty.
func (db *DB) Assets(source string) ([]AssetRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, location, local, target
		FROM assets
		WHERE ? = '' OR source = ?
		ORDER BY source, location
	`, source, source)
	if err != nil {
		return nil, fmt.Errorf("index: assets: %w", err)
	}
	defer rows.Close()

	var out []AssetRow
	for rows.Next() {
		var a AssetRow
		if err := rows.Scan(&a.Source, &a.Location, &a.Local, &a.Target); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
