package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/intersect-sdl/sdl-doc-gen/internal/apperr"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// Stats summarises the stored graph.
type Stats struct {
	Files   int `json:"files"`
	UUIDs   int `json:"uuids"`
	Refs    int `json:"refs"`
	Orphans int `json:"orphans"`
}

// Lookup returns the owner of uuid, or apperr.ErrNotFound.
func (db *DB) Lookup(ctx context.Context, uuid string) (*models.UUIDEntry, error) {
	var e models.UUIDEntry
	var kind string
	err := db.conn.QueryRowContext(ctx,
		`SELECT uuid, path, type, title FROM uuids WHERE uuid = ? COLLATE NOCASE`, uuid,
	).Scan(&e.UUID, &e.FilePath, &kind, &e.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: lookup %s: %w", uuid, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: lookup %s: %w", uuid, err)
	}
	e.Type = models.Kind(kind)
	return &e, nil
}

// Backlinks returns every reference to uuid. Sources are ordered by path and
// repeated once per occurrence. A UUID nobody references yields
// apperr.ErrNotFound.
func (db *DB) Backlinks(ctx context.Context, uuid string) (*models.Backlink, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT source, occurrences FROM refs WHERE uuid = ? COLLATE NOCASE ORDER BY source`, uuid)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	bl := &models.Backlink{}
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("index: backlinks: %w", err)
		}
		for range n {
			bl.Sources = append(bl.Sources, src)
		}
		bl.Count += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	if bl.Count == 0 {
		return nil, fmt.Errorf("index: backlinks %s: %w", uuid, apperr.ErrNotFound)
	}
	return bl, nil
}

// Entries lists declared UUIDs ordered by path then UUID. An empty kind
// lists every entry.
func (db *DB) Entries(ctx context.Context, kind models.Kind) ([]models.UUIDEntry, error) {
	q := `SELECT uuid, path, type, title FROM uuids`
	var args []any
	if kind != "" {
		q += ` WHERE type = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY path, uuid`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: entries: %w", err)
	}
	defer rows.Close()

	out := []models.UUIDEntry{}
	for rows.Next() {
		var e models.UUIDEntry
		var k string
		if err := rows.Scan(&e.UUID, &e.FilePath, &k, &e.Title); err != nil {
			return nil, fmt.Errorf("index: entries: %w", err)
		}
		e.Type = models.Kind(k)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Orphans returns referenced UUIDs that no scanned file declares, sorted.
func (db *DB) Orphans(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT r.uuid FROM refs r
		LEFT JOIN uuids u ON u.uuid = r.uuid COLLATE NOCASE
		WHERE u.uuid IS NULL
		ORDER BY r.uuid
	`)
	if err != nil {
		return nil, fmt.Errorf("index: orphans: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("index: orphans: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Stats counts stored files, UUIDs, reference occurrences and orphans.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM files),
			(SELECT count(*) FROM uuids),
			(SELECT coalesce(sum(occurrences), 0) FROM refs),
			(SELECT count(DISTINCT r.uuid) FROM refs r LEFT JOIN uuids u ON u.uuid = r.uuid COLLATE NOCASE WHERE u.uuid IS NULL)
	`).Scan(&s.Files, &s.UUIDs, &s.Refs, &s.Orphans)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	return s, nil
}

// AllChecksums returns the stored checksum of every scanned file.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM files`)
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
