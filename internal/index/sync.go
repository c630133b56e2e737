package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// FileRecord is one scanned file as stored in the graph.
type FileRecord struct {
	Path     string
	Kind     models.Kind
	Checksum string
	Entries  []models.UUIDEntry
	// Refs lists referenced UUIDs, one element per occurrence.
	Refs []string
}

// SyncResult reports what a Sync did.
type SyncResult struct {
	Changed bool `json:"changed"`
	Files   int  `json:"files"`
	UUIDs   int  `json:"uuids"`
	Refs    int  `json:"refs"`
}

// Sync replaces the stored graph with records in one transaction. When the
// stored file set and every checksum already match, nothing is written.
// UUIDs declared twice keep the later record's entry.
func Sync(ctx context.Context, db *DB, records []FileRecord, logger *slog.Logger) (SyncResult, error) {
	res := SyncResult{Files: len(records)}

	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		return res, err
	}
	if unchanged(checksums, records) {
		logger.Debug("sync: link graph unchanged", slog.Int("files", len(records)))
		return res, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"files", "uuids", "refs"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return res, fmt.Errorf("index: clear %s: %w", table, err)
		}
	}

	fileStmt, err := tx.PrepareContext(ctx, `INSERT INTO files (path, kind, checksum, indexed_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("index: prepare file insert: %w", err)
	}
	defer fileStmt.Close()
	uuidStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO uuids (uuid, path, type, title) VALUES (?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			path  = excluded.path,
			type  = excluded.type,
			title = excluded.title
	`)
	if err != nil {
		return res, fmt.Errorf("index: prepare uuid insert: %w", err)
	}
	defer uuidStmt.Close()
	refStmt, err := tx.PrepareContext(ctx, `INSERT INTO refs (uuid, source, occurrences) VALUES (?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("index: prepare ref insert: %w", err)
	}
	defer refStmt.Close()

	now := time.Now().UTC()
	uuids := map[string]struct{}{}
	for _, r := range records {
		if _, err := fileStmt.ExecContext(ctx, r.Path, string(r.Kind), r.Checksum, now); err != nil {
			return res, fmt.Errorf("index: insert file %s: %w", r.Path, err)
		}
		for _, e := range r.Entries {
			if _, err := uuidStmt.ExecContext(ctx, e.UUID, e.FilePath, string(e.Type), e.Title); err != nil {
				return res, fmt.Errorf("index: insert uuid %s: %w", e.UUID, err)
			}
			uuids[e.UUID] = struct{}{}
		}
		counts, order := countRefs(r.Refs)
		for _, id := range order {
			if _, err := refStmt.ExecContext(ctx, id, r.Path, counts[id]); err != nil {
				return res, fmt.Errorf("index: insert ref %s: %w", id, err)
			}
		}
		res.Refs += len(r.Refs)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("index: commit: %w", err)
	}
	res.Changed = true
	res.UUIDs = len(uuids)
	logger.Info("sync: link graph stored",
		slog.Int("files", res.Files),
		slog.Int("uuids", res.UUIDs),
		slog.Int("refs", res.Refs),
	)
	return res, nil
}

func unchanged(stored map[string]string, records []FileRecord) bool {
	if len(stored) != len(records) {
		return false
	}
	for _, r := range records {
		cs, ok := stored[r.Path]
		if !ok || cs != r.Checksum {
			return false
		}
	}
	return true
}

func countRefs(refs []string) (map[string]int, []string) {
	counts := map[string]int{}
	var order []string
	for _, id := range refs {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	return counts, order
}
