// Package catalog is the catalog store: an embedded SQLite database with an
// FTS5 shadow table kept coherent by triggers, holding every indexed file,
// its rule/user tags, its media metadata, and the scan history log.
//
// Grounded on rclone's backend/sqlite/sqlite_utils.go: the
// open-or-migrate-once-per-path pattern (getConnection/initSqlite) is
// generalized here from a single flat `files` table to the full
// file/tag/metadata/scan_log schema with an FTS5 shadow, and from a
// CREATE-TABLE-IF-NOT-EXISTS-on-every-open check to a schema embedded in
// schema.go executed idempotently at Open time.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// Store is the catalog database handle. One Store per daemon process;
// internally it pools connections sized to the enrichment worker count so
// Phase 2 workers each get their own pooled *sql.Conn.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applying the
// WAL/synchronous/foreign-keys pragmas and shared-cache mode via the DSN
// query string — the same trick sqlite_utils.go's "file:"+path uses — and
// idempotently runs schema.go's PRAGMA and CREATE TABLE/INDEX/TRIGGER
// statements (the page-cache size is set there). maxConns should be sized
// to enrichment_workers+2.
func Open(path string, maxConns int) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&cache=shared",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.EInvalidConfig, "open catalog database", err)
	}
	db.SetMaxOpenConns(maxConns)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, nerrors.Wrap(nerrors.EInvalidConfig, "initialize catalog schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Conn checks out a single pooled connection, used by scanner workers that
// need a stable handle across several statements (e.g. upsert-then-tag).
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "acquire catalog connection", err)
	}
	return c, nil
}

// FileRow mirrors the specification's FileRow entity.
type FileRow struct {
	ID          int64
	Path        string
	Name        string
	ParentPath  string
	IsDirectory bool
	Size        int64
	MimeType    string
	FileHash    *string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	IndexedAt   time.Time
	FullText    *string
}

const timeLayout = time.RFC3339

// UpsertFile inserts or replaces a FileRow by its unique path, returning the
// assigned/reused row ID. Used by Phase 1's fast-index batches.
func (s *Store) UpsertFile(ctx context.Context, execer sqlExecer, f FileRow) (int64, error) {
	now := time.Now().UTC()
	res, err := execer.ExecContext(ctx, `
		INSERT INTO files (path, name, parent_path, is_directory, size, mime_type, created_at, modified_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			parent_path = excluded.parent_path,
			is_directory = excluded.is_directory,
			size = excluded.size,
			mime_type = excluded.mime_type,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at,
			file_hash = CASE WHEN files.modified_at = excluded.modified_at THEN files.file_hash ELSE NULL END,
			full_text = CASE WHEN files.modified_at = excluded.modified_at THEN files.full_text ELSE NULL END
	`,
		f.Path, f.Name, f.ParentPath, boolToInt(f.IsDirectory), f.Size, f.MimeType,
		f.CreatedAt.UTC().Format(timeLayout), f.ModifiedAt.UTC().Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "upsert file row", err)
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		var existing int64
		row := execer.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path)
		if scanErr := row.Scan(&existing); scanErr != nil {
			return 0, nerrors.Wrap(nerrors.ETransient, "resolve upserted file id", scanErr)
		}
		return existing, nil
	}
	return id, nil
}

// sqlExecer is satisfied by *sql.DB, *sql.Conn, and *sql.Tx, so catalog
// methods can run inside or outside an explicit transaction.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB exposes the raw *sql.DB as an sqlExecer for callers that don't need a
// dedicated connection.
func (s *Store) DB() *sql.DB { return s.db }

// FileIDByPath returns the row ID for path, or ErrNotFound.
func (s *Store) FileIDByPath(ctx context.Context, path string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nerrors.ErrNotFound
	}
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "lookup file id", err)
	}
	return id, nil
}

// SetEnrichment writes Phase 2's output for a file: content hash and
// extracted text. A nil hash or fullText leaves that column unchanged.
func (s *Store) SetEnrichment(ctx context.Context, execer sqlExecer, fileID int64, hash *string, fullText *string) error {
	_, err := execer.ExecContext(ctx, `UPDATE files SET file_hash = COALESCE(?, file_hash), full_text = COALESCE(?, full_text) WHERE id = ?`, hash, fullText, fileID)
	if err != nil {
		return nerrors.Wrap(nerrors.ETransient, "write enrichment", err)
	}
	return nil
}

// ReplaceTags deletes a file's rule-typed tags and inserts the new set,
// leaving user-typed tags untouched — rule tags are idempotently
// re-derived every rescan, user tags never are.
func (s *Store) ReplaceTags(ctx context.Context, execer sqlExecer, fileID int64, tags []string) error {
	if _, err := execer.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ? AND tag_type = 'rule'`, fileID); err != nil {
		return nerrors.Wrap(nerrors.ETransient, "clear rule tags", err)
	}
	for _, tag := range tags {
		if _, err := execer.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_tags (file_id, tag, tag_type) VALUES (?, ?, 'rule')`, fileID, tag,
		); err != nil {
			return nerrors.Wrap(nerrors.ETransient, "insert rule tag", err)
		}
	}
	return nil
}

// SetMetadata upserts a file's media metadata JSON blob.
func (s *Store) SetMetadata(ctx context.Context, execer sqlExecer, fileID int64, metadata json.RawMessage) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO file_metadata (file_id, metadata) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET metadata = excluded.metadata
	`, fileID, string(metadata))
	if err != nil {
		return nerrors.Wrap(nerrors.ETransient, "upsert metadata", err)
	}
	return nil
}

// ChildPathsUnder returns every row's path directly or transitively rooted
// at parentPrefix (a logical path such as "/media" or "/media/movies"),
// used by stale-row removal and source-removal cascade.
func (s *Store) ChildPathsUnder(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files WHERE path = ? OR path LIKE ?`, prefix, prefix+"/%")
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "query paths under prefix", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// RemoveStaleUnder deletes every row rooted at sourceLabel whose path is not
// in keep, the stale-row removal step at the end of a full Phase 1 scan.
// Tag and metadata rows cascade via the schema's ON DELETE CASCADE.
func (s *Store) RemoveStaleUnder(ctx context.Context, sourceLabel string, keep map[string]struct{}) (int, error) {
	existing, err := s.ChildPathsUnder(ctx, "/"+sourceLabel)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "begin stale-row removal", err)
	}
	defer func() { _ = tx.Rollback() }()

	removed := 0
	for _, p := range existing {
		if _, ok := keep[p]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, p); err != nil {
			return 0, nerrors.Wrap(nerrors.ETransient, "delete stale row", err)
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "commit stale-row removal", err)
	}
	return removed, nil
}

// PurgeByLabelPrefix implements the source.CatalogPurger contract: deletes
// every row at "/<label>" or "/<label>/..." and returns the deleted count.
func (s *Store) PurgeByLabelPrefix(ctx context.Context, label string) (int, error) {
	root := "/" + strings.Trim(label, "/")
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ? OR path LIKE ?`, root, root+"/%")
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "purge by label prefix", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "count purged rows", err)
	}
	return int(n), nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
