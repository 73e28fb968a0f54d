package catalog

import (
	"context"
	"database/sql"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// SearchResult is one row of a full-text search, ranked by FTS5's bm25().
type SearchResult struct {
	Path     string
	Name     string
	MimeType string
	Size     int64
	Rank     float64
}

// Search runs a full-text query against the FTS shadow table, joined back
// to files for MIME/size, ordered by FTS rank.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.path, f.name, f.mime_type, f.size, bm25(files_fts) AS rank
		FROM files_fts
		JOIN files f ON f.id = files_fts.rowid
		WHERE files_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "full-text search", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.MimeType, &r.Size, &r.Rank); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan search result", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BrowseEntry is one row returned by Browse: a direct child of the
// requested directory.
type BrowseEntry struct {
	Path        string
	Name        string
	IsDirectory bool
	Size        int64
	MimeType    string
	ModifiedAt  string
}

// Browse lists the direct children of a logical directory path (or source
// roots, when parentPath is ""), ordered directories-first then by name.
func (s *Store) Browse(ctx context.Context, parentPath string) ([]BrowseEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, is_directory, size, mime_type, modified_at
		FROM files
		WHERE parent_path = ?
		ORDER BY is_directory DESC, name ASC
	`, parentPath)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "browse directory", err)
	}
	defer rows.Close()

	var out []BrowseEntry
	for rows.Next() {
		var e BrowseEntry
		var isDir int
		if err := rows.Scan(&e.Path, &e.Name, &isDir, &e.Size, &e.MimeType, &e.ModifiedAt); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan browse row", err)
		}
		e.IsDirectory = isDir != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// DedupGroup is a set of non-directory files sharing the same content hash,
// the "insights/dedup" view's unit of output.
type DedupGroup struct {
	FileHash string
	Count    int
	TotalSize int64
	Paths    []string
}

// DedupGroups returns every file_hash shared by two or more files, most
// wasteful (by total size) first.
func (s *Store) DedupGroups(ctx context.Context, limit int) ([]DedupGroup, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_hash, COUNT(*) AS c, SUM(size) AS total
		FROM files
		WHERE is_directory = 0 AND file_hash IS NOT NULL
		GROUP BY file_hash
		HAVING c > 1
		ORDER BY total DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "query dedup groups", err)
	}
	defer rows.Close()

	var groups []DedupGroup
	for rows.Next() {
		var g DedupGroup
		if err := rows.Scan(&g.FileHash, &g.Count, &g.TotalSize); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan dedup group", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		paths, err := s.pathsWithHash(ctx, groups[i].FileHash)
		if err != nil {
			return nil, err
		}
		groups[i].Paths = paths
	}
	return groups, nil
}

func (s *Store) pathsWithHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files WHERE file_hash = ?`, hash)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "query paths by hash", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan path by hash", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// TagCount is one row of the insights/tags view: a rule tag and how many
// files carry it.
type TagCount struct {
	Tag   string
	Count int
}

// TagCounts returns every distinct tag with its file count, most common
// first.
func (s *Store) TagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) AS c
		FROM file_tags
		GROUP BY tag
		ORDER BY c DESC, tag ASC
	`)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "query tag counts", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var t TagCount
		if err := rows.Scan(&t.Tag, &t.Count); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan tag count", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ExistingModTimes loads (path, modified_at) for every row at labelRoot or
// beneath it, the incremental-skip set Phase 1 consults before walking.
func (s *Store) ExistingModTimes(ctx context.Context, labelRoot string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, modified_at FROM files WHERE path = ? OR path LIKE ?
	`, labelRoot, labelRoot+"/%")
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "load existing mod times", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var p, m string
		if err := rows.Scan(&p, &m); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan existing mod time", err)
		}
		out[p] = m
	}
	return out, rows.Err()
}

// CategorizeInput is the minimal projection Phase 1's post-walk
// categorization pass needs per row.
type CategorizeInput struct {
	ID   int64
	Name string
	Mime string
	Size int64
	Mtime string
}

// RowsUnder returns every row at labelRoot or beneath it, for the
// categorization pass that runs after a source's walk completes.
func (s *Store) RowsUnder(ctx context.Context, labelRoot string) ([]CategorizeInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mime_type, size, modified_at FROM files WHERE path = ? OR path LIKE ?
	`, labelRoot, labelRoot+"/%")
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "load rows for categorization", err)
	}
	defer rows.Close()

	var out []CategorizeInput
	for rows.Next() {
		var c CategorizeInput
		if err := rows.Scan(&c.ID, &c.Name, &c.Mime, &c.Size, &c.Mtime); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan row for categorization", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EnrichmentCandidate is the projection Phase 2 dispatches to workers.
type EnrichmentCandidate struct {
	ID       int64
	Path     string
	Size     int64
	MimeType string
}

// EnrichmentCandidates selects every non-directory row still missing a
// content hash, the Phase 2 dispatch set.
func (s *Store) EnrichmentCandidates(ctx context.Context) ([]EnrichmentCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, size, mime_type FROM files WHERE is_directory = 0 AND file_hash IS NULL
	`)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "select enrichment candidates", err)
	}
	defer rows.Close()

	var out []EnrichmentCandidate
	for rows.Next() {
		var c EnrichmentCandidate
		if err := rows.Scan(&c.ID, &c.Path, &c.Size, &c.MimeType); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan enrichment candidate", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetFile returns a single file row by logical path.
func (s *Store) GetFile(ctx context.Context, path string) (FileRow, error) {
	var f FileRow
	var isDir int
	var created, modified, indexed string
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, parent_path, is_directory, size, mime_type, file_hash, created_at, modified_at, indexed_at, full_text
		FROM files WHERE path = ?
	`, path)
	err := row.Scan(&f.ID, &f.Path, &f.Name, &f.ParentPath, &isDir, &f.Size, &f.MimeType, &f.FileHash, &created, &modified, &indexed, &f.FullText)
	if err == sql.ErrNoRows {
		return FileRow{}, nerrors.ErrNotFound
	}
	if err != nil {
		return FileRow{}, nerrors.Wrap(nerrors.ETransient, "get file", err)
	}
	f.IsDirectory = isDir != 0
	f.CreatedAt, _ = parseTime(created)
	f.ModifiedAt, _ = parseTime(modified)
	f.IndexedAt, _ = parseTime(indexed)
	return f, nil
}
