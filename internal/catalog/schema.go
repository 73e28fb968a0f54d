package catalog

// schema is executed by every Open; its IF NOT EXISTS statements create,
// when absent, the file, tag, metadata, and scan-log tables, the FTS shadow
// table, and the triggers keeping it coherent. Grounded on rclone's backend/sqlite/sqlite_utils.go
// schema const (CREATE TABLE IF NOT EXISTS plus an explicit index block),
// generalized from that backend's single flat files table to this system's
// normalized file/tag/metadata/scan_log schema with FTS5.
const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA cache_size = -20000;

CREATE TABLE IF NOT EXISTS files (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    path          TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    parent_path   TEXT NOT NULL DEFAULT '',
    is_directory  INTEGER NOT NULL DEFAULT 0,
    size          INTEGER NOT NULL DEFAULT 0,
    mime_type     TEXT NOT NULL DEFAULT '',
    file_hash     TEXT,
    created_at    TEXT NOT NULL,
    modified_at   TEXT NOT NULL,
    indexed_at    TEXT NOT NULL,
    full_text     TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_parent_path  ON files(parent_path);
CREATE INDEX IF NOT EXISTS idx_files_mime_type    ON files(mime_type);
CREATE INDEX IF NOT EXISTS idx_files_size         ON files(size DESC);
CREATE INDEX IF NOT EXISTS idx_files_modified_at  ON files(modified_at DESC);
CREATE INDEX IF NOT EXISTS idx_files_file_hash    ON files(file_hash);
CREATE INDEX IF NOT EXISTS idx_files_is_directory ON files(is_directory);
CREATE INDEX IF NOT EXISTS idx_files_name         ON files(name);

CREATE TABLE IF NOT EXISTS file_tags (
    file_id   INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    tag       TEXT NOT NULL,
    tag_type  TEXT NOT NULL CHECK (tag_type IN ('rule', 'user')),
    PRIMARY KEY (file_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag);

CREATE TABLE IF NOT EXISTS file_metadata (
    file_id   INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
    metadata  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_log (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at     TEXT NOT NULL,
    completed_at   TEXT,
    status         TEXT NOT NULL CHECK (status IN ('running', 'completed', 'cancelled', 'failed')),
    files_scanned  INTEGER NOT NULL DEFAULT 0,
    files_added    INTEGER NOT NULL DEFAULT 0,
    files_updated  INTEGER NOT NULL DEFAULT 0,
    files_removed  INTEGER NOT NULL DEFAULT 0,
    errors         INTEGER NOT NULL DEFAULT 0,
    error_log      TEXT NOT NULL DEFAULT '[]'
);

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
    name, full_text, path, content='', tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
    INSERT INTO files_fts(rowid, name, full_text, path)
    VALUES (new.id, new.name, coalesce(new.full_text, ''), new.path);
END;

CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, name, full_text, path)
    VALUES ('delete', old.id, old.name, coalesce(old.full_text, ''), old.path);
END;

CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, name, full_text, path)
    VALUES ('delete', old.id, old.name, coalesce(old.full_text, ''), old.path);
    INSERT INTO files_fts(rowid, name, full_text, path)
    VALUES (new.id, new.name, coalesce(new.full_text, ''), new.path);
END;
`
