package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// ScanLogStatus is one of the ScanLogRow.status enum values.
type ScanLogStatus string

const (
	ScanRunning   ScanLogStatus = "running"
	ScanCompleted ScanLogStatus = "completed"
	ScanCancelled ScanLogStatus = "cancelled"
	ScanFailed    ScanLogStatus = "failed"
)

// ScanLogRow is the append-only scan history entry, columns as in
// specification §6: final counters, status, and a bounded error-log tail.
type ScanLogRow struct {
	ID            int64
	StartedAt     time.Time
	CompletedAt   *time.Time
	Status        ScanLogStatus
	FilesScanned  int
	FilesAdded    int
	FilesUpdated  int
	FilesRemoved  int
	Errors        int
	ErrorLog      []string
}

// StartScanLog inserts a new running scan log row and returns its ID.
func (s *Store) StartScanLog(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_log (started_at, status) VALUES (?, ?)
	`, time.Now().UTC().Format(timeLayout), ScanRunning)
	if err != nil {
		return 0, nerrors.Wrap(nerrors.ETransient, "start scan log", err)
	}
	return res.LastInsertId()
}

// FinishScanLog closes out a scan log row with its terminal status, final
// counters, and the tail of error messages accumulated during the scan
// (capped by the caller before it reaches here), per specification §4.7.
func (s *Store) FinishScanLog(ctx context.Context, id int64, status ScanLogStatus, filesScanned, filesAdded, filesUpdated, filesRemoved, errorsCount int, errorLog []string) error {
	log, err := json.Marshal(errorLog)
	if err != nil {
		return nerrors.Wrap(nerrors.ETransient, "marshal scan log errors", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE scan_log
		SET completed_at = ?, status = ?, files_scanned = ?, files_added = ?, files_updated = ?, files_removed = ?, errors = ?, error_log = ?
		WHERE id = ?
	`, time.Now().UTC().Format(timeLayout), status, filesScanned, filesAdded, filesUpdated, filesRemoved, errorsCount, string(log), id)
	if err != nil {
		return nerrors.Wrap(nerrors.ETransient, "finish scan log", err)
	}
	return nil
}

// ScanHistory returns the most recent scan log rows, newest first.
func (s *Store) ScanHistory(ctx context.Context, limit int) ([]ScanLogRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, status, files_scanned, files_added, files_updated, files_removed, errors, error_log
		FROM scan_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.ETransient, "query scan history", err)
	}
	defer rows.Close()

	var out []ScanLogRow
	for rows.Next() {
		var r ScanLogRow
		var started string
		var completed sql.NullString
		var log string
		if err := rows.Scan(&r.ID, &started, &completed, &r.Status, &r.FilesScanned, &r.FilesAdded, &r.FilesUpdated, &r.FilesRemoved, &r.Errors, &log); err != nil {
			return nil, nerrors.Wrap(nerrors.ETransient, "scan scan-log row", err)
		}
		r.StartedAt, _ = parseTime(started)
		if completed.Valid {
			t, _ := parseTime(completed.String)
			r.CompletedAt = &t
		}
		_ = json.Unmarshal([]byte(log), &r.ErrorLog)
		out = append(out, r)
	}
	return out, rows.Err()
}
