package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/categorize"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/nerrors"
	"github.com/nasindex/nasindex/internal/smbfs"
)

// errCancelled unwinds Walk early when the cancel flag trips between
// directory boundaries; it is swallowed by phase1, not surfaced as a
// source-level error.
var errCancelled = nerrors.New(nerrors.ETransient, "scan cancelled")

// phase1 is the fast-index pass for a single source: load the incremental
// skip set, walk the share, batch-upsert rows, categorize, and — on a full
// scan — remove rows that were not seen.
func (s *Scanner) phase1(ctx context.Context, ctl *lifecycle.Controller, src smbfs.Source, full bool) error {
	labelRoot := "/" + src.Label

	existing, err := s.store.ExistingModTimes(ctx, labelRoot)
	if err != nil {
		return err
	}

	seen := map[string]struct{}{labelRoot: {}}
	batch := make([]catalog.FileRow, 0, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		conn, err := s.store.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		for _, row := range batch {
			if _, err := s.store.UpsertFile(ctx, conn, row); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	rootStat, err := s.client.Stat(ctx, src, "")
	if err != nil {
		return err
	}
	rootRow := fileRowFromStat(labelRoot, "", rootStat)
	rootRow.Name = src.Label
	batch = append(batch, rootRow)

	walkErr := s.client.Walk(ctx, src, "", func(entry smbfs.DirEntry) error {
		if ctl.Cancelled() {
			return errCancelled
		}

		for _, st := range entry.Dirs {
			logical := smbfs.LogicalFromSMB(entry.DirPath+`\`+st.Name, src)
			seen[logical] = struct{}{}
			batch = append(batch, fileRowFromStat(logical, parentOf(logical), st))
			if len(batch) >= s.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		for _, st := range entry.Files {
			logical := smbfs.LogicalFromSMB(entry.DirPath+`\`+st.Name, src)
			seen[logical] = struct{}{}
			if !full {
				if prevMod, ok := existing[logical]; ok && prevMod == st.ModTime.UTC().Format(timeLayout) {
					continue
				}
			}
			a, u := s.planRow(logical, st, src, existing)
			row := fileRowFromStat(logical, parentOf(logical), st)
			row.MimeType = smbfs.GuessMIME(st.Name)
			batch = append(batch, row)
			ctl.RecordWalked(a, u)
			if len(batch) >= s.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != errCancelled {
		return walkErr
	}

	if err := flush(); err != nil {
		return err
	}

	if err := s.categorizeUnder(ctx, labelRoot); err != nil {
		return err
	}

	if full && walkErr != errCancelled {
		removed, err := s.store.RemoveStaleUnder(ctx, src.Label, seen)
		if err != nil {
			return err
		}
		ctl.SetRemoved(removed)
	}

	return nil
}

// planRow classifies a walked entry as newly added or updated relative to
// the incremental skip set, for the state controller's counters.
func (s *Scanner) planRow(logical string, st smbfs.Stat, src smbfs.Source, existing map[string]string) (added, updated int) {
	if _, ok := existing[logical]; ok {
		return 0, 1
	}
	return 1, 0
}

func fileRowFromStat(logical, parent string, st smbfs.Stat) catalog.FileRow {
	row := catalog.FileRow{
		Path:        logical,
		Name:        st.Name,
		ParentPath:  parent,
		IsDirectory: st.IsDirectory,
		Size:        st.Size,
		CreatedAt:   st.CreateTime,
		ModifiedAt:  st.ModTime,
	}
	if st.IsDirectory {
		row.MimeType = "inode/directory"
	}
	return row
}

func parentOf(logical string) string {
	idx := strings.LastIndexByte(logical, '/')
	if idx <= 0 {
		return ""
	}
	return logical[:idx]
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// categorizeUnder re-derives rule tags for every row under labelRoot by
// reading back (name, mime, size, mtime), the post-walk categorization pass
// spec.md §4.6 describes.
func (s *Scanner) categorizeUnder(ctx context.Context, labelRoot string) error {
	rows, err := s.store.RowsUnder(ctx, labelRoot)
	if err != nil {
		return err
	}
	conn, err := s.store.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, r := range rows {
		mtime, _ := time.Parse(timeLayout, r.Mtime)
		tags := categorize.Categorize(r.Name, r.Mime, r.Size, mtime)
		if err := s.store.ReplaceTags(ctx, conn, r.ID, tags); err != nil {
			return err
		}
	}
	return nil
}
