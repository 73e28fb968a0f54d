package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type snapshot struct {
	State         string
	ScanLogID     int64
	StartedAt     time.Time
	FilesScanned  int
	FilesAdded    int
	FilesUpdated  int
	FilesRemoved  int
	FilesEnriched int
	EnrichTarget  int
	Errors        int
	LastError     string
}

type scanLogRow struct {
	ID           int64
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       string
	FilesScanned int
	FilesAdded   int
	FilesUpdated int
	FilesRemoved int
	Errors       int
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Control the indexing scan",
	}
	cmd.AddCommand(newScanStartCmd())
	cmd.AddCommand(newScanStatusCmd())
	cmd.AddCommand(newScanCancelCmd())
	cmd.AddCommand(newScanHistoryCmd())
	return cmd
}

func newScanStartCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap snapshot
			body := map[string]any{"full": full}
			if err := newAPIClient().post("/api/scan/start", body, &snap); err != nil {
				return err
			}
			return renderSnapshot(snap)
		},
	}
	cmd.Flags().BoolVar(&full, "full", true, "run a full scan instead of an incremental one")
	return cmd
}

func newScanStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current scan status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap snapshot
			if err := newAPIClient().get("/api/scan/status", &snap); err != nil {
				return err
			}
			return renderSnapshot(snap)
		},
	}
}

func newScanCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap snapshot
			if err := newAPIClient().post("/api/scan/cancel", nil, &snap); err != nil {
				return err
			}
			return renderSnapshot(snap)
		},
	}
}

func newScanHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []scanLogRow
			path := "/api/scan/history?limit=" + strconv.Itoa(limit)
			if err := newAPIClient().get(path, &rows); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(rows)
			}
			headers := []string{"ID", "STATUS", "STARTED", "SCANNED", "ADDED", "UPDATED", "REMOVED", "ERRORS"}
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					strconv.FormatInt(r.ID, 10),
					r.Status,
					r.StartedAt.Format(time.RFC3339),
					strconv.Itoa(r.FilesScanned),
					strconv.Itoa(r.FilesAdded),
					strconv.Itoa(r.FilesUpdated),
					strconv.Itoa(r.FilesRemoved),
					strconv.Itoa(r.Errors),
				})
			}
			printTable(headers, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to return")
	return cmd
}

func renderSnapshot(snap snapshot) error {
	if wantsJSON() {
		return printJSON(snap)
	}
	fmt.Printf("state:     %s\n", snap.State)
	fmt.Printf("scan_log:  %d\n", snap.ScanLogID)
	fmt.Printf("scanned:   %d\n", snap.FilesScanned)
	fmt.Printf("added:     %d\n", snap.FilesAdded)
	fmt.Printf("updated:   %d\n", snap.FilesUpdated)
	fmt.Printf("removed:   %d\n", snap.FilesRemoved)
	fmt.Printf("enriched:  %d/%d\n", snap.FilesEnriched, snap.EnrichTarget)
	fmt.Printf("errors:    %d\n", snap.Errors)
	if snap.LastError != "" {
		fmt.Printf("last_error: %s\n", snap.LastError)
	}
	return nil
}
