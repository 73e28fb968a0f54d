package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

type probableDedupGroup struct {
	ProbableDuplicateGroup string `json:"probable_duplicate_group"`
	Count                  int    `json:"count"`
	TotalSize              int64  `json:"total_size"`
	Paths                  []string `json:"paths"`
}

func newDedupCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "List probable duplicate file groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			var groups []probableDedupGroup
			path := "/api/insights/dedup?limit=" + strconv.Itoa(limit)
			if err := newAPIClient().get(path, &groups); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(groups)
			}
			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				rows = append(rows, []string{
					g.ProbableDuplicateGroup[:minInt(12, len(g.ProbableDuplicateGroup))],
					strconv.Itoa(g.Count),
					strconv.FormatInt(g.TotalSize, 10),
				})
			}
			printTable([]string{"HASH", "COUNT", "TOTAL SIZE"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum groups to return")
	return cmd
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
