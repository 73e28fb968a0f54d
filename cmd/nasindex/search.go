package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type searchResult struct {
	Path     string
	Name     string
	MimeType string
	Size     int64
	Rank     float64
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []searchResult
			path := "/api/search?q=" + url.QueryEscape(args[0]) + "&limit=" + strconv.Itoa(limit)
			if err := newAPIClient().get(path, &results); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, r.Path, r.MimeType, strconv.FormatInt(r.Size, 10)})
			}
			printTable([]string{"NAME", "PATH", "MIME TYPE", "SIZE"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results to return")
	return cmd
}
