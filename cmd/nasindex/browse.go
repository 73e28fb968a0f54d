package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type browseEntry struct {
	Path        string
	Name        string
	IsDirectory bool
	Size        int64
	MimeType    string
	ModifiedAt  string
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "List the children of a logical directory path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/browse"
			if len(args) == 1 {
				path += "?path=" + url.QueryEscape(args[0])
			}
			var entries []browseEntry
			if err := newAPIClient().get(path, &entries); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				kind := "file"
				if e.IsDirectory {
					kind = "dir"
				}
				rows = append(rows, []string{e.Name, kind, e.MimeType, strconv.FormatInt(e.Size, 10)})
			}
			printTable([]string{"NAME", "TYPE", "MIME TYPE", "SIZE"}, rows)
			return nil
		},
	}
	return cmd
}
