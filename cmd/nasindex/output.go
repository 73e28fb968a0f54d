package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// printTable renders rows under headers, grounded on marmos91-dittofs's
// output.PrintTable: tab-aligned columns, no external table library.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("No results.")
		return
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func wantsJSON() bool {
	return flags.output == "json"
}
