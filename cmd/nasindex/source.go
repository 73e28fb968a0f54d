package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type sourceEntry struct {
	Host      string `json:"host"`
	Port      string `json:"port,omitempty"`
	Share     string `json:"share"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Domain    string `json:"domain,omitempty"`
	Subfolder string `json:"subfolder,omitempty"`
	Label     string `json:"label"`
}

type sourceStatusEntry struct {
	sourceEntry
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage configured SMB sources",
	}
	cmd.AddCommand(newSourceListCmd())
	cmd.AddCommand(newSourceAddCmd())
	cmd.AddCommand(newSourceRemoveCmd())
	cmd.AddCommand(newSourceStatusCmd())
	return cmd
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []sourceEntry
			if err := newAPIClient().get("/api/sources/", &entries); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(entries)
			}
			printTable([]string{"LABEL", "HOST", "SHARE", "SUBFOLDER"}, sourceRows(entries))
			return nil
		},
	}
}

func sourceRows(entries []sourceEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Label, e.Host, e.Share, e.Subfolder})
	}
	return rows
}

func newSourceAddCmd() *cobra.Command {
	var e sourceEntry
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an SMB source",
		RunE: func(cmd *cobra.Command, args []string) error {
			var added sourceEntry
			if err := newAPIClient().post("/api/sources/", e, &added); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(added)
			}
			fmt.Printf("added source %q (%s/%s)\n", added.Label, added.Host, added.Share)
			return nil
		},
	}
	cmd.Flags().StringVar(&e.Host, "host", "", "SMB server hostname or address")
	cmd.Flags().StringVar(&e.Port, "port", "", "SMB server port (default 445)")
	cmd.Flags().StringVar(&e.Share, "share", "", "share name")
	cmd.Flags().StringVar(&e.Username, "username", "", "SMB username")
	cmd.Flags().StringVar(&e.Password, "password", "", "SMB password")
	cmd.Flags().StringVar(&e.Domain, "domain", "", "NTLM/Kerberos domain")
	cmd.Flags().StringVar(&e.Subfolder, "subfolder", "", "subfolder within the share to index")
	cmd.Flags().StringVar(&e.Label, "label", "", "unique label identifying this source")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("share")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newSourceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <label>",
		Short: "Remove a source and its catalog rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Success      bool
				DeletedCount int
			}
			if err := newAPIClient().delete("/api/sources/"+args[0], &result); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(result)
			}
			if result.Success {
				fmt.Printf("removed %q, purged %s catalog rows\n", args[0], strconv.Itoa(result.DeletedCount))
			} else {
				fmt.Printf("no source named %q\n", args[0])
			}
			return nil
		},
	}
}

func newSourceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show live connection status for every source",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []sourceStatusEntry
			if err := newAPIClient().get("/api/sources/status", &entries); err != nil {
				return err
			}
			if wantsJSON() {
				return printJSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				reachable := "yes"
				if !e.Reachable {
					reachable = "no (" + e.Error + ")"
				}
				rows = append(rows, []string{e.Label, e.Host, e.Share, reachable})
			}
			printTable([]string{"LABEL", "HOST", "SHARE", "REACHABLE"}, rows)
			return nil
		},
	}
}
