package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect and trigger ingestion sync runs",
}

func init() {
	syncCmd.AddCommand(syncListCmd())
	syncCmd.AddCommand(syncGetCmd())
	syncCmd.AddCommand(syncRunCmd())
	syncCmd.AddCommand(syncRecordsCmd())
	syncCmd.AddCommand(syncFailedCmd())
}

func syncListCmd() *cobra.Command {
	var source string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sync runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if source != "" {
				q.Set("source", source)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			path := "/api/intel/v1/sync-runs"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			var runs []map[string]any
			if err := newClient().getJSON(path, &runs); err != nil {
				return err
			}
			if outputFmt != "table" {
				return printOutput(runs)
			}
			cols := []string{"ID", "Source", "StartedAt", "FinishedAt", "Success", "Summary"}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				row := make([]string, len(cols))
				for i, col := range cols {
					row[i] = truncate(field(r, col), 40)
				}
				rows = append(rows, row)
			}
			printTable(cols, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source system filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	return cmd
}

func syncGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [run-id]",
		Short: "Get one sync run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run map[string]any
			if err := newClient().getJSON("/api/intel/v1/sync-runs/"+args[0], &run); err != nil {
				return err
			}
			if outputFmt == "table" {
				return printJSON(run)
			}
			return printOutput(run)
		},
	}
}

func syncRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [source]",
		Short: "Trigger an ingestion run for a configured source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run map[string]any
			if err := newClient().postJSON("/api/intel/v1/sync-runs/"+url.PathEscape(args[0]), nil, &run); err != nil {
				return err
			}
			status := "succeeded"
			if field(run, "Success") != "true" {
				status = "failed: " + field(run, "Error")
			}
			fmt.Printf("Run %s %s\n", field(run, "ID"), status)
			return nil
		},
	}
}

func syncRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records [run-id]",
		Short: "List the raw records captured by a sync run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var recs []map[string]any
			if err := newClient().getJSON("/api/intel/v1/sync-runs/"+args[0]+"/records", &recs); err != nil {
				return err
			}
			return printRecords(recs)
		},
	}
}

func syncFailedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List raw records whose normalization failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/intel/v1/raw-records/failed"
			if limit > 0 {
				path += fmt.Sprintf("?limit=%d", limit)
			}
			var recs []map[string]any
			if err := newClient().getJSON(path, &recs); err != nil {
				return err
			}
			return printRecords(recs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	return cmd
}

func printRecords(recs []map[string]any) error {
	if outputFmt != "table" {
		return printOutput(recs)
	}
	cols := []string{"ID", "Source", "RecordType", "ExternalID", "Processed", "ProcessingError"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = truncate(field(r, col), 48)
		}
		rows = append(rows, row)
	}
	printTable(cols, rows)
	return nil
}
