package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// entityCategory describes one registry category exposed by the server.
type entityCategory struct {
	Use      string
	Singular string
	Path     string
	// Columns are top-level JSON keys shown in table output.
	Columns []string
}

var entityCategories = []entityCategory{
	{Use: "assets", Singular: "asset", Path: "/api/intel/v1/assets",
		Columns: []string{"ID", "Name", "Type", "LifecycleState", "Criticality", "SourceOfTruth"}},
	{Use: "identities", Singular: "identity", Path: "/api/intel/v1/identities",
		Columns: []string{"ID", "Username", "DisplayName", "Type", "Status"}},
	{Use: "groups", Singular: "group", Path: "/api/intel/v1/groups",
		Columns: []string{"ID", "Name", "Type", "SourceOfTruth"}},
	{Use: "environments", Singular: "environment", Path: "/api/intel/v1/environments",
		Columns: []string{"ID", "Name", "Type", "LifecycleState"}},
	{Use: "locations", Singular: "location", Path: "/api/intel/v1/locations",
		Columns: []string{"ID", "Name", "Type", "Country"}},
	{Use: "teams", Singular: "team", Path: "/api/intel/v1/teams",
		Columns: []string{"ID", "Name", "Criticality"}},
	{Use: "business-services", Singular: "business service", Path: "/api/intel/v1/business-services",
		Columns: []string{"ID", "Name", "Criticality"}},
}

func buildCategoryCommand(c entityCategory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   c.Use,
		Short: "Manage " + c.Use + " in the entity registry",
	}
	cmd.AddCommand(buildListCommand(c))
	cmd.AddCommand(buildGetCommand(c))
	cmd.AddCommand(buildCreateCommand(c))
	return cmd
}

func buildListCommand(c entityCategory) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + c.Use,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.Path
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}
			var items []map[string]any
			if err := newClient().getJSON(path, &items); err != nil {
				return err
			}
			if outputFmt != "table" {
				return printOutput(items)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				row := make([]string, len(c.Columns))
				for i, col := range c.Columns {
					row[i] = truncate(field(item, col), 40)
				}
				rows = append(rows, row)
			}
			printTable(c.Columns, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	return cmd
}

func buildGetCommand(c entityCategory) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Get one " + c.Singular + " by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var item map[string]any
			if err := newClient().getJSON(c.Path+"/"+args[0], &item); err != nil {
				return err
			}
			if outputFmt == "table" {
				return printJSON(item)
			}
			return printOutput(item)
		},
	}
}

func buildCreateCommand(c entityCategory) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a " + c.Singular + " from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", fromFile, err)
			}
			var body map[string]any
			if err := json.Unmarshal(data, &body); err != nil {
				return fmt.Errorf("parse %s: %w", fromFile, err)
			}
			var created map[string]any
			if err := newClient().postJSON(c.Path, body, &created); err != nil {
				return err
			}
			fmt.Printf("Created %s %s\n", c.Singular, field(created, "ID"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Path to the JSON payload (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
