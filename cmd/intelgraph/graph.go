package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var relationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "Query and assert relationships between entities",
}

var externalIDsCmd = &cobra.Command{
	Use:   "external-ids",
	Short: "Manage external ID links",
}

func init() {
	relationshipsCmd.AddCommand(relListCmd())
	relationshipsCmd.AddCommand(relOfCmd())
	relationshipsCmd.AddCommand(relAddCmd())
	externalIDsCmd.AddCommand(extidListCmd())
	externalIDsCmd.AddCommand(extidLinkCmd())
}

func relListCmd() *cobra.Command {
	var relType, source string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List relationships, optionally filtered by type and source",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if relType != "" {
				q.Set("type", relType)
			}
			if source != "" {
				q.Set("source", source)
			}
			path := "/api/intel/v1/relationships"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			var edges []map[string]any
			if err := newClient().getJSON(path, &edges); err != nil {
				return err
			}
			return printEdges(edges)
		},
	}
	cmd.Flags().StringVar(&relType, "type", "", "Relationship type filter")
	cmd.Flags().StringVar(&source, "source", "", "Source system filter")
	return cmd
}

func relOfCmd() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "of [entity-type] [entity-id]",
		Short: "List relationships touching one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/intel/v1/entities/%s/%s/relationships?direction=%s",
				url.PathEscape(args[0]), url.PathEscape(args[1]), url.QueryEscape(direction))
			var edges []map[string]any
			if err := newClient().getJSON(path, &edges); err != nil {
				return err
			}
			return printEdges(edges)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "both", "Edge direction: outgoing, incoming, both")
	return cmd
}

func relAddCmd() *cobra.Command {
	var confidence float64
	var source string
	cmd := &cobra.Command{
		Use:   "add [from-type] [from-id] [rel-type] [to-type] [to-id]",
		Short: "Assert a relationship between two entities",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"from_entity_type":  args[0],
				"from_entity_id":    args[1],
				"relationship_type": args[2],
				"to_entity_type":    args[3],
				"to_entity_id":      args[4],
				"source":            source,
				"confidence":        confidence,
			}
			var edge map[string]any
			if err := newClient().postJSON("/api/intel/v1/relationships", body, &edge); err != nil {
				return err
			}
			fmt.Printf("Edge %s asserted\n", field(edge, "ID"))
			return nil
		},
	}
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "Edge confidence in [0,1]")
	cmd.Flags().StringVar(&source, "source", "manual", "Source system asserting the edge")
	return cmd
}

func printEdges(edges []map[string]any) error {
	if outputFmt != "table" {
		return printOutput(edges)
	}
	cols := []string{"FromEntityType", "FromEntityID", "RelationshipType", "ToEntityType", "ToEntityID", "Source", "Confidence"}
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = truncate(field(e, col), 36)
		}
		rows = append(rows, row)
	}
	printTable(cols, rows)
	return nil
}

func extidListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [entity-type] [entity-id]",
		Short: "List the external IDs linked to an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/intel/v1/entities/%s/%s/external-ids",
				url.PathEscape(args[0]), url.PathEscape(args[1]))
			var ids []map[string]any
			if err := newClient().getJSON(path, &ids); err != nil {
				return err
			}
			if outputFmt != "table" {
				return printOutput(ids)
			}
			cols := []string{"Source", "ExternalID", "ExternalIDType"}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{field(id, "Source"), field(id, "ExternalID"), field(id, "ExternalIDType")})
			}
			printTable(cols, rows)
			return nil
		},
	}
}

func extidLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link [entity-type] [entity-id] [source] [external-id]",
		Short: "Link an external ID to an entity",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"entity_type": args[0],
				"entity_id":   args[1],
				"source":      args[2],
				"external_id": args[3],
			}
			if err := newClient().postJSON("/api/intel/v1/external-ids", body, nil); err != nil {
				return err
			}
			fmt.Printf("Linked %s:%s to %s %s\n", args[2], args[3], args[0], args[1])
			return nil
		},
	}
}
