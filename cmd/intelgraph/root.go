package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	orgID     string
)

var rootCmd = &cobra.Command{
	Use:   "intelgraph",
	Short: "CLI for the asset intelligence server",
	Long: `intelgraph talks to the asset intelligence server's HTTP API.

It covers the entity registry (assets, identities, groups, environments,
locations, teams, business services), external ID resolution, the
relationship graph, and the ingestion audit trail.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Intelligence server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&orgID, "org", "", "Organization ID for multi-tenant operations (default: from INTEL_ORG env)")

	for _, c := range entityCategories {
		rootCmd.AddCommand(buildCategoryCommand(c))
	}
	rootCmd.AddCommand(relationshipsCmd)
	rootCmd.AddCommand(externalIDsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedOrg returns the effective org ID. Priority: --org flag, then the
// INTEL_ORG env var.
func resolvedOrg() string {
	if orgID != "" {
		return orgID
	}
	return os.Getenv("INTEL_ORG")
}
