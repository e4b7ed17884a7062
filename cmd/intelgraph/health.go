package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status map[string]string
		if err := newClient().getJSON("/healthz", &status); err != nil {
			return err
		}
		fmt.Printf("Server %s: %s\n", serverURL, status["status"])
		return nil
	},
}
