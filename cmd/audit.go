package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log of a running server",
	Long:  "Requires --server and an ID token matching an admin rule (see 'idtoken login').",
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
