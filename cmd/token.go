package cmd

import (
	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint custom tokens and verify ID tokens or session cookies",
	Long: `Runs against the service configuration given with --config, or against
a remote server when --server is set.`,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
