package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/service"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show build info and what the auth service is configured to do",
	Long: `Shows the build of idtoken together with the project, tenant and the
features (minting, revocation checks, admin rules) of the auth service.

With --server the running server is asked, otherwise the service is built
from --config. Without either, only the local build info is shown.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			log.Debug().Msg("Fetching info from server...")
			info, correlation, err := cli.Info(cmd.Context())
			if err != nil {
				return logError(err, correlation, "failed to get info from server")
			}
			printBuildInfo(info.Build)
			printSummary(info.Service)
			return nil
		}

		printBuildInfo(buildinfo.GetBuildInfo())
		if f.ConfigPath == "" {
			return nil
		}
		svc, err := f.GetLocalService(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(svc.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printBuildInfo(info buildinfo.Info) {
	fmt.Println(bold("\n── Build ──"))
	printKV("Version", info.Version)
	printKV("Commit", info.CommitHash)
	if info.GoVersion != "" {
		printKV("Go Version", info.GoVersion)
	}
}

func printSummary(s service.Summary) {
	enabled := func(b bool) string {
		if b {
			return greenCheck + " enabled"
		}
		return redCross + " disabled"
	}

	fmt.Println(bold("\n── Auth Service ──"))
	printKV("Project", s.ProjectID)
	if s.TenantID != "" {
		printKV("Tenant", s.TenantID)
	} else {
		printKV("Tenant", faint("(any)"))
	}
	if s.Emulator {
		printKV("Mode", "emulator (signatures are NOT verified)")
	} else {
		printKV("Mode", "production")
	}
	printKV("Minting", enabled(s.MintingEnabled))
	printKV("Revocation", enabled(s.RevocationEnabled))
	printKV("Admin Rules", strings.Join(s.AdminRules, ", "))
	fmt.Println()
}
