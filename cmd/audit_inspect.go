package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/pkg/client"
)

var auditInspectCmd = &cobra.Command{
	Use:     "inspect CORRELATION-ID",
	Short:   "Show full details of a specific audit log entry",
	Example: `  idtoken audit inspect d0h6e3h0n3q4s6q7o0kg`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correlationID := args[0]
		if correlationID == "" {
			return fmt.Errorf("correlation ID cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving entry with correlation ID '%s'...", correlationID)
		audits, correlation, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{
			Limit:         1,
			CorrelationID: correlationID,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log entry")
		}
		if len(audits) == 0 {
			log.Warn().Str("correlation_id", correlationID).Msg("no audit log entries found")
			return nil
		}

		entry := audits[0]

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		status := green("succeeded")
		if !entry.Success {
			status = red("failed")
		}

		fmt.Println(bold("\n── Audit Entry ──"))
		printKV("Correlation ID", correlationID)
		printKV("Time", entry.Time.Local().Format(time.RFC1123))
		printKV("Action", entry.Action)
		printKV("Result", status)

		fmt.Println(bold("\n── Token ──"))
		if entry.Subject != "" {
			printKV("Subject", entry.Subject)
		} else {
			printKV("Subject", faint("(unknown)"))
		}
		if entry.TenantID != "" {
			printKV("Tenant", entry.TenantID)
		}
		if entry.TokenFingerprint != "" {
			printKV("Fingerprint", entry.TokenFingerprint)
		} else {
			printKV("Fingerprint", faint("(none)"))
		}

		if !entry.Success {
			fmt.Println(bold("\n── Failure ──"))
			printKV("Code", red(entry.ErrorKind))
			printKV("Error Message", red(entry.Error))
		}

		fmt.Println(bold("\n── Details ──"))
		printKV("Metadata", "")
		printMap(entry.Metadata)
		fmt.Println()

		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditInspectCmd)
}
