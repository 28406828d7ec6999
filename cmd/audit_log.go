package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/pkg/client"
)

var auditLogOpts client.ListAuditsOpts

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit log...")
		audits, correlation, err := cli.ListAudits(cmd.Context(), auditLogOpts)
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log")
		}

		log.Info().Msgf("Retrieved %d audit entries", len(audits))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Subject", "Tenant", "OK", "Code", "Correlation ID",
		})

		for _, e := range audits {
			status := color.GreenString("YES")
			if !e.Success {
				status = color.RedString("NO")
			}

			sub := "(unknown)"
			if e.Subject != "" {
				sub = truncate(e.Subject, 35)
			}

			t.AppendRow(table.Row{
				e.Time.Local().Format(time.RFC3339),
				e.Action,
				sub,
				e.TenantID,
				status,
				e.ErrorKind,
				e.ID,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintVarP(&auditLogOpts.Limit, "limit", "n", 25, "Number of audit entries to retrieve")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Action, "action", "", "Only show entries of this action (e.g. token.verify)")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Subject, "subject", "", "Only show entries of this uid")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Fingerprint, "fingerprint", "", "Only show entries of this token fingerprint")
	auditLogCmd.Flags().BoolVar(&auditLogOpts.FailedOnly, "failed", false, "Only show failed operations")
}
