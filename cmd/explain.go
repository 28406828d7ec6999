package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/core"
)

var explainRuleFilter string

var explainCmd = &cobra.Command{
	Use:   "explain [TOKEN|-]",
	Short: "Explain why an ID token is (or is not) granted admin access",
	Long: `Verifies the ID token and returns a detailed trace of the admin rule evaluation.
Useful for debugging why a token is denied admin access or matches the wrong rule.

With --server the evaluation happens on the server, which requires you to be logged
in as admin. Otherwise the rules from the local configuration are used.`,
	Example: `  # Which admin rules does my token match?
  idtoken explain -c config.yaml eyJhbGciOi...

  # Why is it not matching the 'ops-team' rule?
  idtoken explain --server localhost:8080 --rule ops-team eyJhbGciOi...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		var trace *core.EvaluationTrace
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			if trace, correlation, err = cli.ExplainAdmin(cmd.Context(), raw); err != nil {
				return logError(err, correlation, "failed to explain token")
			}
		} else {
			svc, err := f.GetLocalService(cmd.Context())
			if err != nil {
				return err
			}
			if trace, err = svc.ExplainAdmin(cmd.Context(), raw); err != nil {
				return logError(err, "", "failed to explain token")
			}
		}

		printTrace(trace)
		return nil
	},
}

func printTrace(trace *core.EvaluationTrace) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("\n%s for uid %s\n", bold("Admin Evaluation Trace"), bold(trace.Subject))
	if trace.CorrelationID != "" {
		fmt.Println(faint("correlation id: " + trace.CorrelationID))
	}
	fmt.Println(faint("---------------------------------------------------"))

	for _, res := range trace.RuleResults {
		if explainRuleFilter != "" && res.RuleName != explainRuleFilter {
			continue
		}

		icon := redCross
		if res.Matched {
			icon = greenCheck
		}
		fmt.Printf("%s Rule: %s\n", icon, bold(res.RuleName))
		if res.Description != "" {
			fmt.Printf("  %s\n", faint(res.Description))
		}

		for _, cond := range res.ConditionResults {
			trimmed := strings.TrimLeft(cond.Expression, " ")
			indent := strings.Repeat(" ", len(cond.Expression)-len(trimmed))

			condIcon := red("✘")
			if cond.Matched {
				condIcon = green("✔")
			}

			// logic gates are rendered as "[AND]" / "[OR]" labels
			if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
				fmt.Printf("    %s%s %s\n", indent, condIcon, cyan(trimmed))
			} else {
				fmt.Printf("    %s%s %s\n", indent, condIcon, trimmed)
			}

			if cond.Reason != "" {
				reason := yellow(cond.Reason)
				if cond.Matched {
					reason = faint(cond.Reason)
				}
				fmt.Printf("%s      ↳ %s\n", indent, reason)
			}
		}
		fmt.Println()
	}

	fmt.Println(faint("---------------------------------------------------"))
	if trace.FinalDecision {
		fmt.Printf("Decision: %s via rule '%s'\n", bold(green("allowed")), bold(trace.GrantedRule))
	} else {
		fmt.Printf("Decision: %s\n", bold(red("denied")))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVarP(&explainRuleFilter, "rule", "r", "", "Only show the result of this rule")
}
