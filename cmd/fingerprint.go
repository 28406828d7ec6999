package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/audit"
)

var fingerprintRaw bool

var fingerprintCmd = &cobra.Command{
	Use:     "fingerprint [TOKEN|-]",
	Aliases: []string{"fp"},
	Short:   `Calculate the fingerprint of a token`,
	Long: `Calculates the fingerprint of a token, derived from its signature segment.
This is the value stored in the audit log's 'token_fingerprint' field.`,
	Example: `  # Find audit entries of a token
  idtoken audit log --fingerprint "$(idtoken fp -r eyJhbGciOi...)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		fp := audit.Fingerprint(raw)
		if fingerprintRaw {
			fmt.Println(fp)
		} else {
			fmt.Println("Fingerprint:", fp)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)

	fingerprintCmd.Flags().BoolVarP(&fingerprintRaw, "raw", "r", false,
		"Output only the fingerprint value without additional text")
}
