package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/token"
	"github.com/darmiel/idtoken/pkg/client"
)

var (
	tokenVerifySession      bool
	tokenVerifyCheckRevoked bool
	tokenVerifyTenant       string
	tokenVerifyJSON         bool
)

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify [TOKEN|-]",
	Short: "Verify an ID token or session cookie",
	Example: `  # Verify an ID token and check whether it was revoked
  idtoken token verify -c config.yaml --check-revoked eyJhbGciOi...

  # Verify a session cookie read from stdin
  echo "eyJhbGciOi..." | idtoken token verify --session -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		shortName := token.IDTokenShortName
		if tokenVerifySession {
			shortName = token.SessionCookieShortName
		}

		var decoded *core.DecodedToken
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			opts := client.VerifyOptions{
				CheckRevoked: tokenVerifyCheckRevoked,
				TenantID:     tokenVerifyTenant,
			}
			var correlation string
			if tokenVerifySession {
				decoded, correlation, err = cli.VerifySessionCookie(cmd.Context(), raw, opts)
			} else {
				decoded, correlation, err = cli.VerifyIDToken(cmd.Context(), raw, opts)
			}
			if err != nil {
				return logError(err, correlation, shortName+" is invalid")
			}
		} else {
			svc, err := f.GetLocalService(cmd.Context())
			if err != nil {
				return err
			}
			if tokenVerifyTenant != "" {
				svc = svc.ForTenant(tokenVerifyTenant)
			}
			if tokenVerifySession {
				decoded, err = svc.VerifySessionCookie(cmd.Context(), raw, tokenVerifyCheckRevoked)
			} else {
				decoded, err = svc.VerifyIDToken(cmd.Context(), raw, tokenVerifyCheckRevoked)
			}
			if err != nil {
				return logError(err, "", shortName+" is invalid")
			}
		}

		if tokenVerifyJSON {
			return printJSON(struct {
				*core.DecodedToken
				Claims map[string]any `json:"claims,omitempty"`
			}{decoded, decoded.Claims})
		}
		logSuccess("%s is valid", shortName)
		printDecoded(shortName, decoded)
		return nil
	},
}

func readTokenArg(arg string) (string, error) {
	raw := arg
	if arg == "-" {
		log.Debug().Msg("Reading token from stdin")
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", fmt.Errorf("failed to read token from stdin: %w", err)
		}
		raw = string(data)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return raw, nil
}

func init() {
	tokenCmd.AddCommand(tokenVerifyCmd)

	tokenVerifyCmd.Flags().BoolVar(&tokenVerifySession, "session", false, "Verify a session cookie instead of an ID token")
	tokenVerifyCmd.Flags().BoolVar(&tokenVerifyCheckRevoked, "check-revoked", false,
		"Also check whether the token was revoked or the user disabled")
	tokenVerifyCmd.Flags().StringVar(&tokenVerifyTenant, "tenant", "", "Only accept tokens of this tenant")
	tokenVerifyCmd.Flags().BoolVar(&tokenVerifyJSON, "json", false, "Print the decoded token as JSON")
}
