package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/cliconfig"
	"github.com/darmiel/idtoken/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login ID-TOKEN",
	Short: "Save an admin ID token for a server",
	Long: `Verifies the ID token against the server and saves it locally, so that
admin requests (like the audit log) are authenticated.
The token must match one of the server's admin rules to be accepted by admin routes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idToken, err := readTokenArg(args[0])
		if err != nil {
			return err
		}

		if !f.Remote() {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}
		host, err := cliconfig.HostOf(f.RemoteAddr)
		if err != nil {
			return err
		}

		cli := client.New(f.RemoteAddr, client.WithAuthToken(idToken))

		log.Info().Msgf("Verifying ID token with server %q...", host)
		decoded, correlation, err := cli.VerifyIDToken(cmd.Context(), idToken, client.VerifyOptions{})
		if err != nil {
			return logError(err, correlation, "ID token was rejected")
		}
		if trace, _, err := cli.ExplainAdmin(cmd.Context(), idToken); err != nil {
			log.Warn().Err(err).Str("uid", decoded.UID).Msg("token matches no admin rule, admin requests will be denied")
		} else {
			log.Info().Str("rule", trace.GrantedRule).Msg("admin access granted")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = &cliconfig.CLIConfig{}
		}
		err = cfg.SetCredential(f.RemoteAddr, &cliconfig.Credential{
			Token:     idToken,
			UID:       decoded.UID,
			ExpiresAt: time.Unix(decoded.Expires, 0).UTC(),
		})
		if err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("saved credentials of %s for %s (valid until %s)",
			bold(decoded.UID), bold(host), time.Unix(decoded.Expires, 0).Local().Format(time.Kitchen))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
