package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/service"
)

var (
	tokenMintClaims string
	tokenMintTenant string
	tokenMintRaw    bool
)

var tokenMintCmd = &cobra.Command{
	Use:   "mint UID",
	Short: "Mint a custom token for a user",
	Example: `  # Mint a custom token with developer claims
  idtoken token mint -c config.yaml alice --claims '{"premium":true}'

  # Mint through a running server
  idtoken --server localhost:8080 token mint alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]

		var claims map[string]any
		if tokenMintClaims != "" {
			if err := json.Unmarshal([]byte(tokenMintClaims), &claims); err != nil {
				return fmt.Errorf("parsing --claims as JSON object: %w", err)
			}
		}

		var (
			signed      string
			correlation string
		)
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			res, corr, err := cli.CreateCustomToken(cmd.Context(), uid, claims, tokenMintTenant)
			if err != nil {
				return logError(err, corr, "failed to mint custom token")
			}
			signed, correlation = res.Token, corr
		} else {
			svc, err := f.GetLocalService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.CreateCustomToken(cmd.Context(), service.MintRequest{
				UID:      uid,
				Claims:   claims,
				TenantID: tokenMintTenant,
			})
			if err != nil {
				return logError(err, "", "failed to mint custom token")
			}
			signed = res.Token
		}

		if tokenMintRaw {
			fmt.Println(signed)
			return nil
		}
		logSuccess("minted custom token for %s", bold(uid))
		if correlation != "" {
			log.Debug().Str("correlation_id", correlation).Msg("minted remotely")
		}
		fmt.Println(signed)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenMintCmd)

	tokenMintCmd.Flags().StringVar(&tokenMintClaims, "claims", "", "Developer claims as a JSON object")
	tokenMintCmd.Flags().StringVar(&tokenMintTenant, "tenant", "", "Tenant to mint the token for")
	tokenMintCmd.Flags().BoolVarP(&tokenMintRaw, "raw", "r", false, "Output only the token")
}
