package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect the published public keys",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the key ids currently published for ID tokens and session cookies",
	Long: `Fetches both key sets and prints their key ids together with the time the
cached set expires, as derived from the response's Cache-Control max-age.
Endpoint overrides are read from --config when given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var keysCfg config.KeysConfig
		if f.ConfigPath != "" {
			cfg, err := f.LoadConfig()
			if err != nil {
				return err
			}
			keysCfg = cfg.Keys
		}

		sources := []struct {
			name string
			url  string
		}{
			{"ID token", firstNonEmpty(keysCfg.IDTokenURL, keys.IDTokenCertsURL)},
			{"session cookie", firstNonEmpty(keysCfg.SessionCookieURL, keys.SessionCookieCertsURL)},
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Token Type", "Key ID", "Cached Until"})

		for _, src := range sources {
			source := keys.NewHTTPKeySource(src.url,
				keys.WithUserAgent(buildinfo.UserAgent()),
				keys.WithDefaultMaxAge(keysCfg.DefaultMaxAge))

			log.Debug().Str("url", src.url).Msgf("Fetching %s keys...", src.name)
			ids, expiresAt, err := source.KeyIDs(cmd.Context())
			if err != nil {
				return logError(err, "", fmt.Sprintf("failed to fetch %s keys", src.name))
			}
			for _, kid := range ids {
				t.AppendRow(table.Row{
					src.name,
					kid,
					expiresAt.Local().Format(time.RFC3339),
				})
			}
			t.AppendSeparator()
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd)
}
