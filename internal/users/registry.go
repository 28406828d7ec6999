package users

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/credentials"
	"github.com/darmiel/idtoken/internal/store"
)

// IdentityToolkitConfig configures the remote user lookup.
type IdentityToolkitConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	BaseURL         string `mapstructure:"base_url"`
}

// StaticConfig lists user records served from memory.
type StaticConfig struct {
	Records []core.UserRecord `mapstructure:"records"`
}

// Build creates the user lookup selected by cfg.Users.
// It returns nil when no lookup is configured, which disables revocation checks.
func Build(ctx context.Context, cfg *config.Config) (core.UserGetter, error) {
	switch cfg.Users.Type {
	case "", config.UsersTypeNone:
		return nil, nil
	case config.UsersTypeStatic:
		var conf StaticConfig
		if err := decode(cfg.Users.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding static users config: %w", err)
		}
		for idx, r := range conf.Records {
			if r.UID == "" {
				return nil, fmt.Errorf("static user at index %d has empty uid", idx)
			}
		}
		return store.NewInMemoryUserStore(conf.Records...), nil
	case config.UsersTypeIdentityToolkit:
		var conf IdentityToolkitConfig
		if err := decode(cfg.Users.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding identitytoolkit users config: %w", err)
		}
		opts := []Option{WithUserAgent(buildinfo.UserAgent())}
		if cfg.TenantID != "" {
			opts = append(opts, WithTenant(cfg.TenantID))
		}
		if cfg.EmulatorMode() {
			opts = append(opts, WithEmulatorHost(cfg.EmulatorHost))
			return NewClient(credentials.EmulatorClient(), cfg.ProjectID, opts...), nil
		}
		if conf.BaseURL != "" {
			opts = append(opts, WithBaseURL(conf.BaseURL))
		}
		httpClient, err := credentials.HTTPClient(ctx, conf.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return NewClient(httpClient, cfg.ProjectID, opts...), nil
	default:
		return nil, fmt.Errorf("unknown users type %q", cfg.Users.Type)
	}
}

func decode(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
