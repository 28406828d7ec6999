package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/audit"
	"github.com/darmiel/idtoken/internal/cliconfig"
	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/service"
	"github.com/darmiel/idtoken/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the idtoken server to connect to.
	// Commands run locally when it is empty.
	RemoteAddr string

	// ConfigPath is the service configuration used for local operations.
	ConfigPath string

	// AuthToken overrides the saved credential for the remote server.
	AuthToken string
}

func NewFactory() *Factory {
	return &Factory{}
}

// Remote reports whether commands should talk to a server.
func (f *Factory) Remote() bool {
	return f.RemoteAddr != ""
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.RemoteAddr
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set IDTOKEN_ADDR)")
	}

	token := f.AuthToken // prio 1: flag / env
	if token == "" {
		if cfg, err := cliconfig.Load(); err == nil {
			cred, err := cfg.GetCredential(server, time.Now()) // prio 2: saved credential
			switch {
			case err == nil:
				token = cred.Token
			case errors.Is(err, cliconfig.ErrCredentialExpired):
				log.Warn().Str("server", server).Msg("saved ID token has expired, run 'idtoken login' again")
			}
		}
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set IDTOKEN_CONFIG)")
	}
	return config.Load(f.ConfigPath)
}

// GetLocalService builds an AuthService from the local configuration.
func (f *Factory) GetLocalService(ctx context.Context) (*service.AuthService, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	// for local CLI operations, we don't do auditing
	return service.New(ctx, cfg, audit.NewNoopAuditor())
}
