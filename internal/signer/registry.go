package signer

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/credentials"
)

// LocalConfig configures a LocalSigner. Either a service account key file or a
// PEM private key with an email is required.
type LocalConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Credentials     string `mapstructure:"credentials"`

	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyFile string `mapstructure:"private_key_path"`
	ClientEmail    string `mapstructure:"client_email"`
}

// IAMConfig configures a RemoteSigner.
type IAMConfig struct {
	// ServiceAccount fixes the signing identity and disables discovery.
	ServiceAccount string `mapstructure:"service_account"`

	// CredentialsFile authenticates sign-blob calls. Application default credentials
	// are used when empty.
	CredentialsFile string `mapstructure:"credentials_file"`

	// Endpoint overrides the sign-blob URL format.
	Endpoint string `mapstructure:"endpoint"`
}

// Build creates the signer selected by cfg. An empty type selects the local signer.
func Build(ctx context.Context, cfg config.SignerConfig) (core.Signer, error) {
	switch cfg.Type {
	case "", config.SignerTypeLocal:
		var conf LocalConfig
		if err := decode(cfg.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding local signer config: %w", err)
		}
		return NewLocalFromConfig(conf)
	case config.SignerTypeIAM:
		var conf IAMConfig
		if err := decode(cfg.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding iam signer config: %w", err)
		}
		httpClient, err := credentials.HTTPClient(ctx, conf.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return NewIAMFromConfig(conf, httpClient)
	default:
		return nil, fmt.Errorf("unknown signer type %q", cfg.Type)
	}
}

func NewLocalFromConfig(conf LocalConfig) (*LocalSigner, error) {
	switch {
	case conf.Credentials != "":
		return NewLocalSignerFromCredentials([]byte(conf.Credentials))
	case conf.CredentialsFile != "":
		data, err := os.ReadFile(conf.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return NewLocalSignerFromCredentials(data)
	case conf.PrivateKey != "":
		return NewLocalSignerFromPEM(conf.ClientEmail, []byte(conf.PrivateKey))
	case conf.PrivateKeyFile != "":
		data, err := os.ReadFile(conf.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading private key file: %w", err)
		}
		return NewLocalSignerFromPEM(conf.ClientEmail, data)
	default:
		return nil, core.NewError(core.KindConfiguration,
			"local signer requires 'credentials', 'credentials_file', 'private_key' or 'private_key_path'")
	}
}

func NewIAMFromConfig(conf IAMConfig, httpClient *http.Client) (*RemoteSigner, error) {
	opts := []RemoteOption{WithUserAgent(buildinfo.UserAgent())}
	if conf.Endpoint != "" {
		opts = append(opts, WithSignBlobEndpoint(conf.Endpoint))
	}
	if conf.ServiceAccount != "" {
		return NewFixedIdentitySigner(httpClient, conf.ServiceAccount, opts...)
	}
	return NewRemoteSigner(httpClient, opts...), nil
}

func decode(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
