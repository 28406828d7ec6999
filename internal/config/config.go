package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/darmiel/idtoken/internal/core"
)

const (
	// EmulatorHostEnv switches verification into emulator mode when set.
	// Signature checks are skipped in emulator mode, never set it against production.
	EmulatorHostEnv = "FIREBASE_AUTH_EMULATOR_HOST"

	GoogleCloudProjectEnv = "GOOGLE_CLOUD_PROJECT"
	GCloudProjectEnv      = "GCLOUD_PROJECT"
)

const (
	SignerTypeLocal = "local"
	SignerTypeIAM   = "iam"

	UsersTypeNone            = "none"
	UsersTypeIdentityToolkit = "identitytoolkit"
	UsersTypeStatic          = "static"

	AuditTypeNoop   = "noop"
	AuditTypeMemory = "memory"
	AuditTypeFile   = "file"
)

type Config struct {
	// ProjectID is the expected audience of ID tokens and session cookies.
	ProjectID string `yaml:"project_id"`

	// TenantID scopes minting and verification to a single tenant.
	TenantID string `yaml:"tenant_id"`

	// EmulatorHost is the host:port of a local auth emulator.
	// Defaults to the FIREBASE_AUTH_EMULATOR_HOST environment variable.
	EmulatorHost string `yaml:"emulator_host"`

	Signer SignerConfig `yaml:"signer"`
	Keys   KeysConfig   `yaml:"keys"`
	Users  UsersConfig  `yaml:"users"`
	Audit  AuditConfig  `yaml:"audit"`
	Admin  AdminConfig  `yaml:"admin"`
}

// SignerConfig selects the signer used for custom tokens.
type SignerConfig struct {
	Type   string         `yaml:"type"`    // e.g., "local", "iam"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// KeysConfig overrides the public key endpoints.
type KeysConfig struct {
	IDTokenURL       string        `yaml:"id_token_url"`
	SessionCookieURL string        `yaml:"session_cookie_url"`
	DefaultMaxAge    time.Duration `yaml:"default_max_age"`
	Timeout          time.Duration `yaml:"timeout"`
}

// UsersConfig selects the user lookup used for revocation checks.
type UsersConfig struct {
	Type   string         `yaml:"type"`    // e.g., "identitytoolkit", "static"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Type     string `yaml:"type"` // e.g., "file", "memory"
	Capacity int    `yaml:"capacity"`
}

// AdminConfig decides which verified ID tokens may access admin routes.
type AdminConfig struct {
	// Rules are evaluated in order, the first match grants access.
	// Defaults to a single rule requiring the developer claim 'admin: true'.
	Rules []core.Rule `yaml:"rules"`
}

// Load reads and parses the configuration file at the given path.
// Environment fallbacks are applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv fills unset fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.EmulatorHost == "" {
		c.EmulatorHost = getenv(EmulatorHostEnv)
	}
	if c.ProjectID == "" {
		c.ProjectID = getenv(GoogleCloudProjectEnv)
	}
	if c.ProjectID == "" {
		c.ProjectID = getenv(GCloudProjectEnv)
	}
}

// EmulatorMode reports whether an emulator host is configured.
func (c *Config) EmulatorMode() bool {
	return c.EmulatorHost != ""
}

func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required (or set %s)", GoogleCloudProjectEnv)
	}

	switch c.Signer.Type {
	case "", SignerTypeLocal, SignerTypeIAM:
	default:
		return fmt.Errorf("unknown signer type %q", c.Signer.Type)
	}

	switch c.Users.Type {
	case "", UsersTypeNone, UsersTypeIdentityToolkit, UsersTypeStatic:
	default:
		return fmt.Errorf("unknown users type %q", c.Users.Type)
	}

	if c.Keys.DefaultMaxAge < 0 {
		return fmt.Errorf("keys.default_max_age must not be negative")
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "", AuditTypeNoop, AuditTypeMemory:
		case AuditTypeFile:
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for file auditing")
			}
		default:
			return fmt.Errorf("unknown audit type %q", c.Audit.Type)
		}
	}

	return nil
}
