package cliconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialExpired  = errors.New("credential expired, run 'idtoken login' again")
)

// Credential is the ID token presented to admin routes of a server.
type Credential struct {
	Token string `yaml:"token"`
	UID   string `yaml:"uid,omitempty"`

	// ExpiresAt is the exp claim of Token. Zero means unknown.
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
}

// Expired reports whether the token is past its exp claim at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CLIConfig is the local state of the CLI, keyed by server host.
type CLIConfig struct {
	Credentials map[string]*Credential `yaml:"credentials"`
}

// GetConfigPath returns $XDG_CONFIG_HOME/idtoken/config.yaml (or the platform equivalent).
func GetConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(dir, "idtoken", "config.yaml"), nil
}

// Load reads the CLI config. A missing file yields an error wrapping os.ErrNotExist.
func Load() (*CLIConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file '%s': %w", path, err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config file '%s': %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg with owner-only permissions, it contains bearer tokens.
func Save(cfg *CLIConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory '%s': %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file '%s': %w", path, err)
	}
	return nil
}

// SetCredential stores cred for the host of server.
func (c *CLIConfig) SetCredential(server string, cred *Credential) error {
	host, err := HostOf(server)
	if err != nil {
		return err
	}
	if c.Credentials == nil {
		c.Credentials = make(map[string]*Credential)
	}
	c.Credentials[host] = cred
	return nil
}

// HostOf returns the host:port credentials of server are stored under.
// Addresses without a scheme are treated as http.
func HostOf(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL '%s' has no host", server)
	}
	return u.Host, nil
}

// GetCredential returns the credential saved for server if it has not expired at now.
func (c *CLIConfig) GetCredential(server string, now time.Time) (*Credential, error) {
	host, err := HostOf(server)
	if err != nil {
		return nil, err
	}
	cred, ok := c.Credentials[host]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	if cred.Expired(now) {
		return nil, ErrCredentialExpired
	}
	return cred, nil
}
