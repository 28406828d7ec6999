package signer

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idtoken/internal/core"
)

var _ core.Signer = (*LocalSigner)(nil)

// LocalSigner signs with an in-process RSA private key.
type LocalSigner struct {
	email string
	key   *rsa.PrivateKey
}

// ServiceAccount is the subset of a service account JSON key file used for signing.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
}

// ParseServiceAccount parses a service account JSON key file.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if sa.Type != "" && sa.Type != "service_account" {
		return nil, fmt.Errorf("credentials of type %q are not service account credentials", sa.Type)
	}
	return &sa, nil
}

func NewLocalSigner(email string, key *rsa.PrivateKey) (*LocalSigner, error) {
	if key == nil {
		return nil, core.NewError(core.KindConfiguration, "local signer requires a private key")
	}
	return &LocalSigner{
		email: email,
		key:   key,
	}, nil
}

// NewLocalSignerFromPEM parses a PKCS#1 or PKCS#8 PEM encoded RSA private key.
func NewLocalSignerFromPEM(email string, pemBytes []byte) (*LocalSigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, core.WrapError(core.KindConfiguration, err, "parsing private key")
	}
	return NewLocalSigner(email, key)
}

// NewLocalSignerFromCredentials creates a signer from a service account JSON key file.
func NewLocalSignerFromCredentials(data []byte) (*LocalSigner, error) {
	sa, err := ParseServiceAccount(data)
	if err != nil {
		return nil, core.WrapError(core.KindConfiguration, err, "loading service account")
	}
	if sa.PrivateKey == "" {
		return nil, core.NewError(core.KindConfiguration, "service account credentials contain no private key")
	}
	return NewLocalSignerFromPEM(sa.ClientEmail, []byte(sa.PrivateKey))
}

func (s *LocalSigner) Identity(context.Context) (string, error) {
	if s.email == "" {
		return "", core.NewError(core.KindConfiguration, "local signer has no service account email")
	}
	return s.email, nil
}

func (s *LocalSigner) Sign(ctx context.Context, b []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := jwt.SigningMethodRS256.Sign(string(b), s.key)
	if err != nil {
		return nil, core.WrapError(core.KindSigning, err, "signing with local key")
	}
	return sig, nil
}

// PublicKey returns the public half of the signing key.
func (s *LocalSigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}
