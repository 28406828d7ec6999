package core

import (
	"context"
	"crypto/rsa"
)

// Signer produces RS256 signatures on behalf of a service account.
// Implementations: local private key, remote sign-blob (discovered or fixed identity).
type Signer interface {
	// Identity returns the service account the signer signs as.
	Identity(ctx context.Context) (string, error)

	// Sign returns the RS256 signature of b.
	Sign(ctx context.Context, b []byte) ([]byte, error)
}

// PublicKeySource resolves the public key for a key id.
type PublicKeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// UserGetter looks up user records. It returns ErrUserNotFound when no user exists.
type UserGetter interface {
	GetUser(ctx context.Context, uid string) (*UserRecord, error)
}
