package keys

import (
	"context"
	"crypto/rsa"

	"github.com/darmiel/idtoken/internal/core"
)

var _ core.PublicKeySource = (StaticKeySource)(nil)

// StaticKeySource serves a fixed set of keys. It never performs network I/O.
type StaticKeySource map[string]*rsa.PublicKey

func (s StaticKeySource) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok := s[kid]
	if !ok {
		return nil, core.NewError(core.KindKeyNotFound, "no public key found for kid %q", kid)
	}
	return key, nil
}
