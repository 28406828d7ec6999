package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/keys"
)

const (
	testProjectID = "project-1"
	testKeyID     = "key-1"
	testEmail     = "firebase-adminsdk@project-1.iam.gserviceaccount.com"
)

var testNow = time.Unix(1_700_000_000, 0)

var (
	keyOnce    sync.Once
	primaryKey *rsa.PrivateKey
	otherKey   *rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		if primaryKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if otherKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return primaryKey, otherKey
}

// keySource serves the public half of the primary test key under testKeyID.
func keySource(t *testing.T) keys.StaticKeySource {
	key, _ := testKeys(t)
	return keys.StaticKeySource{testKeyID: &key.PublicKey}
}

func validClaims(issuerPrefix string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":       issuerPrefix + testProjectID,
		"aud":       testProjectID,
		"sub":       "alice",
		"iat":       testNow.Add(-time.Minute).Unix(),
		"exp":       testNow.Add(time.Hour).Unix(),
		"auth_time": testNow.Add(-time.Minute).Unix(),
		"firebase": map[string]any{
			"sign_in_provider": "password",
			"identities":       map[string]any{"email": []any{"alice@example.com"}},
		},
		"admin": true,
	}
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

type fakeSigner struct {
	identity    string
	identityErr error
	signErr     error
	key         *rsa.PrivateKey
}

func (f *fakeSigner) Identity(context.Context) (string, error) {
	return f.identity, f.identityErr
}

func (f *fakeSigner) Sign(_ context.Context, b []byte) ([]byte, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}
	return jwt.SigningMethodRS256.Sign(string(b), f.key)
}

type failingKeySource struct {
	err error
}

func (f failingKeySource) PublicKey(context.Context, string) (*rsa.PublicKey, error) {
	return nil, f.err
}

var errBoom = errors.New("boom")

func assertKind(t *testing.T, err error, want core.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %q, got nil", want)
	}
	if got := core.KindOf(err); got != want {
		t.Fatalf("expected error of kind %q, got %q (%v)", want, got, err)
	}
}
