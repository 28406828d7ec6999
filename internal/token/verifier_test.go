package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/idtoken/internal/core"
)

func newTestVerifier(t *testing.T, opts ...VerifierOption) *Verifier {
	t.Helper()
	opts = append([]VerifierOption{WithClock(core.NewFixedClock(testNow))}, opts...)
	v, err := NewIDTokenVerifier(testProjectID, keySource(t), opts...)
	if err != nil {
		t.Fatalf("NewIDTokenVerifier() unexpected error: %v", err)
	}
	return v
}

func TestVerifier_Verify(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestVerifier(t)

	decoded, err := v.Verify(context.Background(), sign(t, key, testKeyID, validClaims(IDTokenIssuerPrefix)))
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}

	want := &core.DecodedToken{
		AuthTime: testNow.Add(-time.Minute).Unix(),
		Issuer:   IDTokenIssuerPrefix + testProjectID,
		Audience: testProjectID,
		Expires:  testNow.Add(time.Hour).Unix(),
		IssuedAt: testNow.Add(-time.Minute).Unix(),
		Subject:  "alice",
		UID:      "alice",
		Firebase: core.FirebaseInfo{
			SignInProvider: "password",
			Identities:     map[string]any{"email": []any{"alice@example.com"}},
		},
		Claims: map[string]any{
			"auth_time": float64(testNow.Add(-time.Minute).Unix()),
			"firebase": map[string]any{
				"sign_in_provider": "password",
				"identities":       map[string]any{"email": []any{"alice@example.com"}},
			},
			"admin": true,
		},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("decoded token mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifier_Verify_Rejections(t *testing.T) {
	key, other := testKeys(t)
	now := testNow.Unix()
	skew := int64(ClockSkew / time.Second)

	with := func(mutate func(c jwt.MapClaims)) jwt.MapClaims {
		c := validClaims(IDTokenIssuerPrefix)
		mutate(c)
		return c
	}

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(IDTokenIssuerPrefix)).
		SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing HS256 token: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		wantKind core.Kind
		wantMsg  string
	}{
		{
			name:     "empty",
			token:    "",
			wantKind: core.KindArgument,
		},
		{
			name:     "two segments",
			token:    "abc.def",
			wantKind: core.KindMalformedToken,
			wantMsg:  "incorrect number of segments",
		},
		{
			name:     "empty segment",
			token:    "abc..def",
			wantKind: core.KindMalformedToken,
			wantMsg:  "incorrect number of segments",
		},
		{
			name:     "header not json",
			token:    "bm90LWpzb24.e30.c2ln",
			wantKind: core.KindMalformedToken,
		},
		{
			name:     "wrong algorithm",
			token:    hs256,
			wantKind: core.KindUnsupportedAlgorithm,
			wantMsg:  `ID token has invalid algorithm; expected "RS256" but got "HS256"`,
		},
		{
			name:     "missing kid",
			token:    sign(t, key, "", validClaims(IDTokenIssuerPrefix)),
			wantKind: core.KindMissingKeyID,
			wantMsg:  "has no 'kid' claim",
		},
		{
			name:     "unknown kid",
			token:    sign(t, key, "unknown", validClaims(IDTokenIssuerPrefix)),
			wantKind: core.KindSignatureVerification,
			wantMsg:  "failed to verify ID token signature",
		},
		{
			name:     "bad signature",
			token:    sign(t, other, testKeyID, validClaims(IDTokenIssuerPrefix)),
			wantKind: core.KindSignatureVerification,
			wantMsg:  "failed to verify ID token signature",
		},
		{
			name:     "expired",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["exp"] = now - skew - 1 })),
			wantKind: core.KindExpiredToken,
			wantMsg:  "has expired at",
		},
		{
			name:     "issued in the future",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["iat"] = now + skew + 1 })),
			wantKind: core.KindNotYetValid,
			wantMsg:  "issued at future timestamp",
		},
		{
			name:     "wrong issuer",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["iss"] = IDTokenIssuerPrefix + "other" })),
			wantKind: core.KindIssuerMismatch,
			wantMsg:  "has incorrect issuer (iss) claim",
		},
		{
			name:     "session cookie presented as ID token",
			token:    sign(t, key, testKeyID, validClaims(SessionCookieIssuerPrefix)),
			wantKind: core.KindIssuerMismatch,
		},
		{
			name:     "wrong audience",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["aud"] = "other" })),
			wantKind: core.KindAudienceMismatch,
			wantMsg:  `expected "project-1" but got "other"`,
		},
		{
			name:     "empty subject",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["sub"] = "" })),
			wantKind: core.KindSubjectInvalid,
			wantMsg:  "no or empty subject",
		},
		{
			name:     "subject too long",
			token:    sign(t, key, testKeyID, with(func(c jwt.MapClaims) { c["sub"] = strings.Repeat("a", MaxUIDLength+1) })),
			wantKind: core.KindSubjectInvalid,
			wantMsg:  "longer than 128 characters",
		},
	}

	v := newTestVerifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assertKind(t, err, tt.wantKind)
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestVerifier_Verify_ClockSkew(t *testing.T) {
	key, _ := testKeys(t)
	now := testNow.Unix()
	skew := int64(ClockSkew / time.Second)
	v := newTestVerifier(t)

	tests := []struct {
		name     string
		exp      int64
		iat      int64
		wantKind core.Kind
	}{
		{name: "expired exactly at the skew", exp: now - skew, iat: now - 2*3600},
		{name: "expired past the skew", exp: now - skew - 1, iat: now - 2*3600, wantKind: core.KindExpiredToken},
		{name: "issued exactly at the skew", exp: now + 3600, iat: now + skew},
		{name: "issued past the skew", exp: now + 3600, iat: now + skew + 1, wantKind: core.KindNotYetValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims(IDTokenIssuerPrefix)
			claims["exp"] = tt.exp
			claims["iat"] = tt.iat
			_, err := v.Verify(context.Background(), sign(t, key, testKeyID, claims))
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Verify() unexpected error: %v", err)
				}
				return
			}
			assertKind(t, err, tt.wantKind)
		})
	}
}

func TestVerifier_Verify_Tenant(t *testing.T) {
	key, _ := testKeys(t)

	tenantClaims := validClaims(IDTokenIssuerPrefix)
	tenantClaims["firebase"] = map[string]any{"sign_in_provider": "password", "tenant": "tenant-a"}
	tenantToken := sign(t, key, testKeyID, tenantClaims)
	plainToken := sign(t, key, testKeyID, validClaims(IDTokenIssuerPrefix))

	scoped := newTestVerifier(t, WithTenant("tenant-a"))
	decoded, err := scoped.Verify(context.Background(), tenantToken)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if decoded.TenantID() != "tenant-a" {
		t.Errorf("expected tenant %q, got %q", "tenant-a", decoded.TenantID())
	}

	_, err = scoped.Verify(context.Background(), plainToken)
	assertKind(t, err, core.KindTenantMismatch)

	_, err = scoped.ForTenant("tenant-b").Verify(context.Background(), tenantToken)
	assertKind(t, err, core.KindTenantMismatch)

	// an unscoped verifier accepts tokens of any tenant
	if _, err := newTestVerifier(t).Verify(context.Background(), tenantToken); err != nil {
		t.Errorf("unscoped Verify() unexpected error: %v", err)
	}
}

func TestVerifier_SessionCookie(t *testing.T) {
	key, _ := testKeys(t)
	v, err := NewSessionCookieVerifier(testProjectID, keySource(t), WithClock(core.NewFixedClock(testNow)))
	if err != nil {
		t.Fatalf("NewSessionCookieVerifier() unexpected error: %v", err)
	}

	if v.ExpectedIssuer() != SessionCookieIssuerPrefix+testProjectID {
		t.Errorf("unexpected issuer %q", v.ExpectedIssuer())
	}
	if _, err := v.Verify(context.Background(), sign(t, key, testKeyID, validClaims(SessionCookieIssuerPrefix))); err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}

	_, err = v.Verify(context.Background(), sign(t, key, testKeyID, validClaims(IDTokenIssuerPrefix)))
	assertKind(t, err, core.KindIssuerMismatch)
	if !strings.Contains(err.Error(), "session cookie") {
		t.Errorf("expected message to name the session cookie, got %q", err.Error())
	}
}

func TestVerifier_Emulator(t *testing.T) {
	_, other := testKeys(t)
	forged := sign(t, other, "", validClaims(IDTokenIssuerPrefix))

	if _, err := newTestVerifier(t).Verify(context.Background(), forged); err == nil {
		t.Fatal("expected forged token to be rejected outside emulator mode")
	}

	emulator, err := NewIDTokenVerifier(testProjectID, nil,
		WithClock(core.NewFixedClock(testNow)), WithEmulator(true))
	if err != nil {
		t.Fatalf("NewIDTokenVerifier() unexpected error: %v", err)
	}
	if _, err := emulator.Verify(context.Background(), forged); err != nil {
		t.Fatalf("emulator Verify() unexpected error: %v", err)
	}

	// claim checks still apply
	claims := validClaims(IDTokenIssuerPrefix)
	claims["aud"] = "other"
	_, err = emulator.Verify(context.Background(), sign(t, other, "", claims))
	assertKind(t, err, core.KindAudienceMismatch)
}

func TestVerifier_KeySourceErrors(t *testing.T) {
	key, _ := testKeys(t)
	token := sign(t, key, testKeyID, validClaims(IDTokenIssuerPrefix))

	fetchErr := core.WrapError(core.KindPublicKeyFetch, errBoom, "fetching public keys")
	v, err := NewIDTokenVerifier(testProjectID, failingKeySource{err: fetchErr})
	if err != nil {
		t.Fatalf("NewIDTokenVerifier() unexpected error: %v", err)
	}
	_, err = v.Verify(context.Background(), token)
	assertKind(t, err, core.KindPublicKeyFetch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.Verify(ctx, token); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewVerifier_Configuration(t *testing.T) {
	_, err := NewIDTokenVerifier("", keySource(t))
	assertKind(t, err, core.KindConfiguration)

	_, err = NewSessionCookieVerifier(testProjectID, nil)
	assertKind(t, err, core.KindConfiguration)
}
