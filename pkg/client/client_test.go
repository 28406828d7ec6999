package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/idtoken/internal/api"
	"github.com/darmiel/idtoken/internal/audit"
	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/keys"
	"github.com/darmiel/idtoken/internal/service"
	"github.com/darmiel/idtoken/internal/signer"
	"github.com/darmiel/idtoken/internal/store"
	"github.com/darmiel/idtoken/internal/token"
)

const (
	testProjectID = "project-1"
	testKeyID     = "key-1"
)

type testEnv struct {
	url   string
	key   *rsa.PrivateKey
	users *store.InMemoryUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	sgn, err := signer.NewLocalSigner("signer@project-1.iam.gserviceaccount.com", key)
	if err != nil {
		t.Fatalf("NewLocalSigner() unexpected error: %v", err)
	}

	env := &testEnv{
		key:   key,
		users: store.NewInMemoryUserStore(core.UserRecord{UID: "alice"}, core.UserRecord{UID: "root"}),
	}
	svc, err := service.NewAuthService(service.Dependencies{
		ProjectID:         testProjectID,
		Signer:            sgn,
		IDTokenKeys:       keys.StaticKeySource{testKeyID: &key.PublicKey},
		SessionCookieKeys: keys.StaticKeySource{testKeyID: &key.PublicKey},
		Users:             env.users,
		Auditor:           audit.NewInMemoryAuditor(0),
	})
	if err != nil {
		t.Fatalf("NewAuthService() unexpected error: %v", err)
	}

	srv := httptest.NewServer(api.NewServer(svc).Routes())
	t.Cleanup(srv.Close)
	env.url = srv.URL
	return env
}

func (e *testEnv) sign(t *testing.T, issuerPrefix, uid string, extra map[string]any) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuerPrefix + testProjectID,
		"aud": testProjectID,
		"sub": uid,
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(e.key)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestClient_CreateCustomToken(t *testing.T) {
	env := newTestEnv(t)
	cli := New(env.url)

	result, correlation, err := cli.CreateCustomToken(context.Background(), "alice", map[string]any{"premium": true}, "")
	if err != nil {
		t.Fatalf("CreateCustomToken() unexpected error: %v", err)
	}
	if correlation == "" {
		t.Error("expected a correlation id")
	}

	decoded, err := token.VerifyCustomToken(result.Token, &env.key.PublicKey, nil)
	if err != nil {
		t.Fatalf("VerifyCustomToken() unexpected error: %v", err)
	}
	if decoded.UID != "alice" || decoded.Claims["premium"] != true {
		t.Errorf("unexpected custom token %+v", decoded)
	}

	_, _, err = cli.CreateCustomToken(context.Background(), "", nil, "")
	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != core.KindArgument {
		t.Fatalf("expected a 400 %q APIError, got %v", core.KindArgument, err)
	}
	if !errors.Is(err, &core.Error{Kind: core.KindArgument}) {
		t.Error("expected APIError to match its core kind")
	}
}

func TestClient_Verify(t *testing.T) {
	env := newTestEnv(t)
	cli := New(env.url)
	idToken := env.sign(t, token.IDTokenIssuerPrefix, "alice", map[string]any{"role": "editor"})

	decoded, _, err := cli.VerifyIDToken(context.Background(), idToken, VerifyOptions{CheckRevoked: true})
	if err != nil {
		t.Fatalf("VerifyIDToken() unexpected error: %v", err)
	}
	if decoded.UID != "alice" || decoded.Claims["role"] != "editor" {
		t.Errorf("unexpected decoded token %+v", decoded)
	}

	cookie := env.sign(t, token.SessionCookieIssuerPrefix, "alice", nil)
	if _, _, err := cli.VerifySessionCookie(context.Background(), cookie, VerifyOptions{}); err != nil {
		t.Fatalf("VerifySessionCookie() unexpected error: %v", err)
	}

	if err := env.users.RevokeTokens(context.Background(), "alice", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeTokens() unexpected error: %v", err)
	}
	_, correlation, err := cli.VerifyIDToken(context.Background(), idToken, VerifyOptions{CheckRevoked: true})
	if !core.IsKind(err, core.KindRevoked) {
		t.Fatalf("expected a revoked token, got %v", err)
	}
	if correlation == "" {
		t.Error("expected a correlation id for failed requests")
	}

	_, _, err = cli.VerifyIDToken(context.Background(), idToken, VerifyOptions{TenantID: "tenant-a"})
	if !core.IsKind(err, core.KindTenantMismatch) {
		t.Fatalf("expected a tenant mismatch, got %v", err)
	}
}

func TestClient_Admin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.sign(t, token.IDTokenIssuerPrefix, "root", map[string]any{"admin": true})

	if _, _, err := New(env.url).ListAudits(context.Background(), ListAuditsOpts{}); err == nil {
		t.Fatal("expected unauthenticated audit listing to fail")
	}

	cli := New(env.url, WithAuthToken(admin))
	_, mintCorrelation, err := cli.CreateCustomToken(context.Background(), "alice", nil, "")
	if err != nil {
		t.Fatalf("CreateCustomToken() unexpected error: %v", err)
	}

	entries, _, err := cli.ListAudits(context.Background(), ListAuditsOpts{CorrelationID: mintCorrelation, Limit: 1})
	if err != nil {
		t.Fatalf("ListAudits() unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "token.mint" || entries[0].Subject != "alice" {
		t.Errorf("unexpected audit entries %+v", entries)
	}

	trace, _, err := cli.ExplainAdmin(context.Background(), admin)
	if err != nil {
		t.Fatalf("ExplainAdmin() unexpected error: %v", err)
	}
	if !trace.FinalDecision || trace.GrantedRule != "admin-claim" {
		t.Errorf("unexpected trace %+v", trace)
	}
}

func TestClient_Info(t *testing.T) {
	env := newTestEnv(t)
	info, _, err := New(env.url).Info(context.Background())
	if err != nil {
		t.Fatalf("Info() unexpected error: %v", err)
	}
	if info.Build.Version == "" {
		t.Error("expected a version")
	}
	want := service.Summary{
		ProjectID:         testProjectID,
		MintingEnabled:    true,
		RevocationEnabled: true,
		AdminRules:        []string{"admin-claim"},
	}
	if diff := cmp.Diff(want, info.Service); diff != "" {
		t.Errorf("Info() service mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, _, err := New(url).Info(context.Background()); err == nil {
		t.Fatal("expected connection failure")
	}
}

func TestNew_AddsScheme(t *testing.T) {
	c := New("localhost:8080/")
	if got := c.url().setPath(api.AboutRoute).build(); got != "http://localhost:8080/about" {
		t.Errorf("unexpected url %q", got)
	}
	c = New("https://auth.example.com")
	if got := c.url().setPath(api.AboutRoute).addQueryParam("a", 1).build(); got != "https://auth.example.com/about?a=1" {
		t.Errorf("unexpected url %q", got)
	}
}
