package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/audit"
	"github.com/darmiel/idtoken/internal/buildinfo"
	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/correlation"
	"github.com/darmiel/idtoken/internal/engine"
	"github.com/darmiel/idtoken/internal/keys"
	"github.com/darmiel/idtoken/internal/signer"
	"github.com/darmiel/idtoken/internal/token"
	"github.com/darmiel/idtoken/internal/users"
)

// Dependencies are the collaborators of an AuthService.
// Signer and Users may be nil: minting then fails with a configuration error and
// revocation checks are rejected.
type Dependencies struct {
	ProjectID string
	TenantID  string
	Emulator  bool

	Signer            core.Signer
	IDTokenKeys       core.PublicKeySource
	SessionCookieKeys core.PublicKeySource
	Users             core.UserGetter
	Auditor           core.Auditor
	Clock             core.Clock

	// AdminRules decide which ID tokens may access admin routes.
	// Empty rules fall back to engine.DefaultRules.
	AdminRules []core.Rule
}

// AuthService bundles token minting and verification for one project.
// Every instance is independent, tests may create as many as they need.
type AuthService struct {
	deps Dependencies

	factory        *token.Factory
	idTokens       *token.Verifier
	sessionCookies *token.Verifier
	revocation     *token.RevocationChecker
	admins         *engine.Engine
}

func NewAuthService(deps Dependencies) (*AuthService, error) {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if deps.Auditor == nil {
		deps.Auditor = audit.NewNoopAuditor()
	}

	verifierOpts := []token.VerifierOption{
		token.WithClock(deps.Clock),
		token.WithTenant(deps.TenantID),
		token.WithEmulator(deps.Emulator),
	}
	idTokens, err := token.NewIDTokenVerifier(deps.ProjectID, deps.IDTokenKeys, verifierOpts...)
	if err != nil {
		return nil, err
	}
	sessionCookies, err := token.NewSessionCookieVerifier(deps.ProjectID, deps.SessionCookieKeys, verifierOpts...)
	if err != nil {
		return nil, err
	}

	admins, err := engine.New(deps.AdminRules)
	if err != nil {
		return nil, fmt.Errorf("building admin rules: %w", err)
	}

	s := &AuthService{
		deps:           deps,
		factory:        token.NewFactory(deps.Signer, deps.Clock),
		idTokens:       idTokens,
		sessionCookies: sessionCookies,
		admins:         admins,
	}
	if deps.Users != nil {
		s.revocation = token.NewRevocationChecker(deps.Users)
	}
	return s, nil
}

// New wires an AuthService from cfg. A signer that cannot be built is logged and
// leaves minting disabled, so verify-only deployments need no signing credentials.
func New(ctx context.Context, cfg *config.Config, auditor core.Auditor) (*AuthService, error) {
	logger := log.Ctx(ctx)

	deps := Dependencies{
		ProjectID: cfg.ProjectID,
		TenantID:  cfg.TenantID,
		Emulator:  cfg.EmulatorMode(),
		Auditor:   auditor,

		AdminRules: cfg.Admin.Rules,
	}

	sgn, err := signer.Build(ctx, cfg.Signer)
	if err != nil {
		logger.Warn().Err(err).Msg("signer unavailable, custom token minting is disabled")
	} else {
		deps.Signer = sgn
	}

	if deps.Emulator {
		logger.Warn().Str("emulator_host", cfg.EmulatorHost).
			Msg("emulator mode enabled, token signatures are NOT verified")
	} else {
		deps.IDTokenKeys = newKeySource(cfg.Keys, cfg.Keys.IDTokenURL, keys.IDTokenCertsURL)
		deps.SessionCookieKeys = newKeySource(cfg.Keys, cfg.Keys.SessionCookieURL, keys.SessionCookieCertsURL)
	}

	if deps.Users, err = users.Build(ctx, cfg); err != nil {
		return nil, fmt.Errorf("building user lookup: %w", err)
	}

	return NewAuthService(deps)
}

func newKeySource(cfg config.KeysConfig, url, fallback string) *keys.HTTPKeySource {
	if url == "" {
		url = fallback
	}
	opts := []keys.Option{
		keys.WithUserAgent(buildinfo.UserAgent()),
		keys.WithDefaultMaxAge(cfg.DefaultMaxAge),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, keys.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return keys.NewHTTPKeySource(url, opts...)
}

// ProjectID returns the project tokens are minted for and verified against.
func (s *AuthService) ProjectID() string {
	return s.deps.ProjectID
}

// TenantID returns the tenant this service is scoped to, or an empty string.
func (s *AuthService) TenantID() string {
	return s.deps.TenantID
}

func (s *AuthService) Emulator() bool {
	return s.deps.Emulator
}

// RevocationEnabled reports whether revocation checks can be served.
func (s *AuthService) RevocationEnabled() bool {
	return s.revocation != nil
}

func (s *AuthService) Auditor() core.Auditor {
	return s.deps.Auditor
}

// MintingEnabled reports whether a signer is configured.
func (s *AuthService) MintingEnabled() bool {
	return s.deps.Signer != nil
}

func (s *AuthService) Summary() Summary {
	rules := s.admins.Rules()
	names := make([]string, 0, len(rules))
	for _, rule := range rules {
		names = append(names, rule.Name)
	}
	return Summary{
		ProjectID:         s.deps.ProjectID,
		TenantID:          s.deps.TenantID,
		Emulator:          s.deps.Emulator,
		MintingEnabled:    s.MintingEnabled(),
		RevocationEnabled: s.RevocationEnabled(),
		AdminRules:        names,
	}
}

// ForTenant returns a copy of s that mints and verifies tokens of tenantID only.
// Key sources, signer and admin rules are shared with s.
func (s *AuthService) ForTenant(tenantID string) *AuthService {
	scoped := *s
	scoped.deps.TenantID = tenantID
	scoped.idTokens = s.idTokens.ForTenant(tenantID)
	scoped.sessionCookies = s.sessionCookies.ForTenant(tenantID)
	if tenantUsers, ok := s.deps.Users.(interface {
		ForTenant(tenantID string) *users.Client
	}); ok {
		scoped.deps.Users = tenantUsers.ForTenant(tenantID)
		scoped.revocation = token.NewRevocationChecker(scoped.deps.Users)
	}
	return &scoped
}

// ScopedTo returns the service verifying tokens of tenantID. A service without a
// tenant is narrowed with ForTenant, a service pinned to another tenant rejects
// the request with a TenantMismatch error.
func (s *AuthService) ScopedTo(tenantID string) (*AuthService, error) {
	if tenantID == "" || tenantID == s.deps.TenantID {
		return s, nil
	}
	if s.deps.TenantID != "" {
		return nil, withStatus(core.NewError(core.KindTenantMismatch,
			"tenant id %q does not match the configured tenant %q", tenantID, s.deps.TenantID))
	}
	return s.ForTenant(tenantID), nil
}

// CreateCustomToken mints a custom token. The tenant of the service is used when
// req.TenantID is empty, a different tenant is rejected.
func (s *AuthService) CreateCustomToken(ctx context.Context, req MintRequest) (*MintResponse, error) {
	logger := log.Ctx(ctx)

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = s.deps.TenantID
	}

	entry := s.newEntry(ctx, "token.mint")
	entry.Subject = req.UID
	entry.TenantID = tenantID
	entry.Metadata = map[string]any{"claims": len(req.Claims)}
	defer s.log(ctx, &entry)

	if s.deps.TenantID != "" && tenantID != s.deps.TenantID {
		err := core.NewError(core.KindTenantMismatch,
			"custom token tenant id %q does not match the configured tenant %q", tenantID, s.deps.TenantID)
		entry.fail(err)
		return nil, withStatus(err)
	}

	signed, err := s.factory.CreateCustomToken(ctx, req.UID, req.Claims, tenantID)
	if err != nil {
		entry.fail(err)
		logger.Debug().Err(err).Str("uid", req.UID).Msg("custom token minting failed")
		return nil, withStatus(err)
	}

	entry.Success = true
	entry.TokenFingerprint = audit.Fingerprint(signed)
	issuedAt := s.deps.Clock.Now()
	return &MintResponse{
		Token:     signed,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(token.CustomTokenLifetime).Unix(),
	}, nil
}

// VerifyIDToken verifies an ID token, optionally checking its revocation state.
func (s *AuthService) VerifyIDToken(ctx context.Context, idToken string, checkRevoked bool) (*core.DecodedToken, error) {
	return s.verify(ctx, "token.verify", s.idTokens, idToken, checkRevoked)
}

// VerifySessionCookie verifies a session cookie, optionally checking its revocation state.
func (s *AuthService) VerifySessionCookie(ctx context.Context, cookie string, checkRevoked bool) (*core.DecodedToken, error) {
	return s.verify(ctx, "session.verify", s.sessionCookies, cookie, checkRevoked)
}

func (s *AuthService) verify(
	ctx context.Context,
	action string,
	verifier *token.Verifier,
	raw string,
	checkRevoked bool,
) (*core.DecodedToken, error) {
	logger := log.Ctx(ctx)

	entry := s.newEntry(ctx, action)
	entry.TenantID = s.deps.TenantID
	entry.TokenFingerprint = audit.Fingerprint(raw)
	entry.Metadata = map[string]any{"check_revoked": checkRevoked}
	defer s.log(ctx, &entry)

	var (
		decoded *core.DecodedToken
		err     error
	)
	if checkRevoked {
		decoded, err = verifier.VerifyAndCheckRevoked(ctx, raw, s.revocation)
	} else {
		decoded, err = verifier.Verify(ctx, raw)
	}
	if err != nil {
		entry.fail(err)
		logger.Debug().Err(err).Str("kind", string(core.KindOf(err))).
			Msgf("%s verification failed", verifier.Config().ShortName)
		return nil, withStatus(err)
	}

	entry.Success = true
	entry.Subject = decoded.UID
	return decoded, nil
}

type auditEntry struct {
	core.AuditEntry
}

func (e *auditEntry) fail(err error) {
	e.ErrorKind = core.KindOf(err)
	e.Error = err.Error()
}

func (s *AuthService) newEntry(ctx context.Context, action string) auditEntry {
	return auditEntry{core.AuditEntry{
		ID:     correlation.FromContext(ctx),
		Time:   s.deps.Clock.Now().UTC().Truncate(time.Second),
		Action: action,
	}}
}

func (s *AuthService) log(ctx context.Context, entry *auditEntry) {
	if err := s.deps.Auditor.Log(entry.AuditEntry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log entry")
	}
}
