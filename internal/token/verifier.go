package token

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idtoken/internal/core"
)

const (
	// ClockSkew is tolerated between the issuer's and the verifier's clocks.
	ClockSkew = 300 * time.Second

	IDTokenIssuerPrefix       = "https://securetoken.google.com/"
	SessionCookieIssuerPrefix = "https://session.firebase.google.com/"

	IDTokenShortName       = "ID token"
	SessionCookieShortName = "session cookie"

	algorithmRS256 = "RS256"
)

// standardClaims are extracted into DecodedToken fields and removed from Claims.
var standardClaims = []string{"iss", "aud", "exp", "iat", "sub", "uid"}

// VerifierConfig is fixed at construction and read-only afterwards.
type VerifierConfig struct {
	// ProjectID is the expected audience, and the suffix of the expected issuer.
	ProjectID string

	// IssuerPrefix is joined with ProjectID to form the expected issuer.
	IssuerPrefix string

	// ShortName names the token type in error messages.
	ShortName string

	KeySource core.PublicKeySource
	Clock     core.Clock

	// TenantID, when set, must match the token's firebase.tenant claim.
	TenantID string

	// Emulator skips the kid and signature checks. Only for local emulators.
	Emulator bool
}

// Verifier validates ID tokens or session cookies.
type Verifier struct {
	cfg    VerifierConfig
	parser *jwt.Parser
}

type VerifierOption func(*VerifierConfig)

func WithClock(clock core.Clock) VerifierOption {
	return func(c *VerifierConfig) {
		c.Clock = clock
	}
}

func WithTenant(tenantID string) VerifierOption {
	return func(c *VerifierConfig) {
		c.TenantID = tenantID
	}
}

// WithEmulator toggles emulator mode. Signature checks are skipped when enabled.
func WithEmulator(enabled bool) VerifierOption {
	return func(c *VerifierConfig) {
		c.Emulator = enabled
	}
}

// NewIDTokenVerifier creates a verifier for ID tokens of projectID.
func NewIDTokenVerifier(projectID string, keySource core.PublicKeySource, opts ...VerifierOption) (*Verifier, error) {
	cfg := VerifierConfig{
		ProjectID:    projectID,
		IssuerPrefix: IDTokenIssuerPrefix,
		ShortName:    IDTokenShortName,
		KeySource:    keySource,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewVerifier(cfg)
}

// NewSessionCookieVerifier creates a verifier for session cookies of projectID.
func NewSessionCookieVerifier(projectID string, keySource core.PublicKeySource, opts ...VerifierOption) (*Verifier, error) {
	cfg := VerifierConfig{
		ProjectID:    projectID,
		IssuerPrefix: SessionCookieIssuerPrefix,
		ShortName:    SessionCookieShortName,
		KeySource:    keySource,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewVerifier(cfg)
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.ProjectID == "" {
		return nil, core.NewError(core.KindConfiguration, "project id is required to verify %ss", cfg.ShortName)
	}
	if cfg.KeySource == nil && !cfg.Emulator {
		return nil, core.NewError(core.KindConfiguration, "a public key source is required to verify %ss", cfg.ShortName)
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock{}
	}
	return &Verifier{
		cfg:    cfg,
		parser: jwt.NewParser(),
	}, nil
}

// ForTenant returns a copy of v that only accepts tokens of tenantID.
func (v *Verifier) ForTenant(tenantID string) *Verifier {
	cfg := v.cfg
	cfg.TenantID = tenantID
	return &Verifier{
		cfg:    cfg,
		parser: v.parser,
	}
}

// Config returns the verifier's configuration.
func (v *Verifier) Config() VerifierConfig {
	return v.cfg
}

// ExpectedIssuer is the only accepted iss claim.
func (v *Verifier) ExpectedIssuer() string {
	return v.cfg.IssuerPrefix + v.cfg.ProjectID
}

// Verify validates token and returns its decoded claims.
func (v *Verifier) Verify(ctx context.Context, token string) (*core.DecodedToken, error) {
	name := v.cfg.ShortName
	if token == "" {
		return nil, core.NewError(core.KindArgument, "%s must be a non-empty string", name)
	}

	segments := strings.Split(token, ".")
	if len(segments) != 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return nil, core.NewError(core.KindMalformedToken, "%s has incorrect number of segments", name)
	}

	var header core.TokenHeader
	if err := v.decodeSegment(segments[0], &header); err != nil {
		return nil, core.WrapError(core.KindMalformedToken, err, "%s has a malformed header", name)
	}

	if header.Algorithm != algorithmRS256 {
		return nil, core.NewError(core.KindUnsupportedAlgorithm,
			"%s has invalid algorithm; expected %q but got %q", name, algorithmRS256, header.Algorithm)
	}

	if !v.cfg.Emulator {
		if header.KeyID == "" {
			return nil, core.NewError(core.KindMissingKeyID, "%s has no 'kid' claim", name)
		}
		if err := v.verifySignature(ctx, header.KeyID, segments); err != nil {
			return nil, err
		}
	}

	decoded, err := v.decodePayload(segments[1])
	if err != nil {
		return nil, err
	}
	if err := v.validateClaims(decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// VerifyAndCheckRevoked verifies token and then checks it against the user's
// revocation state, costing one user lookup.
func (v *Verifier) VerifyAndCheckRevoked(
	ctx context.Context,
	token string,
	checker *RevocationChecker,
) (*core.DecodedToken, error) {
	if checker == nil {
		return nil, core.NewError(core.KindConfiguration, "revocation check requested but no user lookup is configured")
	}
	decoded, err := v.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checker.Check(ctx, decoded, v.cfg.ShortName); err != nil {
		return nil, err
	}
	return decoded, nil
}

func (v *Verifier) decodeSegment(segment string, dest any) error {
	raw, err := v.parser.DecodeSegment(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// verifySignature reports unknown key ids and bad signatures with the same message.
func (v *Verifier) verifySignature(ctx context.Context, kid string, segments []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	failed := core.NewError(core.KindSignatureVerification, "failed to verify %s signature", v.cfg.ShortName)

	key, err := v.cfg.KeySource.PublicKey(ctx, kid)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if core.IsKind(err, core.KindPublicKeyFetch) {
			return err
		}
		return failed
	}

	sig, err := v.parser.DecodeSegment(segments[2])
	if err != nil {
		return failed
	}
	if err := jwt.SigningMethodRS256.Verify(segments[0]+"."+segments[1], sig, key); err != nil {
		return failed
	}
	return nil
}

func (v *Verifier) decodePayload(segment string) (*core.DecodedToken, error) {
	name := v.cfg.ShortName
	raw, err := v.parser.DecodeSegment(segment)
	if err != nil {
		return nil, core.WrapError(core.KindMalformedToken, err, "%s has a malformed payload", name)
	}

	var decoded core.DecodedToken
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, core.WrapError(core.KindMalformedToken, err, "%s has a malformed payload", name)
	}

	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, core.WrapError(core.KindMalformedToken, err, "%s has a malformed payload", name)
	}
	for _, key := range standardClaims {
		delete(claims, key)
	}

	decoded.UID = decoded.Subject
	decoded.Claims = claims
	return &decoded, nil
}

func (v *Verifier) validateClaims(t *core.DecodedToken) error {
	name := v.cfg.ShortName
	now := v.cfg.Clock.Now().Unix()
	skew := int64(ClockSkew / time.Second)

	if t.Expires < now-skew {
		return core.NewError(core.KindExpiredToken,
			"%s has expired at %d; current time is %d", name, t.Expires, now)
	}
	if t.IssuedAt > now+skew {
		return core.NewError(core.KindNotYetValid, "%s issued at future timestamp %d", name, t.IssuedAt)
	}

	if expected := v.ExpectedIssuer(); t.Issuer != expected {
		return core.NewError(core.KindIssuerMismatch,
			"%s has incorrect issuer (iss) claim; expected %q but got %q; make sure the %s comes from "+
				"the same project as the credentials used to verify it", name, expected, t.Issuer, name)
	}

	if t.Audience != v.cfg.ProjectID {
		return core.NewError(core.KindAudienceMismatch,
			"%s has incorrect audience (aud) claim; expected %q but got %q", name, v.cfg.ProjectID, t.Audience)
	}

	if t.Subject == "" {
		return core.NewError(core.KindSubjectInvalid, "%s has no or empty subject (sub) claim", name)
	}
	if utf8.RuneCountInString(t.Subject) > MaxUIDLength {
		return core.NewError(core.KindSubjectInvalid,
			"%s has a subject (sub) claim longer than %d characters", name, MaxUIDLength)
	}

	if v.cfg.TenantID != "" && t.Firebase.Tenant != v.cfg.TenantID {
		return core.NewError(core.KindTenantMismatch,
			"%s has invalid tenant id; expected %q but got %q", name, v.cfg.TenantID, t.Firebase.Tenant)
	}

	return nil
}
