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
	// CustomTokenAudience is the audience of every custom token.
	CustomTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

	// CustomTokenLifetime is the time between iat and exp of a custom token.
	CustomTokenLifetime = time.Hour

	MaxUIDLength   = 128
	MaxClaimsBytes = 1000
)

// ServiceAccountHelp is the message of every ConfigurationError returned by CreateCustomToken.
const ServiceAccountHelp = "failed to determine service account; initialize with service account " +
	"credentials or specify a service account with the iam.serviceAccounts.signBlob permission; " +
	"refer to https://firebase.google.com/docs/auth/admin/create-custom-tokens for more details on " +
	"creating custom tokens"

// ReservedClaims cannot be used as developer claims in custom tokens.
var ReservedClaims = []string{
	"acr", "amr", "at_hash", "aud", "azp", "c_hash", "cnf", "exp",
	"firebase", "iat", "iss", "jti", "nbf", "nonce", "sub",
}

// Factory mints custom tokens signed by a core.Signer.
type Factory struct {
	signer core.Signer
	clock  core.Clock
}

func NewFactory(signer core.Signer, clock core.Clock) *Factory {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Factory{
		signer: signer,
		clock:  clock,
	}
}

// CreateCustomToken mints a custom token for uid. claims and tenantID are optional.
func (f *Factory) CreateCustomToken(
	ctx context.Context,
	uid string,
	claims map[string]any,
	tenantID string,
) (string, error) {
	if err := validateUID(uid); err != nil {
		return "", err
	}
	if err := validateDeveloperClaims(claims); err != nil {
		return "", err
	}

	if f.signer == nil {
		return "", core.NewError(core.KindConfiguration, ServiceAccountHelp)
	}
	identity, err := f.signer.Identity(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", core.WrapError(core.KindConfiguration, err, ServiceAccountHelp)
	}

	now := f.clock.Now().Unix()
	payload := jwt.MapClaims{
		"iss": identity,
		"sub": identity,
		"aud": CustomTokenAudience,
		"iat": now,
		"exp": now + int64(CustomTokenLifetime/time.Second),
		"uid": uid,
	}
	if len(claims) > 0 {
		payload["claims"] = claims
	}
	if tenantID != "" {
		payload["tenant_id"] = tenantID
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodRS256, payload)
	signingString, err := unsigned.SigningString()
	if err != nil {
		return "", core.WrapError(core.KindArgument, err, "encoding custom token")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	sig, err := f.signer.Sign(ctx, []byte(signingString))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if core.KindOf(err) != "" {
			return "", err
		}
		return "", core.WrapError(core.KindSigning, err, "signing custom token")
	}

	return strings.Join([]string{signingString, unsigned.EncodeSegment(sig)}, "."), nil
}

func validateUID(uid string) error {
	if uid == "" {
		return core.NewError(core.KindArgument, "uid must be a non-empty string")
	}
	if utf8.RuneCountInString(uid) > MaxUIDLength {
		return core.NewError(core.KindArgument, "uid must not be longer than %d characters", MaxUIDLength)
	}
	return nil
}

func validateDeveloperClaims(claims map[string]any) error {
	if claims == nil {
		return nil
	}
	for _, reserved := range ReservedClaims {
		if _, ok := claims[reserved]; ok {
			return core.NewError(core.KindArgument, "developer claim %q is reserved and cannot be specified", reserved)
		}
	}
	encoded, err := json.Marshal(claims)
	if err != nil {
		return core.WrapError(core.KindArgument, err, "developer claims must be serializable to JSON")
	}
	if len(encoded) > MaxClaimsBytes {
		return core.NewError(core.KindArgument,
			"developer claims payload must not exceed %d bytes, got %d", MaxClaimsBytes, len(encoded))
	}
	return nil
}
