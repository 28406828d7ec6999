package token

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idtoken/internal/core"
)

// VerifyCustomToken checks a custom token against the public key of the signing
// service account and returns its uid, developer claims and tenant.
// Custom tokens are normally consumed by the sign-in exchange, this is used for
// inspecting tokens minted here.
func VerifyCustomToken(token string, key *rsa.PublicKey, clock core.Clock) (*core.DecodedToken, error) {
	if clock == nil {
		clock = core.SystemClock{}
	}
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{algorithmRS256}),
		jwt.WithAudience(CustomTokenAudience),
		jwt.WithTimeFunc(clock.Now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, core.WrapError(customTokenErrorKind(err), err, "custom token is invalid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, core.NewError(core.KindMalformedToken, "custom token has unexpected claims")
	}

	decoded := &core.DecodedToken{
		Audience: CustomTokenAudience,
	}
	if decoded.Issuer, err = claims.GetIssuer(); err != nil {
		return nil, malformedCustomClaim("iss", err)
	}
	if decoded.Subject, err = claims.GetSubject(); err != nil {
		return nil, malformedCustomClaim("sub", err)
	}
	if iat, err := claims.GetIssuedAt(); err != nil || iat == nil {
		return nil, malformedCustomClaim("iat", err)
	} else {
		decoded.IssuedAt = iat.Unix()
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, malformedCustomClaim("exp", err)
	} else {
		decoded.Expires = exp.Unix()
	}

	if decoded.UID, ok = claims["uid"].(string); !ok || decoded.UID == "" {
		return nil, malformedCustomClaim("uid", nil)
	}
	if tenant, ok := claims["tenant_id"].(string); ok {
		decoded.Firebase.Tenant = tenant
	}
	if developer, ok := claims["claims"].(map[string]any); ok {
		decoded.Claims = developer
	}
	return decoded, nil
}

func malformedCustomClaim(name string, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("missing or not a string")
	}
	return core.WrapError(core.KindMalformedToken, cause, "custom token has an invalid %q claim", name)
}

func customTokenErrorKind(err error) core.Kind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return core.KindMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.KindExpiredToken
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return core.KindNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return core.KindAudienceMismatch
	default:
		return core.KindSignatureVerification
	}
}
