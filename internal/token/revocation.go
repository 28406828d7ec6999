package token

import (
	"context"
	"errors"

	"github.com/darmiel/idtoken/internal/core"
)

// RevocationChecker compares a token's issue time with the instant its user's
// tokens were revoked. Every check costs one user lookup.
type RevocationChecker struct {
	users core.UserGetter
}

func NewRevocationChecker(users core.UserGetter) *RevocationChecker {
	return &RevocationChecker{users: users}
}

// IsRevoked reports whether tok was issued before its user's tokensValidAfterTime.
// shortName names the token type in error messages.
func (c *RevocationChecker) IsRevoked(ctx context.Context, tok *core.DecodedToken, shortName string) (bool, error) {
	user, err := c.lookup(ctx, tok, shortName)
	if err != nil {
		return false, err
	}
	return issuedBeforeValidAfter(tok, user), nil
}

// Check fails with a RevokedError if tok is revoked or its user no longer exists,
// and with a UserDisabledError if the user is disabled.
func (c *RevocationChecker) Check(ctx context.Context, tok *core.DecodedToken, shortName string) error {
	user, err := c.lookup(ctx, tok, shortName)
	if err != nil {
		return err
	}
	if user.Disabled {
		return core.NewError(core.KindUserDisabled, "user %q is disabled", tok.UID)
	}
	if issuedBeforeValidAfter(tok, user) {
		return core.NewError(core.KindRevoked, "%s has been revoked", shortName)
	}
	return nil
}

func (c *RevocationChecker) lookup(ctx context.Context, tok *core.DecodedToken, shortName string) (*core.UserRecord, error) {
	if tok == nil || tok.UID == "" {
		return nil, core.NewError(core.KindArgument, "decoded %s has no uid", shortName)
	}
	user, err := c.users.GetUser(ctx, tok.UID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.WrapError(core.KindRevoked, err, "%s has been revoked", shortName)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.WrapError(core.KindUserLookup, err,
			"failed to look up user %q to check %s revocation", tok.UID, shortName)
	}
	return user, nil
}

func issuedBeforeValidAfter(tok *core.DecodedToken, user *core.UserRecord) bool {
	return tok.IssuedAt*1000 < user.TokensValidAfterMillis
}
