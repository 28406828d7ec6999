package client

import (
	"context"

	"github.com/darmiel/idtoken/internal/api"
	"github.com/darmiel/idtoken/internal/core"
)

// VerifyOptions contains optional parameters for verifying tokens.
type VerifyOptions struct {
	// CheckRevoked additionally checks the user's revocation state, costing one user lookup
	// on the server.
	CheckRevoked bool

	// TenantID restricts verification to tokens of this tenant.
	TenantID string
}

// CreateCustomToken requests a custom token for uid. claims and tenantID are optional.
func (c *Client) CreateCustomToken(
	ctx context.Context,
	uid string,
	claims map[string]any,
	tenantID string,
) (*api.MintResult, string, error) {
	var result api.MintResult
	correlation, err := c.post(ctx, c.url().
		setPath(api.CreateCustomTokenRoute).
		build(), api.MintPayload{
		UID:      uid,
		Claims:   claims,
		TenantID: tenantID,
	}, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// VerifyIDToken asks the server to verify an ID token.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string, opts VerifyOptions) (*core.DecodedToken, string, error) {
	return c.verify(ctx, api.VerifyIDTokenRoute, idToken, opts)
}

// VerifySessionCookie asks the server to verify a session cookie.
func (c *Client) VerifySessionCookie(ctx context.Context, cookie string, opts VerifyOptions) (*core.DecodedToken, string, error) {
	return c.verify(ctx, api.VerifySessionCookieRoute, cookie, opts)
}

func (c *Client) verify(ctx context.Context, route, token string, opts VerifyOptions) (*core.DecodedToken, string, error) {
	ub := c.url().setPath(route)
	if opts.CheckRevoked {
		ub = ub.addQueryParam(api.CheckRevokedParam, true)
	}
	if opts.TenantID != "" {
		ub = ub.addQueryParam(api.TenantParam, opts.TenantID)
	}

	var result api.VerifyResult
	correlation, err := c.post(ctx, ub.build(), api.VerifyPayload{Token: token}, &result)
	if err != nil {
		return nil, correlation, err
	}
	decoded := result.Token
	if decoded == nil {
		decoded = &core.DecodedToken{}
	}
	decoded.Claims = result.Claims
	return decoded, correlation, nil
}
