package client

import (
	"context"

	"github.com/darmiel/idtoken/internal/api"
	"github.com/darmiel/idtoken/internal/core"
)

type ListAuditsOpts struct {
	Limit uint

	Action        string
	Subject       string
	CorrelationID string
	Fingerprint   string
	FailedOnly    bool
}

// ListAudits retrieves the latest audit entries from the server. Requires an admin ID token.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	if opts.Subject != "" {
		ub = ub.addQueryParam("subject", opts.Subject)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.Fingerprint != "" {
		ub = ub.addQueryParam("fingerprint", opts.Fingerprint)
	}
	if opts.FailedOnly {
		ub = ub.addQueryParam("failed", true)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

// ExplainAdmin asks the server which admin rules the given ID token matches.
// Requires an admin ID token.
func (c *Client) ExplainAdmin(ctx context.Context, idToken string) (*core.EvaluationTrace, string, error) {
	var trace core.EvaluationTrace
	correlation, err := c.post(ctx, c.url().
		setPath(api.ExplainRoute).
		build(), api.VerifyPayload{Token: idToken}, &trace)
	return &trace, correlation, err
}
