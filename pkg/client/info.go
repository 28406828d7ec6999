package client

import (
	"context"

	"github.com/darmiel/idtoken/internal/api"
)

// Info returns the server's build info and auth service summary.
func (c *Client) Info(ctx context.Context) (*api.AboutResult, string, error) {
	var info api.AboutResult
	correlation, err := c.get(ctx, c.url().
		setPath(api.AboutRoute).
		build(), &info)
	return &info, correlation, err
}
