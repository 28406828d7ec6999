package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/darmiel/idtoken/internal/core"
)

const (
	// DefaultBaseURL is the production user management API.
	DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

	emulatorBaseURLFormat = "http://%s/identitytoolkit.googleapis.com/v1"
)

var _ core.UserGetter = (*Client)(nil)

// Client looks up user records for revocation checks. It is the only user
// management call this module makes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	tenantID   string
	userAgent  string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithEmulatorHost points the client at a local auth emulator.
func WithEmulatorHost(host string) Option {
	return func(c *Client) {
		c.baseURL = EmulatorBaseURL(host)
	}
}

func WithTenant(tenantID string) Option {
	return func(c *Client) {
		c.tenantID = tenantID
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// EmulatorBaseURL is the user management API of the emulator listening on host.
func EmulatorBaseURL(host string) string {
	return fmt.Sprintf(emulatorBaseURLFormat, host)
}

// NewClient creates a lookup client. httpClient must attach credentials allowed
// to read users of projectID.
func NewClient(httpClient *http.Client, projectID string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		projectID:  projectID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForTenant returns a copy of c scoped to tenantID.
func (c *Client) ForTenant(tenantID string) *Client {
	clone := *c
	clone.tenantID = tenantID
	return &clone
}

type lookupRequest struct {
	LocalID  []string `json:"localId"`
	TenantID string   `json:"tenantId,omitempty"`
}

type lookupResponse struct {
	Users []struct {
		LocalID string `json:"localId"`
		// the API encodes int64 values as strings
		ValidSince string `json:"validSince"`
		Disabled   bool   `json:"disabled"`
	} `json:"users"`
}

func (c *Client) GetUser(ctx context.Context, uid string) (*core.UserRecord, error) {
	body, err := json.Marshal(lookupRequest{
		LocalID:  []string{uid},
		TenantID: c.tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding lookup request: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/accounts:lookup", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if bytes.Contains(msg, []byte("USER_NOT_FOUND")) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if len(result.Users) == 0 {
		return nil, core.ErrUserNotFound
	}

	user := result.Users[0]
	record := &core.UserRecord{
		UID:      user.LocalID,
		Disabled: user.Disabled,
	}
	if user.ValidSince != "" {
		seconds, err := strconv.ParseInt(user.ValidSince, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing validSince %q: %w", user.ValidSince, err)
		}
		record.TokensValidAfterMillis = seconds * 1000
	}
	return record, nil
}
