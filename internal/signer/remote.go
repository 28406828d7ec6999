package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"cloud.google.com/go/compute/metadata"

	"github.com/darmiel/idtoken/internal/core"
)

// DefaultSignBlobEndpoint is the IAM sign-blob endpoint; %s is the service account.
const DefaultSignBlobEndpoint = "https://iam.googleapis.com/v1/projects/-/serviceAccounts/%s:signBlob"

var _ core.Signer = (*RemoteSigner)(nil)

// Discoverer resolves the service account of the ambient credentials.
type Discoverer func(ctx context.Context) (string, error)

// MetadataDiscoverer asks the compute metadata server for the default service account.
func MetadataDiscoverer(httpClient *http.Client) Discoverer {
	client := metadata.NewClient(httpClient)
	return func(ctx context.Context) (string, error) {
		return client.EmailWithContext(ctx, "default")
	}
}

// RemoteSigner signs through the IAM sign-blob API using the caller's ambient credentials.
// Without a fixed identity, the service account is discovered on first use and kept for
// the lifetime of the signer.
type RemoteSigner struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	discover   Discoverer

	identity atomic.Pointer[string]
}

type RemoteOption func(*RemoteSigner)

// WithSignBlobEndpoint overrides the sign-blob URL format (one %s for the service account).
func WithSignBlobEndpoint(format string) RemoteOption {
	return func(s *RemoteSigner) {
		s.endpoint = format
	}
}

func WithDiscoverer(d Discoverer) RemoteOption {
	return func(s *RemoteSigner) {
		s.discover = d
	}
}

func WithUserAgent(ua string) RemoteOption {
	return func(s *RemoteSigner) {
		s.userAgent = ua
	}
}

// NewRemoteSigner creates a discover-then-sign signer. httpClient must attach credentials
// allowed to call iam.serviceAccounts.signBlob.
func NewRemoteSigner(httpClient *http.Client, opts ...RemoteOption) *RemoteSigner {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	s := &RemoteSigner{
		httpClient: httpClient,
		endpoint:   DefaultSignBlobEndpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.discover == nil {
		s.discover = MetadataDiscoverer(nil)
	}
	return s
}

// NewFixedIdentitySigner creates a remote signer that always signs as serviceAccount
// and never runs discovery.
func NewFixedIdentitySigner(httpClient *http.Client, serviceAccount string, opts ...RemoteOption) (*RemoteSigner, error) {
	if serviceAccount == "" {
		return nil, core.NewError(core.KindConfiguration, "service account must be a non-empty string")
	}
	s := NewRemoteSigner(httpClient, opts...)
	s.discover = nil
	s.identity.Store(&serviceAccount)
	return s, nil
}

func (s *RemoteSigner) Identity(ctx context.Context) (string, error) {
	if id := s.identity.Load(); id != nil {
		return *id, nil
	}
	if s.discover == nil {
		return "", core.NewError(core.KindConfiguration, "no service account configured")
	}

	email, err := s.discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", core.WrapError(core.KindConfiguration, err, "discovering service account")
	}
	if email == "" {
		return "", core.NewError(core.KindConfiguration, "discovered service account is empty")
	}

	// concurrent discoveries may race here; the value is expected to be stable
	s.identity.Store(&email)
	return email, nil
}

type signBlobRequest struct {
	BytesToSign string `json:"bytesToSign"`
}

type signBlobResponse struct {
	Signature string `json:"signature"`
}

func (s *RemoteSigner) Sign(ctx context.Context, b []byte) ([]byte, error) {
	account, err := s.Identity(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(signBlobRequest{
		BytesToSign: base64.StdEncoding.EncodeToString(b),
	})
	if err != nil {
		return nil, core.WrapError(core.KindSigning, err, "encoding sign-blob request")
	}

	endpoint := fmt.Sprintf(s.endpoint, url.PathEscape(account))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.KindSigning, err, "creating sign-blob request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.WrapError(core.KindSigning, err, "calling sign-blob for %s", account)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, core.WrapError(core.KindSigning,
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			"sign-blob for %s failed", account)
	}

	var result signBlobResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.KindSigning, err, "decoding sign-blob response")
	}
	sig, err := base64.StdEncoding.DecodeString(result.Signature)
	if err != nil {
		return nil, core.WrapError(core.KindSigning, err, "decoding sign-blob signature")
	}
	if len(sig) == 0 {
		return nil, core.NewError(core.KindSigning, "sign-blob returned an empty signature")
	}
	return sig, nil
}
