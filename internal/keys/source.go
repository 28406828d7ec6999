package keys

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httpcc"
	"golang.org/x/sync/singleflight"

	"github.com/darmiel/idtoken/internal/core"
)

const (
	// IDTokenCertsURL publishes the certificates that sign ID tokens.
	IDTokenCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	// SessionCookieCertsURL publishes the certificates that sign session cookies.
	SessionCookieCertsURL = "https://www.googleapis.com/identitytoolkit/v3/relyingparty/publicKeys"

	// DefaultMaxAge is used when the response carries no usable max-age directive.
	DefaultMaxAge = time.Hour

	defaultTimeout = 10 * time.Second
)

var _ core.PublicKeySource = (*HTTPKeySource)(nil)

// keyCache is replaced as a whole; all keys share one expiry.
type keyCache struct {
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// HTTPKeySource fetches the published key set from an endpoint returning a JSON map of
// key id to PEM encoded X.509 certificate. The key set is cached until the response's
// max-age elapses. Concurrent refreshes are coalesced into one request.
type HTTPKeySource struct {
	url           string
	userAgent     string
	httpClient    *http.Client
	clock         core.Clock
	defaultMaxAge time.Duration

	cache atomic.Pointer[keyCache]
	group singleflight.Group
}

type Option func(*HTTPKeySource)

func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPKeySource) {
		s.httpClient = client
	}
}

func WithClock(clock core.Clock) Option {
	return func(s *HTTPKeySource) {
		s.clock = clock
	}
}

func WithDefaultMaxAge(d time.Duration) Option {
	return func(s *HTTPKeySource) {
		if d > 0 {
			s.defaultMaxAge = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(s *HTTPKeySource) {
		s.userAgent = ua
	}
}

func NewHTTPKeySource(url string, opts ...Option) *HTTPKeySource {
	s := &HTTPKeySource{
		url:           url,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		clock:         core.SystemClock{},
		defaultMaxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the endpoint keys are fetched from.
func (s *HTTPKeySource) URL() string {
	return s.url
}

func (s *HTTPKeySource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	cache, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := cache.keys[kid]
	if !ok {
		return nil, core.NewError(core.KindKeyNotFound, "no public key found for kid %q", kid)
	}
	return key, nil
}

// KeyIDs returns the ids of the current key set and its expiry, refreshing if needed.
func (s *HTTPKeySource) KeyIDs(ctx context.Context) ([]string, time.Time, error) {
	cache, err := s.current(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	ids := make([]string, 0, len(cache.keys))
	for kid := range cache.keys {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids, cache.expiresAt, nil
}

// current returns a fresh cache, refreshing it when empty or expired.
func (s *HTTPKeySource) current(ctx context.Context) (*keyCache, error) {
	if cache := s.fresh(); cache != nil {
		return cache, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan("refresh", func() (any, error) {
		// a refresh that completed while we were queued is good enough
		if cache := s.fresh(); cache != nil {
			return cache, nil
		}
		// the fetch is shared, so it must not fail because one waiter went away
		cache, err := s.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.cache.Store(cache)
		return cache, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keyCache), nil
	}
}

func (s *HTTPKeySource) fresh() *keyCache {
	cache := s.cache.Load()
	if cache == nil || !s.clock.Now().Before(cache.expiresAt) {
		return nil
	}
	return cache
}

func (s *HTTPKeySource) fetch(ctx context.Context) (*keyCache, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, core.WrapError(core.KindPublicKeyFetch, err, "creating public key request")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, core.WrapError(core.KindPublicKeyFetch, err, "fetching public keys from %s", s.url)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.KindPublicKeyFetch,
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			"fetching public keys from %s", s.url)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, core.WrapError(core.KindPublicKeyFetch, err, "decoding public keys")
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return nil, core.WrapError(core.KindPublicKeyFetch, err, "parsing certificate for kid %q", kid)
		}
		keys[kid] = key
	}

	return &keyCache{
		keys:      keys,
		expiresAt: s.clock.Now().Add(s.maxAge(resp.Header.Get("Cache-Control"))),
	}, nil
}

// maxAge extracts the max-age directive of a Cache-Control header.
func (s *HTTPKeySource) maxAge(header string) time.Duration {
	if header == "" {
		return s.defaultMaxAge
	}
	directives, err := httpcc.ParseResponse(header)
	if err != nil {
		return s.defaultMaxAge
	}
	seconds, ok := directives.MaxAge()
	if !ok {
		return s.defaultMaxAge
	}
	return time.Duration(seconds) * time.Second
}
