package credentials

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Manager caches one token source per credential spec key.
//
// Token sources are created lazily and reused, so refreshes happen only when
// a cached access token is near expiry. The oauth2 package serializes
// concurrent refreshes on a single source, which gives the per-provider
// single-flight behavior the gateway needs.
type OAuth2Manager struct {
	sources map[string]oauth2.TokenSource
	client  *http.Client
	mu      sync.Mutex
}

// NewOAuth2Manager creates a manager whose token requests are bounded by
// the given timeout.
func NewOAuth2Manager(timeout time.Duration) *OAuth2Manager {
	return &OAuth2Manager{
		sources: make(map[string]oauth2.TokenSource),
		client:  &http.Client{Timeout: timeout},
	}
}

// Token returns a valid access token for the spec, fetching or refreshing
// as needed.
func (m *OAuth2Manager) Token(ctx context.Context, spec *Spec) (string, error) {
	source := m.source(spec)

	// TokenSource.Token does not take a context; the bounded HTTP client
	// attached at source creation enforces the timeout. The ctx check below
	// avoids returning a token to an already-cancelled caller.
	token, err := source.Token()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Invalidate drops the cached token source for a key so the next Token call
// fetches a fresh token.
func (m *OAuth2Manager) Invalidate(key string) {
	m.mu.Lock()
	delete(m.sources, key)
	m.mu.Unlock()
}

// source returns the cached token source for the spec, creating it if needed.
func (m *OAuth2Manager) source(spec *Spec) oauth2.TokenSource {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source, ok := m.sources[spec.Key]; ok {
		return source
	}

	params := url.Values{}
	for k, v := range spec.ExtraParams {
		params.Set(k, v)
	}

	cfg := &clientcredentials.Config{
		ClientID:       spec.ClientID,
		ClientSecret:   spec.ClientSecret,
		TokenURL:       spec.TokenURL,
		Scopes:         spec.Scopes,
		EndpointParams: params,
	}

	// The context carries the bounded HTTP client used for all token
	// requests made by this source, including later refreshes.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, m.client)
	source := cfg.TokenSource(ctx)

	m.sources[spec.Key] = source
	return source
}
