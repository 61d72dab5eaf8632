package credentials

import (
	"context"
	"fmt"
	"time"
)

// Resolver resolves a credential specification into request material.
//
// Implementations must complete within a bounded time; the gateway treats a
// resolution error as a failed provider attempt and moves on.
type Resolver interface {
	Resolve(ctx context.Context, spec *Spec) (Credential, error)
}

// ResolutionError reports a failed credential resolution for a spec.
type ResolutionError struct {
	// Key is the spec key (connector:provider).
	Key string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("credential resolution failed for %q: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// StandardResolver resolves every supported auth kind. Static kinds resolve
// from the spec directly; OAuth2 client-credentials go through a token
// manager that caches and refreshes access tokens per spec key.
type StandardResolver struct {
	oauth2  *OAuth2Manager
	timeout time.Duration
}

// NewResolver creates a resolver with the given OAuth2 resolution timeout.
// A zero timeout defaults to 10 seconds.
func NewResolver(timeout time.Duration) *StandardResolver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &StandardResolver{
		oauth2:  NewOAuth2Manager(timeout),
		timeout: timeout,
	}
}

// Resolve implements Resolver.
func (r *StandardResolver) Resolve(ctx context.Context, spec *Spec) (Credential, error) {
	if spec == nil {
		return Credential{}, nil
	}

	switch spec.Kind {
	case AuthNone:
		return Credential{}, nil

	case AuthBearer:
		return Credential{
			Placement: PlaceHeader,
			Name:      "Authorization",
			Value:     "Bearer " + spec.Token,
		}, nil

	case AuthAPIKeyHeader:
		return Credential{
			Placement: PlaceHeader,
			Name:      spec.Name,
			Value:     spec.Value,
		}, nil

	case AuthAPIKeyQuery:
		return Credential{
			Placement: PlaceQuery,
			Name:      spec.Name,
			Value:     spec.Value,
		}, nil

	case AuthOAuth2ClientCredentials:
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		token, err := r.oauth2.Token(ctx, spec)
		if err != nil {
			return Credential{}, &ResolutionError{Key: spec.Key, Cause: err}
		}
		return Credential{
			Placement: PlaceHeader,
			Name:      "Authorization",
			Value:     "Bearer " + token,
		}, nil

	default:
		return Credential{}, &ResolutionError{
			Key:   spec.Key,
			Cause: fmt.Errorf("unsupported auth kind %s", spec.Kind),
		}
	}
}

// Invalidate forces a token refresh on the next OAuth2 resolution for the
// given spec key. No-op for static kinds.
func (r *StandardResolver) Invalidate(key string) {
	r.oauth2.Invalidate(key)
}
