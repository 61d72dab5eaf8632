package credentials

import "fmt"

// AuthKind identifies how a provider authenticates upstream requests.
// The set is closed: adding a new kind requires updating every switch over
// AuthKind, which the resolver relies on for exhaustive handling.
type AuthKind int

const (
	// AuthNone means the provider requires no credentials.
	AuthNone AuthKind = iota

	// AuthBearer places a static token in the Authorization header.
	AuthBearer

	// AuthAPIKeyHeader places a static key in a named header.
	AuthAPIKeyHeader

	// AuthAPIKeyQuery places a static key in a named query parameter.
	AuthAPIKeyQuery

	// AuthOAuth2ClientCredentials fetches and refreshes an access token
	// using the OAuth2 client-credentials grant.
	AuthOAuth2ClientCredentials
)

// String returns the configuration name of the auth kind.
func (k AuthKind) String() string {
	switch k {
	case AuthNone:
		return "none"
	case AuthBearer:
		return "bearer"
	case AuthAPIKeyHeader:
		return "api_key_header"
	case AuthAPIKeyQuery:
		return "api_key_query"
	case AuthOAuth2ClientCredentials:
		return "oauth2_client_credentials"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseAuthKind parses a configuration auth type string.
func ParseAuthKind(s string) (AuthKind, error) {
	switch s {
	case "", "none":
		return AuthNone, nil
	case "bearer":
		return AuthBearer, nil
	case "api_key_header":
		return AuthAPIKeyHeader, nil
	case "api_key_query":
		return AuthAPIKeyQuery, nil
	case "oauth2_client_credentials":
		return AuthOAuth2ClientCredentials, nil
	default:
		return AuthNone, fmt.Errorf("unknown auth type %q", s)
	}
}

// Spec is an opaque credential specification attached to a provider.
// Only the fields relevant to its Kind are populated.
type Spec struct {
	// Kind selects the resolution strategy.
	Kind AuthKind

	// Key uniquely identifies the spec (connector:provider) for token caching.
	Key string

	// Name is the header or query parameter name for API-key kinds.
	Name string

	// Value is the static key material for API-key kinds.
	Value string

	// Token is the static token for the bearer kind.
	Token string

	// TokenURL is the OAuth2 token endpoint.
	TokenURL string

	// ClientID and ClientSecret are the OAuth2 client credentials.
	ClientID     string
	ClientSecret string

	// Scopes are optional OAuth2 scopes.
	Scopes []string

	// ExtraParams are additional token-request parameters.
	ExtraParams map[string]string
}

// Placement says where a resolved credential is injected into the
// outbound request.
type Placement int

const (
	// PlaceHeader injects the credential as a request header.
	PlaceHeader Placement = iota

	// PlaceQuery injects the credential as a query parameter.
	PlaceQuery
)

// Credential is resolved request material ready for injection.
type Credential struct {
	// Placement says whether Name/Value is a header or query parameter.
	Placement Placement

	// Name is the header or query parameter name.
	Name string

	// Value is the credential value. Never log this field directly.
	Value string
}
