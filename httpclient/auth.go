package httpclient

import "net/http"

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer
	// AuthHeader sends the key in a named header (x-api-key style).
	AuthHeader
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type AuthType
	// Key is the credential.
	Key string
	// Header is the header name for AuthHeader. Defaults to "X-API-Key".
	Header string
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Key: token}
}

// HeaderAuth creates an auth config that sends key in the named header.
func HeaderAuth(header, key string) *AuthConfig {
	return &AuthConfig{Type: AuthHeader, Key: key, Header: header}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Key == "" {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Key)
	case AuthHeader:
		name := a.Header
		if name == "" {
			name = "X-API-Key"
		}
		req.Header.Set(name, a.Key)
	}
}
