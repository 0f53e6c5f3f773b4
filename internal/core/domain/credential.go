package domain

import "time"

// Credential stores authentication material for a source.
// The payload is mutated in place on token refresh; the credential's
// identity never changes while any pair references it.
type Credential struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`

	// Source identifies which connector implementation this credential
	// authenticates against (e.g., "box", "github").
	Source string `json:"source"`

	// Shared marks the credential as usable by any pair rather than
	// scoped to the user who created it.
	Shared bool `json:"shared"`

	// OAuth holds OAuth tokens. Nil for static-token authentication.
	OAuth *OAuthPayload `json:"oauth,omitempty"`

	// Static holds a static token (PAT or developer token).
	// Nil for OAuth authentication.
	Static *StaticPayload `json:"static,omitempty"`

	// CreatedAt is when the credential was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the payload was last mutated (e.g., refresh).
	UpdatedAt time.Time `json:"updated_at"`
}

// OAuthPayload stores OAuth tokens plus the client pair needed to refresh them.
type OAuthPayload struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is exchanged for new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Expiry is when the access token expires. Zero means unknown.
	Expiry time.Time `json:"expiry,omitempty"`
	// ClientID and ClientSecret identify the OAuth app at the token endpoint.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	// TokenURL is the source's token exchange endpoint.
	TokenURL string `json:"token_url,omitempty"`
}

// StaticPayload stores a non-expiring token.
type StaticPayload struct {
	// Token is the actual token value.
	Token string `json:"token"`
}

// IsExpired returns true if the access token has expired.
func (p *OAuthPayload) IsExpired() bool {
	if p.Expiry.IsZero() {
		return false
	}
	return time.Now().After(p.Expiry)
}

// ExpiresWithin returns true if the access token expires within d.
// Zero expiry is treated as not expiring.
func (p *OAuthPayload) ExpiresWithin(d time.Duration) bool {
	if p.Expiry.IsZero() {
		return false
	}
	return time.Until(p.Expiry) < d
}

// IsAuthenticated returns true if the credential contains usable material.
func (c *Credential) IsAuthenticated() bool {
	if c.OAuth != nil && c.OAuth.AccessToken != "" {
		return true
	}
	if c.Static != nil && c.Static.Token != "" {
		return true
	}
	return false
}

// HasRefreshToken returns true if a refresh token is available.
func (c *Credential) HasRefreshToken() bool {
	return c.OAuth != nil && c.OAuth.RefreshToken != ""
}

// AccessToken returns the current token value, OAuth or static.
func (c *Credential) AccessToken() string {
	if c.OAuth != nil && c.OAuth.AccessToken != "" {
		return c.OAuth.AccessToken
	}
	if c.Static != nil {
		return c.Static.Token
	}
	return ""
}
