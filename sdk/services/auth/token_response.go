package auth

import (
	"time"

	"github.com/tidwall/gjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// TokenInfo is one issued token, scoped to a single resource server.
type TokenInfo struct {
	// ResourceServer identifies the downstream service the token acts
	// against.
	ResourceServer string `json:"resource_server"`
	// AccessToken is the bearer credential itself.
	AccessToken string `json:"access_token"`
	// RefreshToken is present only when offline access was requested.
	RefreshToken string `json:"refresh_token,omitempty"`
	// Scope is the space-joined scope string granted for this token.
	Scope string `json:"scope"`
	// TokenType is the OAuth2 token type, typically "Bearer".
	TokenType string `json:"token_type"`
	// ExpiresAt is the token expiration as a Unix timestamp in seconds,
	// computed from the server's expires_in at decode time.
	ExpiresAt int64 `json:"expires_at_seconds"`
}

// tokenFields mirrors one token document on the wire.
type tokenFields struct {
	AccessToken    string        `json:"access_token"`
	RefreshToken   string        `json:"refresh_token"`
	ResourceServer string        `json:"resource_server"`
	Scope          string        `json:"scope"`
	TokenType      string        `json:"token_type"`
	ExpiresIn      int64         `json:"expires_in"`
	OtherTokens    []tokenFields `json:"other_tokens"`
}

func (f *tokenFields) info(now time.Time) TokenInfo {
	return TokenInfo{
		ResourceServer: f.ResourceServer,
		AccessToken:    f.AccessToken,
		RefreshToken:   f.RefreshToken,
		Scope:          f.Scope,
		TokenType:      f.TokenType,
		ExpiresAt:      now.Unix() + f.ExpiresIn,
	}
}

// TokenResponse is the immutable result of a token-endpoint call. The
// service returns either a single top-level token document or a top-level
// document plus an "other_tokens" array; both shapes are normalized into a
// mapping keyed by resource server.
type TokenResponse struct {
	raw              *transport.Response
	byResourceServer map[string]TokenInfo
}

// NewTokenResponse decodes a token-endpoint response. Every resource server
// named in the response appears as a key of the mapping.
func NewTokenResponse(resp *transport.Response) (*TokenResponse, error) {
	var fields tokenFields
	if err := resp.Decode(&fields); err != nil {
		return nil, err
	}
	if fields.AccessToken == "" {
		return nil, sdkerrors.NewDecodingError("token response", nil)
	}

	now := time.Now()
	byResourceServer := map[string]TokenInfo{
		fields.ResourceServer: fields.info(now),
	}
	for i := range fields.OtherTokens {
		other := &fields.OtherTokens[i]
		byResourceServer[other.ResourceServer] = other.info(now)
	}

	return &TokenResponse{raw: resp, byResourceServer: byResourceServer}, nil
}

// ByResourceServer returns the token mapping keyed by resource server. The
// returned map is a copy; the response itself is immutable.
func (r *TokenResponse) ByResourceServer() map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(r.byResourceServer))
	for server, info := range r.byResourceServer {
		out[server] = info
	}
	return out
}

// Token looks up the token issued for one resource server.
func (r *TokenResponse) Token(resourceServer string) (TokenInfo, bool) {
	info, ok := r.byResourceServer[resourceServer]
	return info, ok
}

// Raw returns the underlying HTTP response.
func (r *TokenResponse) Raw() *transport.Response { return r.raw }

// Data parses the raw body for loose access to fields the typed mapping
// does not carry, such as id_token or state.
func (r *TokenResponse) Data() gjson.Result { return r.raw.JSON() }

// DependentTokenResponse is the token response variant for the dependent
// token grant, whose payload is a flat array of token documents rather than
// a nested mapping.
type DependentTokenResponse struct {
	TokenResponse
}

// NewDependentTokenResponse decodes a dependent-token response.
func NewDependentTokenResponse(resp *transport.Response) (*DependentTokenResponse, error) {
	var documents []tokenFields
	if err := resp.Decode(&documents); err != nil {
		return nil, err
	}

	now := time.Now()
	byResourceServer := make(map[string]TokenInfo, len(documents))
	for i := range documents {
		doc := &documents[i]
		byResourceServer[doc.ResourceServer] = doc.info(now)
	}

	return &DependentTokenResponse{TokenResponse{raw: resp, byResourceServer: byResourceServer}}, nil
}
