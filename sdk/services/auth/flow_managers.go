package auth

import (
	"context"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/scopes"
)

// authorizePath is the Globus Auth authorization endpoint, relative to the
// service base URL.
const authorizePath = "v2/oauth2/authorize"

// FlowManager encapsulates one active OAuth2 grant flow: it builds the
// authorize URL sent to the user and later exchanges the resulting
// authorization code for tokens. A login client holds at most one flow
// manager at a time.
type FlowManager interface {
	// AuthorizeURL builds the identity-provider authorization URL. It is a
	// pure function of the manager state plus the supplied extra query
	// parameters; it may be called any number of times without side effect.
	AuthorizeURL(extras url.Values) string

	// ExchangeCodeForTokens trades an authorization code for tokens with a
	// single token-endpoint call. A rejected code (expired, reused, or
	// redirect-URI mismatch) surfaces as an APIError from the server.
	ExchangeCodeForTokens(ctx context.Context, authCode string) (*TokenResponse, error)
}

// AuthorizationCodeFlowManager drives the redirect-based authorization code
// grant used by confidential applications.
type AuthorizationCodeFlowManager struct {
	client         *AuthLoginClient
	redirectURI    string
	requestedScope string
	state          string
	refreshTokens  bool
}

// AuthorizationCodeFlowOptions holds the optional parameters for starting an
// authorization code flow.
type AuthorizationCodeFlowOptions struct {
	// RequestedScopes are the scopes for the tokens being requested.
	// Defaults to scopes.DefaultRequestedScopes.
	RequestedScopes []string
	// State is the CSRF correlation token carried through the flow.
	// Defaults to "_default".
	State string
	// RefreshTokens requests refresh tokens in addition to access tokens.
	RefreshTokens bool
}

func newAuthorizationCodeFlowManager(client *AuthLoginClient, redirectURI string, opts *AuthorizationCodeFlowOptions) *AuthorizationCodeFlowManager {
	if opts == nil {
		opts = &AuthorizationCodeFlowOptions{}
	}
	requested := opts.RequestedScopes
	if len(requested) == 0 {
		requested = scopes.DefaultRequestedScopes
	}
	state := opts.State
	if state == "" {
		state = "_default"
	}
	return &AuthorizationCodeFlowManager{
		client:         client,
		redirectURI:    redirectURI,
		requestedScope: scopes.Join(requested),
		state:          state,
		refreshTokens:  opts.RefreshTokens,
	}
}

// AuthorizeURL builds the authorization URL for this flow.
func (m *AuthorizationCodeFlowManager) AuthorizeURL(extras url.Values) string {
	params := url.Values{
		"client_id":     {m.client.ClientID},
		"redirect_uri":  {m.redirectURI},
		"scope":         {m.requestedScope},
		"state":         {m.state},
		"response_type": {"code"},
		"access_type":   {accessType(m.refreshTokens)},
	}
	mergeValues(params, extras)
	return m.client.ResolveURL(authorizePath) + "?" + params.Encode()
}

// ExchangeCodeForTokens completes the flow with a token-endpoint call.
func (m *AuthorizationCodeFlowManager) ExchangeCodeForTokens(ctx context.Context, authCode string) (*TokenResponse, error) {
	log.Info("auth: exchanging authorization code for tokens")
	return m.client.OAuth2Token(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         authCode,
		"redirect_uri": m.redirectURI,
		"client_id":    m.client.ClientID,
	}, nil)
}

// NativeAppFlowManager drives the authorization code grant with PKCE for
// applications that cannot hold a client secret. The verifier/challenge pair
// is generated at construction: the challenge is embedded in the authorize
// URL and the verifier is sent only at exchange time, binding the two steps
// without a server-side session.
type NativeAppFlowManager struct {
	client            *AuthLoginClient
	redirectURI       string
	requestedScope    string
	state             string
	refreshTokens     bool
	prefillNamedGrant string
	verifier          string
	challenge         string
}

// NativeAppFlowOptions holds the optional parameters for starting a
// native-app flow.
type NativeAppFlowOptions struct {
	// RequestedScopes are the scopes for the tokens being requested.
	// Defaults to scopes.DefaultRequestedScopes.
	RequestedScopes []string
	// RedirectURI overrides the hosted "copy this code" page that the
	// service provides for native applications.
	RedirectURI string
	// State is the CSRF correlation token carried through the flow.
	// Defaults to "_default".
	State string
	// RefreshTokens requests refresh tokens in addition to access tokens.
	RefreshTokens bool
	// PrefillNamedGrant prefills the named-grant label shown on consent.
	PrefillNamedGrant string
	// Verifier supplies a pre-made PKCE code verifier. Empty means a random
	// one is generated.
	Verifier string
}

func newNativeAppFlowManager(client *AuthLoginClient, opts *NativeAppFlowOptions) (*NativeAppFlowManager, error) {
	if opts == nil {
		opts = &NativeAppFlowOptions{}
	}
	verifier, challenge, err := MakeNativeAppChallenge(opts.Verifier)
	if err != nil {
		return nil, err
	}
	requested := opts.RequestedScopes
	if len(requested) == 0 {
		requested = scopes.DefaultRequestedScopes
	}
	state := opts.State
	if state == "" {
		state = "_default"
	}
	redirectURI := opts.RedirectURI
	if redirectURI == "" {
		redirectURI = client.ResolveURL("v2/web/auth-code")
	}
	return &NativeAppFlowManager{
		client:            client,
		redirectURI:       redirectURI,
		requestedScope:    scopes.Join(requested),
		state:             state,
		refreshTokens:     opts.RefreshTokens,
		prefillNamedGrant: opts.PrefillNamedGrant,
		verifier:          verifier,
		challenge:         challenge,
	}, nil
}

// Verifier exposes the PKCE code verifier, primarily for callers persisting
// flow state across processes.
func (m *NativeAppFlowManager) Verifier() string { return m.verifier }

// AuthorizeURL builds the authorization URL for this flow, embedding the
// PKCE code challenge.
func (m *NativeAppFlowManager) AuthorizeURL(extras url.Values) string {
	params := url.Values{
		"client_id":             {m.client.ClientID},
		"redirect_uri":          {m.redirectURI},
		"scope":                 {m.requestedScope},
		"state":                 {m.state},
		"response_type":         {"code"},
		"access_type":           {accessType(m.refreshTokens)},
		"code_challenge":        {m.challenge},
		"code_challenge_method": {"S256"},
	}
	if m.prefillNamedGrant != "" {
		params.Set("prefill_named_grant", m.prefillNamedGrant)
	}
	mergeValues(params, extras)
	return m.client.ResolveURL(authorizePath) + "?" + params.Encode()
}

// ExchangeCodeForTokens completes the flow, sending the code verifier held
// since construction.
func (m *NativeAppFlowManager) ExchangeCodeForTokens(ctx context.Context, authCode string) (*TokenResponse, error) {
	log.Info("auth: exchanging authorization code for tokens (native app)")
	return m.client.OAuth2Token(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"code":          authCode,
		"redirect_uri":  m.redirectURI,
		"client_id":     m.client.ClientID,
		"code_verifier": m.verifier,
	}, nil)
}

func accessType(refreshTokens bool) string {
	if refreshTokens {
		return "offline"
	}
	return "online"
}

func mergeValues(dst, src url.Values) {
	for key, values := range src {
		for _, value := range values {
			dst.Set(key, value)
		}
	}
}
