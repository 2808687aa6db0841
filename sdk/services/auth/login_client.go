// Package auth provides login clients for Globus Auth: OAuth2 flow
// management (authorization code and native-app PKCE), token acquisition
// against the generic token endpoint (refresh, validation, revocation,
// client credentials, dependent tokens), and the typed token responses.
package auth

import (
	"context"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
	"github.com/globus/globus-sdk-go/sdk/client"
	"github.com/globus/globus-sdk-go/sdk/config"
	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

const (
	tokenPath           = "v2/oauth2/token"
	tokenValidatePath   = "v2/oauth2/token/validate"
	tokenRevokePath     = "v2/oauth2/token/revoke"
	tokenIntrospectPath = "v2/oauth2/token/introspect"
	userinfoPath        = "v2/oauth2/userinfo"
)

// Options configures an Auth client.
type Options struct {
	// Environment selects the Globus environment. Empty means the value of
	// GLOBUS_SDK_ENVIRONMENT, falling back to production.
	Environment string
	// BaseURL overrides the environment-derived service URL.
	BaseURL string
	// Config holds optional transport settings (proxy, timeout, app name).
	Config *config.Config
}

// AuthLoginClient is the common base of clients providing login
// functionality via Globus Auth. It owns zero or one active flow manager;
// the flow operations fail with a UsageError until a flow is started.
//
// The current-flow slot is a single mutable reference and is not protected
// against concurrent use. Callers running multiple flows concurrently must
// use one client instance per flow.
type AuthLoginClient struct {
	*client.BaseClient

	// ClientID is the application's Globus Auth client ID. It is sent in
	// unauthenticated validate/revoke bodies so the service can identify
	// the caller.
	ClientID string

	currentFlowManager FlowManager
}

func newLoginClient(clientID string, authorizer authorizers.Authorizer, opts *Options) (*AuthLoginClient, error) {
	if opts == nil {
		opts = &Options{}
	}
	base, err := client.New("auth", client.Options{
		Environment: opts.Environment,
		BaseURL:     opts.BaseURL,
		Authorizer:  authorizer,
		Config:      opts.Config,
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("auth: initialized login client, client_id=%s", clientID)
	return &AuthLoginClient{BaseClient: base, ClientID: clientID}, nil
}

// CurrentFlowManager returns the active flow manager, or nil when no flow
// has been started.
func (c *AuthLoginClient) CurrentFlowManager() FlowManager { return c.currentFlowManager }

// setFlowManager installs a new current flow, silently replacing any
// previous one. The replaced flow's authorize URL, if unused, is orphaned.
func (c *AuthLoginClient) setFlowManager(manager FlowManager) {
	if c.currentFlowManager != nil {
		log.Info("auth: replacing current OAuth2 flow manager")
	}
	c.currentFlowManager = manager
}

// AuthorizeURLOptions carries the session requirement parameters merged into
// an authorize URL. Each list accepts one or many values; both forms
// normalize to a single comma-joined query parameter.
type AuthorizeURLOptions struct {
	// SessionRequiredIdentities lists identity IDs which must be in the
	// authenticated session.
	SessionRequiredIdentities []string
	// SessionRequiredSingleDomain lists domain requirements which must be
	// satisfied by identities added to the session.
	SessionRequiredSingleDomain []string
	// SessionRequiredPolicies lists policy IDs which must be satisfied by
	// the user.
	SessionRequiredPolicies []string
	// Prompt, when set to "login", forces a fresh identity-provider login
	// even for users with a live session. Passed through verbatim.
	Prompt string
	// QueryParams holds additional raw query parameters.
	QueryParams url.Values
}

func (o *AuthorizeURLOptions) values() url.Values {
	params := url.Values{}
	if o == nil {
		return params
	}
	mergeValues(params, o.QueryParams)
	if len(o.SessionRequiredIdentities) > 0 {
		params.Set("session_required_identities", commaJoin(o.SessionRequiredIdentities))
	}
	if len(o.SessionRequiredSingleDomain) > 0 {
		params.Set("session_required_single_domain", commaJoin(o.SessionRequiredSingleDomain))
	}
	if len(o.SessionRequiredPolicies) > 0 {
		params.Set("session_required_policies", commaJoin(o.SessionRequiredPolicies))
	}
	if o.Prompt != "" {
		params.Set("prompt", o.Prompt)
	}
	return params
}

// OAuth2GetAuthorizeURL returns the authorization URL to which users should
// be sent. It may only be called after a flow has been started; calling it
// earlier is a usage error, not a server error.
func (c *AuthLoginClient) OAuth2GetAuthorizeURL(opts *AuthorizeURLOptions) (string, error) {
	if c.currentFlowManager == nil {
		return "", sdkerrors.NewUsageError(
			"cannot get authorize URL until starting an OAuth2 flow; call OAuth2StartFlow first")
	}
	authorizeURL := c.currentFlowManager.AuthorizeURL(opts.values())
	log.Infof("auth: built authorization URL: %s", authorizeURL)
	return authorizeURL, nil
}

// OAuth2ExchangeCodeForTokens exchanges an authorization code, obtained by
// sending the user to the authorize URL, for tokens. It may only be called
// after a flow has been started.
func (c *AuthLoginClient) OAuth2ExchangeCodeForTokens(ctx context.Context, authCode string) (*TokenResponse, error) {
	if c.currentFlowManager == nil {
		return nil, sdkerrors.NewUsageError(
			"cannot exchange auth code until starting an OAuth2 flow; call OAuth2StartFlow first")
	}
	return c.currentFlowManager.ExchangeCodeForTokens(ctx, authCode)
}

// OAuth2RefreshToken exchanges a refresh token for a new access token.
// Caller-supplied bodyParams are merged last and may overwrite the computed
// fields on key collisions.
func (c *AuthLoginClient) OAuth2RefreshToken(ctx context.Context, refreshToken string, bodyParams map[string]string) (*TokenResponse, error) {
	log.Info("auth: refreshing token")
	return c.OAuth2Token(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, bodyParams)
}

// OAuth2ValidateToken checks whether an access or refresh token is still
// active. The response body has the form {"active": true|false}. When the
// client has no real authorizer but does have a client ID, the client ID is
// sent in the body so the service can identify the caller.
func (c *AuthLoginClient) OAuth2ValidateToken(ctx context.Context, token string, bodyParams map[string]string) (*transport.Response, error) {
	log.Info("auth: validating token")
	return c.Post(ctx, tokenValidatePath, nil, c.tokenActionBody(token, bodyParams), transport.EncodingForm)
}

// OAuth2RevokeToken revokes an access or refresh token, rendering it inert.
// The unauthenticated client ID rule matches OAuth2ValidateToken.
func (c *AuthLoginClient) OAuth2RevokeToken(ctx context.Context, token string, bodyParams map[string]string) (*transport.Response, error) {
	log.Info("auth: revoking token")
	return c.Post(ctx, tokenRevokePath, nil, c.tokenActionBody(token, bodyParams), transport.EncodingForm)
}

// tokenActionBody builds the form body shared by validate and revoke.
func (c *AuthLoginClient) tokenActionBody(token string, bodyParams map[string]string) map[string]string {
	body := map[string]string{"token": token}
	if authorizers.IsNull(c.Authorizer) && c.ClientID != "" {
		log.Debug("auth: unauthenticated client, sending client_id in body")
		body["client_id"] = c.ClientID
	}
	for key, value := range bodyParams {
		body[key] = value
	}
	return body
}

// OAuth2TokenIntrospect looks up metadata for a token. include selects
// optional response sections, such as "identity_set"; empty omits the
// parameter.
func (c *AuthLoginClient) OAuth2TokenIntrospect(ctx context.Context, token, include string) (*transport.Response, error) {
	log.Info("auth: introspecting token")
	body := map[string]string{"token": token}
	if include != "" {
		body["include"] = include
	}
	return c.Post(ctx, tokenIntrospectPath, nil, body, transport.EncodingForm)
}

// OAuth2TokenRaw is the generic form of calling the OAuth2 token endpoint:
// formData and bodyParams are merged into one form-encoded POST body, and
// the raw response is returned for the caller to decode. Grant types with
// non-standard response shapes route through this and a matching decoder,
// as OAuth2GetDependentTokens does with NewDependentTokenResponse.
func (c *AuthLoginClient) OAuth2TokenRaw(ctx context.Context, formData, bodyParams map[string]string) (*transport.Response, error) {
	log.Info("auth: fetching new token from Globus Auth")
	body := make(map[string]string, len(formData)+len(bodyParams))
	for key, value := range formData {
		body[key] = value
	}
	for key, value := range bodyParams {
		body[key] = value
	}
	return c.Post(ctx, tokenPath, nil, body, transport.EncodingForm)
}

// OAuth2Token calls the token endpoint and decodes the standard token
// response shape.
func (c *AuthLoginClient) OAuth2Token(ctx context.Context, formData, bodyParams map[string]string) (*TokenResponse, error) {
	resp, err := c.OAuth2TokenRaw(ctx, formData, bodyParams)
	if err != nil {
		return nil, err
	}
	return NewTokenResponse(resp)
}

// OAuth2Userinfo calls the OIDC userinfo endpoint with this client's
// authorizer. The fields returned depend on the OIDC scopes of the token in
// use.
func (c *AuthLoginClient) OAuth2Userinfo(ctx context.Context) (*transport.Response, error) {
	log.Info("auth: looking up OIDC userinfo")
	return c.Get(ctx, userinfoPath, nil)
}

// commaJoin renders a value list as the comma-joined wire form. A single
// value and a one-element list produce identical output.
func commaJoin(values []string) string {
	return strings.Join(values, ",")
}
