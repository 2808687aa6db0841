package auth

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
	"github.com/globus/globus-sdk-go/sdk/scopes"
)

// dependentTokenGrantType is the Globus-specific grant for exchanging a
// token for new tokens scoped to downstream resource servers.
const dependentTokenGrantType = "urn:globus:auth:grant_type:dependent_token"

// ConfidentialAppAuthClient represents an application holding its own client
// ID and secret. The credentials establish a BasicAuthorizer used on every
// request.
type ConfidentialAppAuthClient struct {
	AuthLoginClient
}

// NewConfidentialAppAuthClient creates a login client for a registered
// confidential application.
func NewConfidentialAppAuthClient(clientID, clientSecret string, opts *Options) (*ConfidentialAppAuthClient, error) {
	base, err := newLoginClient(clientID, authorizers.NewBasicAuthorizer(clientID, clientSecret), opts)
	if err != nil {
		return nil, err
	}
	return &ConfidentialAppAuthClient{AuthLoginClient: *base}, nil
}

// OAuth2StartFlow starts or resumes an authorization code flow bound to the
// given redirect URI. The new manager becomes the client's current flow,
// silently replacing any previous one.
func (c *ConfidentialAppAuthClient) OAuth2StartFlow(redirectURI string, opts *AuthorizationCodeFlowOptions) *AuthorizationCodeFlowManager {
	log.Info("auth: starting authorization code flow")
	manager := newAuthorizationCodeFlowManager(&c.AuthLoginClient, redirectURI, opts)
	c.setFlowManager(manager)
	return manager
}

// OAuth2ClientCredentialsTokens performs a client credentials grant,
// producing tokens that represent the client itself rather than a user. No
// flow manager is involved.
func (c *ConfidentialAppAuthClient) OAuth2ClientCredentialsTokens(ctx context.Context, requestedScopes []string) (*TokenResponse, error) {
	log.Info("auth: fetching tokens via client credentials")
	if len(requestedScopes) == 0 {
		requestedScopes = scopes.DefaultRequestedScopes
	}
	return c.OAuth2Token(ctx, map[string]string{
		"grant_type": "client_credentials",
		"scope":      scopes.Join(requestedScopes),
	}, nil)
}

// DependentTokensOptions holds the optional parameters for a dependent token
// grant.
type DependentTokensOptions struct {
	// RefreshTokens requests dependent refresh tokens in addition to access
	// tokens.
	RefreshTokens bool
	// AdditionalParams is merged into the request body.
	AdditionalParams map[string]string
}

// OAuth2GetDependentTokens exchanges a token granted to this client for new
// tokens scoped to the resource servers it depends on. The response payload
// is a flat list of token documents, decoded through
// NewDependentTokenResponse.
func (c *ConfidentialAppAuthClient) OAuth2GetDependentTokens(ctx context.Context, token string, opts *DependentTokensOptions) (*DependentTokenResponse, error) {
	log.Info("auth: fetching dependent tokens")
	if opts == nil {
		opts = &DependentTokensOptions{}
	}
	formData := map[string]string{
		"grant_type": dependentTokenGrantType,
		"token":      token,
	}
	if opts.RefreshTokens {
		formData["access_type"] = "offline"
	}
	resp, err := c.OAuth2TokenRaw(ctx, formData, opts.AdditionalParams)
	if err != nil {
		return nil, err
	}
	return NewDependentTokenResponse(resp)
}
