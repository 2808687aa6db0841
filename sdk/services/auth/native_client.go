package auth

import (
	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
)

// NativeAppAuthClient represents an application without a client secret,
// such as a CLI or desktop tool, communicating with Globus Auth. It
// authenticates its flows with PKCE instead of credentials and therefore
// carries a NullAuthorizer.
type NativeAppAuthClient struct {
	AuthLoginClient
}

// NewNativeAppAuthClient creates a login client for a registered native
// application.
func NewNativeAppAuthClient(clientID string, opts *Options) (*NativeAppAuthClient, error) {
	base, err := newLoginClient(clientID, authorizers.NewNullAuthorizer(), opts)
	if err != nil {
		return nil, err
	}
	return &NativeAppAuthClient{AuthLoginClient: *base}, nil
}

// OAuth2StartFlow starts or resumes a native-app flow, generating a fresh
// PKCE verifier/challenge pair. The new manager becomes the client's
// current flow, silently replacing any previous one.
func (c *NativeAppAuthClient) OAuth2StartFlow(opts *NativeAppFlowOptions) (*NativeAppFlowManager, error) {
	log.Info("auth: starting native app flow")
	manager, err := newNativeAppFlowManager(&c.AuthLoginClient, opts)
	if err != nil {
		return nil, err
	}
	c.setFlowManager(manager)
	return manager, nil
}
