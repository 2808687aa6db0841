// Package authorizers supplies the Authorization header values attached to
// SDK requests. An authorizer only formats credential material; it never
// performs network calls of its own.
package authorizers

import (
	"encoding/base64"
	"fmt"
)

// Authorizer produces the Authorization header value for a request. The
// second return is false when no header should be sent.
type Authorizer interface {
	AuthorizationHeader() (string, bool)
}

// AccessTokenAuthorizer attaches a Bearer token.
type AccessTokenAuthorizer struct {
	accessToken string
}

// NewAccessTokenAuthorizer creates an authorizer for a raw access token.
func NewAccessTokenAuthorizer(accessToken string) *AccessTokenAuthorizer {
	return &AccessTokenAuthorizer{accessToken: accessToken}
}

func (a *AccessTokenAuthorizer) AuthorizationHeader() (string, bool) {
	return "Bearer " + a.accessToken, true
}

// BasicAuthorizer attaches HTTP Basic credentials, as used by confidential
// clients authenticating with their client ID and secret.
type BasicAuthorizer struct {
	username string
	password string
}

// NewBasicAuthorizer creates an authorizer for a username/password pair.
func NewBasicAuthorizer(username, password string) *BasicAuthorizer {
	return &BasicAuthorizer{username: username, password: password}
}

func (a *BasicAuthorizer) AuthorizationHeader() (string, bool) {
	credentials := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", a.username, a.password)))
	return "Basic " + credentials, true
}

// NullAuthorizer explicitly sends no Authorization header. It is distinct
// from a nil Authorizer only in intent; both are treated as unauthenticated
// by login clients deciding whether to send a client_id in request bodies.
type NullAuthorizer struct{}

// NewNullAuthorizer creates an authorizer that sends no header.
func NewNullAuthorizer() *NullAuthorizer { return &NullAuthorizer{} }

func (a *NullAuthorizer) AuthorizationHeader() (string, bool) {
	return "", false
}

// IsNull reports whether an authorizer provides no authentication, either
// because it is nil or because it is a NullAuthorizer.
func IsNull(a Authorizer) bool {
	if a == nil {
		return true
	}
	_, ok := a.(*NullAuthorizer)
	return ok
}
