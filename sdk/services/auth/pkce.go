package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"regexp"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
)

// verifierPattern is the RFC 7636 unreserved character set at the allowed
// verifier lengths.
var verifierPattern = regexp.MustCompile(`^[a-zA-Z0-9~._-]{43,128}$`)

// MakeNativeAppChallenge produces the PKCE verifier/challenge pair binding a
// native-app authorize step to its later code exchange. When verifier is
// empty a cryptographically random one is generated; otherwise the supplied
// verifier is validated against RFC 7636 and used as-is. The challenge is
// the SHA-256 of the verifier, base64url-encoded with padding stripped.
func MakeNativeAppChallenge(verifier string) (string, string, error) {
	if verifier == "" {
		generated, err := generateCodeVerifier()
		if err != nil {
			return "", "", err
		}
		verifier = generated
	} else if !verifierPattern.MatchString(verifier) {
		return "", "", sdkerrors.NewUsageError(
			"code verifier must be 43-128 characters of a-z, A-Z, 0-9, ~, ., -, _")
	}

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
	return verifier, challenge, nil
}

// generateCodeVerifier creates a random URL-safe verifier string. 32 random
// bytes encode to 43 base64 characters, the minimum RFC 7636 length.
func generateCodeVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(raw), nil
}
