package callback

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRedirect extracts OAuth2 redirect parameters from user-pasted input:
// a full redirect URL, a bare query string, or a lone "code=..." fragment.
// Empty input returns nil with no error so callers can re-prompt.
func ParseRedirect(input string) (*Result, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		switch {
		case strings.HasPrefix(candidate, "?"):
			candidate = "http://localhost" + candidate
		case strings.Contains(candidate, "="):
			candidate = "http://localhost/?" + candidate
		default:
			return nil, fmt.Errorf("callback: input is not a redirect URL or query string")
		}
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("callback: invalid redirect URL: %w", err)
	}

	query := parsed.Query()
	result := &Result{
		Code:             strings.TrimSpace(query.Get("code")),
		State:            strings.TrimSpace(query.Get("state")),
		Error:            strings.TrimSpace(query.Get("error")),
		ErrorDescription: strings.TrimSpace(query.Get("error_description")),
	}

	if result.Code == "" && result.Error == "" {
		return nil, fmt.Errorf("callback: redirect URL carries neither code nor error")
	}
	return result, nil
}
