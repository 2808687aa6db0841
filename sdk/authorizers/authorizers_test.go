package authorizers

import "testing"

func TestAccessTokenAuthorizer(t *testing.T) {
	header, ok := NewAccessTokenAuthorizer("AQBX8YvV").AuthorizationHeader()
	if !ok {
		t.Fatal("access token authorizer should send a header")
	}
	if header != "Bearer AQBX8YvV" {
		t.Errorf("header = %q", header)
	}
}

func TestBasicAuthorizer(t *testing.T) {
	header, ok := NewBasicAuthorizer("my-client-id", "my-secret").AuthorizationHeader()
	if !ok {
		t.Fatal("basic authorizer should send a header")
	}
	// base64("my-client-id:my-secret")
	if header != "Basic bXktY2xpZW50LWlkOm15LXNlY3JldA==" {
		t.Errorf("header = %q", header)
	}
}

func TestNullAuthorizer(t *testing.T) {
	header, ok := NewNullAuthorizer().AuthorizationHeader()
	if ok || header != "" {
		t.Errorf("null authorizer should send nothing, got %q, %v", header, ok)
	}
}

func TestIsNull(t *testing.T) {
	if !IsNull(nil) {
		t.Error("nil should count as unauthenticated")
	}
	if !IsNull(NewNullAuthorizer()) {
		t.Error("NullAuthorizer should count as unauthenticated")
	}
	if IsNull(NewAccessTokenAuthorizer("tok")) {
		t.Error("access token authorizer is authenticated")
	}
	if IsNull(NewBasicAuthorizer("u", "p")) {
		t.Error("basic authorizer is authenticated")
	}
}
