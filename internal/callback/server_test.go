package callback

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

// freePort asks the kernel for an unused port.
func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(freePort(t))
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Stop(ctx)
	})
	return server
}

func TestServerCapturesCode(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Get(server.RedirectURI() + "?code=abc123&state=xyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	result, err := server.WaitForResult(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if result.Code != "abc123" || result.State != "xyz" {
		t.Errorf("result = %+v", result)
	}
}

func TestServerCapturesError(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Get(server.RedirectURI() + "?error=access_denied&error_description=nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}

	result, err := server.WaitForResult(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if result.Error != "access_denied" || result.ErrorDescription != "nope" {
		t.Errorf("result = %+v", result)
	}
}

func TestServerTimeout(t *testing.T) {
	server := startTestServer(t)
	if _, err := server.WaitForResult(50 * time.Millisecond); err == nil {
		t.Error("WaitForResult should time out with no redirect")
	}
}

func TestServerPortInUse(t *testing.T) {
	port := freePort(t)
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	server := NewServer(port)
	if err := server.Start(); err == nil {
		server.Stop(context.Background())
		t.Error("Start should fail when the port is taken")
	}
}

func TestServerDoubleStart(t *testing.T) {
	server := startTestServer(t)
	if err := server.Start(); err == nil {
		t.Error("a second Start should fail")
	}
}

func TestServerStopIdempotent(t *testing.T) {
	server := NewServer(freePort(t))
	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	if err := server.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("repeated Stop should be a no-op, got %v", err)
	}
}
