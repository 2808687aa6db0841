// Package callback runs the local HTTP server that captures the OAuth2
// redirect during a native-app login, and parses pasted redirect URLs for
// environments where no local server can listen.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Result holds the parameters delivered to the redirect URI.
type Result struct {
	// Code is the authorization code, empty on error redirects.
	Code string
	// State is the flow correlation token echoed back by the server.
	State string
	// Error is the OAuth2 error code on failed authorizations.
	Error string
	// ErrorDescription elaborates on Error when the server provides one.
	ErrorDescription string
}

// Server listens on localhost for one OAuth2 redirect.
type Server struct {
	port       int
	server     *http.Server
	resultChan chan *Result
	errChan    chan error

	mu      sync.Mutex
	running bool
}

// NewServer creates a callback server for the given port.
func NewServer(port int) *Server {
	return &Server{
		port:       port,
		resultChan: make(chan *Result, 1),
		errChan:    make(chan error, 1),
	}
}

// RedirectURI returns the redirect URI to register with the flow.
func (s *Server) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", s.port)
}

// Start begins listening. It fails when the port is already in use.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("callback: server already running")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("callback: port %d unavailable: %w", s.port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.errChan <- fmt.Errorf("callback: server failed: %w", errServe)
		}
	}()

	log.Debugf("callback: listening on %s", s.RedirectURI())
	return nil
}

// handleCallback captures the redirect parameters and renders a small
// result page telling the user to return to the terminal.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result := &Result{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, errorPage, result.Error)
	} else {
		fmt.Fprint(w, successPage)
	}

	select {
	case s.resultChan <- result:
	default:
		// a second redirect for the same flow is dropped
	}
}

// WaitForResult blocks until the redirect arrives, the server fails, or the
// timeout elapses.
func (s *Server) WaitForResult(timeout time.Duration) (*Result, error) {
	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("callback: timed out after %s waiting for redirect", timeout)
	}
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.server.Shutdown(ctx)
}

const successPage = `<!DOCTYPE html>
<html><head><title>Login Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Login complete</h1>
<p>You may close this window and return to the terminal.</p>
</body></html>`

const errorPage = `<!DOCTYPE html>
<html><head><title>Login Failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Login failed</h1>
<p>The authorization server reported: %s</p>
</body></html>`
