// Package client provides the base REST client shared by all Globus service
// clients. It resolves the service base URL for the active environment,
// attaches authorization headers, and converts non-2xx responses into the
// owning service's error type.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
	"github.com/globus/globus-sdk-go/sdk/config"
	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// ErrorFactory builds the error returned for a non-2xx response. Services
// override it to produce their own APIError subtypes.
type ErrorFactory func(resp *transport.Response) error

// defaultErrorFactory produces the base APIError.
func defaultErrorFactory(resp *transport.Response) error {
	return sdkerrors.NewAPIError(resp.StatusCode, resp.Body)
}

// Options configures a BaseClient.
type Options struct {
	// Environment selects the Globus environment. Empty means the value of
	// GLOBUS_SDK_ENVIRONMENT, falling back to production.
	Environment string
	// BaseURL overrides the environment-derived service URL.
	BaseURL string
	// Authorizer supplies the Authorization header. May be nil for
	// unauthenticated clients.
	Authorizer authorizers.Authorizer
	// Config holds optional transport settings (proxy, timeout, app name).
	Config *config.Config
	// ErrorFactory overrides non-2xx error construction.
	ErrorFactory ErrorFactory
}

// BaseClient issues requests against one Globus service. It is a building
// block for service clients and should not be used directly.
type BaseClient struct {
	// BaseURL is the resolved service base URL, always slash-terminated.
	BaseURL string
	// Authorizer supplies the Authorization header, and may be nil.
	Authorizer authorizers.Authorizer

	transport    *transport.Transport
	errorFactory ErrorFactory
}

// New creates a client for the named service. The base URL is taken from
// opts.BaseURL when set, otherwise looked up for the active environment.
func New(serviceName string, opts Options) (*BaseClient, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		environment := config.EnvironmentName(opts.Environment)
		resolved, err := config.ServiceURL(environment, serviceName)
		if err != nil {
			return nil, err
		}
		baseURL = resolved
	}

	errorFactory := opts.ErrorFactory
	if errorFactory == nil {
		errorFactory = defaultErrorFactory
	}

	log.Debugf("client: created %s client for %s", serviceName, baseURL)
	return &BaseClient{
		BaseURL:      strings.TrimRight(baseURL, "/") + "/",
		Authorizer:   opts.Authorizer,
		transport:    transport.New(opts.Config),
		errorFactory: errorFactory,
	}, nil
}

// ResolveURL joins a request path onto the client base URL. Absolute URLs
// pass through unchanged.
func (c *BaseClient) ResolveURL(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return c.BaseURL + strings.TrimLeft(path, "/")
}

// Get issues a GET request against a service path.
func (c *BaseClient) Get(ctx context.Context, path string, query url.Values) (*transport.Response, error) {
	return c.Request(ctx, http.MethodGet, path, query, nil, "")
}

// Post issues a POST request with an encoded body.
func (c *BaseClient) Post(ctx context.Context, path string, query url.Values, body any, encoding transport.Encoding) (*transport.Response, error) {
	return c.Request(ctx, http.MethodPost, path, query, body, encoding)
}

// Put issues a PUT request with an encoded body.
func (c *BaseClient) Put(ctx context.Context, path string, query url.Values, body any, encoding transport.Encoding) (*transport.Response, error) {
	return c.Request(ctx, http.MethodPut, path, query, body, encoding)
}

// Patch issues a PATCH request with an encoded body.
func (c *BaseClient) Patch(ctx context.Context, path string, query url.Values, body any, encoding transport.Encoding) (*transport.Response, error) {
	return c.Request(ctx, http.MethodPatch, path, query, body, encoding)
}

// Delete issues a DELETE request against a service path.
func (c *BaseClient) Delete(ctx context.Context, path string, query url.Values) (*transport.Response, error) {
	return c.Request(ctx, http.MethodDelete, path, query, nil, "")
}

// Request issues a request and maps non-2xx responses through the client's
// error factory. Transport failures propagate unwrapped.
func (c *BaseClient) Request(ctx context.Context, method, path string, query url.Values, body any, encoding transport.Encoding) (*transport.Response, error) {
	headers := http.Header{}
	if c.Authorizer != nil {
		if header, ok := c.Authorizer.AuthorizationHeader(); ok {
			headers.Set("Authorization", header)
		}
	}

	resp, err := c.transport.Request(ctx, transport.RequestOptions{
		Method:   method,
		URL:      c.ResolveURL(path),
		Query:    query,
		Headers:  headers,
		Body:     body,
		Encoding: encoding,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, c.errorFactory(resp)
	}
	return resp, nil
}
