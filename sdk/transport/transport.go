// Package transport implements the HTTP transport capability consumed by
// every Globus SDK client. It encodes request bodies (form or JSON), attaches
// headers, executes the round trip, and returns a structured response.
// Non-2xx handling is left to the client layer so that each service can map
// failures onto its own error type.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/config"
)

// Version is the SDK release version, reported in the User-Agent header.
const Version = "0.9.0"

// baseUserAgent identifies the SDK on the wire.
const baseUserAgent = "globus-sdk-go/" + Version

// Encoding selects how a request body is serialized.
type Encoding string

const (
	// EncodingForm serializes the body as application/x-www-form-urlencoded.
	EncodingForm Encoding = "form"
	// EncodingJSON serializes the body as application/json.
	EncodingJSON Encoding = "json"
)

// RequestOptions describes one HTTP request.
type RequestOptions struct {
	// Method is the HTTP method.
	Method string
	// URL is the absolute request URL, without query parameters.
	URL string
	// Query holds query parameters to append to the URL.
	Query url.Values
	// Headers holds extra headers, merged over the transport defaults.
	Headers http.Header
	// Body is the request payload. Form encoding accepts url.Values or
	// map[string]string; JSON encoding accepts any marshalable value.
	Body any
	// Encoding selects the body serialization. Ignored when Body is nil.
	Encoding Encoding
}

// Transport executes HTTP requests for SDK clients. It is safe for use by
// multiple goroutines.
type Transport struct {
	client    *http.Client
	userAgent string
}

// New creates a transport from optional client settings. A nil config uses
// the SDK defaults (60s timeout, no proxy, TLS verification on).
func New(cfg *config.Config) *Transport {
	httpTransport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg != nil && cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			httpTransport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.Warnf("transport: ignoring invalid proxy URL %q: %v", cfg.ProxyURL, err)
		}
	}
	if !cfg.VerifySSL() {
		httpTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	userAgent := baseUserAgent
	if cfg != nil && cfg.AppName != "" {
		userAgent = fmt.Sprintf("%s %s", baseUserAgent, cfg.AppName)
	}

	return &Transport{
		client: &http.Client{
			Transport: httpTransport,
			Timeout:   cfg.Timeout(),
		},
		userAgent: userAgent,
	}
}

// Request executes one HTTP round trip and reads the full response body.
// Any status code is returned as a Response; only connection-level failures
// produce an error.
func (t *Transport) Request(ctx context.Context, opts RequestOptions) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	requestURL := opts.URL
	if len(opts.Query) > 0 {
		separator := "?"
		if strings.Contains(requestURL, "?") {
			separator = "&"
		}
		requestURL = requestURL + separator + opts.Query.Encode()
	}

	bodyReader, contentType, err := encodeBody(opts.Body, opts.Encoding)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range opts.Headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	requestID := uuid.NewString()[:8]
	req.Header.Set("X-Client-Request-Id", requestID)

	log.WithField("request_id", requestID).Debugf("%s %s", opts.Method, requestURL)
	started := time.Now()

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warnf("transport: failed to close response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to read response body: %w", err)
	}

	log.WithField("request_id", requestID).
		Debugf("%s %s -> %d (%s)", opts.Method, requestURL, resp.StatusCode, time.Since(started).Round(time.Millisecond))

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// encodeBody serializes a request body for the selected encoding.
func encodeBody(body any, encoding Encoding) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch encoding {
	case EncodingForm:
		values, err := formValues(body)
		if err != nil {
			return nil, "", err
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case EncodingJSON, "":
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("transport: failed to marshal JSON body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	default:
		return nil, "", fmt.Errorf("transport: unknown encoding %q", encoding)
	}
}

// formValues normalizes supported form body types into url.Values.
func formValues(body any) (url.Values, error) {
	switch typed := body.(type) {
	case url.Values:
		return typed, nil
	case map[string]string:
		values := url.Values{}
		for key, value := range typed {
			values.Set(key, value)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("transport: form encoding requires url.Values or map[string]string, got %T", body)
	}
}
