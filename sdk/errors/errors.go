// Package errors defines the error taxonomy shared by all Globus SDK
// clients: usage errors for local precondition violations, API errors for
// non-2xx service responses, and decoding errors for malformed bodies.
// Transport failures are not wrapped; they propagate as returned by the
// underlying HTTP client.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// UsageError represents a local precondition violation, such as requesting
// an authorize URL before starting an OAuth2 flow. It signals programmer
// misuse, never a remote failure, and is never retried.
type UsageError struct {
	// Message names the violated precondition.
	Message string
}

// Error returns a string representation of the usage error.
func (e *UsageError) Error() string {
	return fmt.Sprintf("globus-sdk usage error: %s", e.Message)
}

// NewUsageError creates a usage error from a format string.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// IsUsageError checks whether an error is a UsageError.
func IsUsageError(err error) bool {
	var usageError *UsageError
	return errors.As(err, &usageError)
}

// APIError wraps a non-2xx HTTP response from a Globus service. It carries
// the server-assigned error code and any human-readable messages extracted
// from the response body.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Code is the error code reported by the API, or "Error" when the body
	// carried no recognizable code.
	Code string
	// Messages holds the human-readable messages extracted from the body.
	Messages []string
	// RequestID is the server-assigned request identifier, when present.
	RequestID string
	// Errors holds the sub-error documents for JSON:API style responses.
	Errors []gjson.Result
	// RawBody is the verbatim response body.
	RawBody []byte
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("globus-sdk api error %d (%s): %s", e.StatusCode, e.Code, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("globus-sdk api error %d (%s)", e.StatusCode, e.Code)
}

// Message joins all extracted messages with semicolons. It returns the empty
// string when the body carried no recognizable message fields.
func (e *APIError) Message() string {
	return strings.Join(e.Messages, "; ")
}

// IsAPIError checks whether an error is an APIError (including service
// subtypes which embed it).
func IsAPIError(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError)
}

// messageFields are the body keys checked, in order, for human-readable
// message text.
var messageFields = []string{"message", "detail", "title"}

// Parse fills an APIError from a response body. Two shapes are recognized:
// the flat "type zero" form ({"code": ..., "message": ...}) and the JSON:API
// form ({"errors": [{...}, ...]}). Bodies matching neither shape leave the
// defaults in place so that the status code remains meaningful on its own.
func (e *APIError) Parse(statusCode int, body []byte) {
	e.StatusCode = statusCode
	e.RawBody = body
	e.Code = "Error"

	if !gjson.ValidBytes(body) {
		return
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return
	}

	if requestID := doc.Get("request_id"); requestID.Exists() {
		e.RequestID = requestID.String()
	}

	e.Errors = e.parseErrorsArray(doc)
	e.parseCode(doc)
	e.parseMessages(doc)
}

// parseErrorsArray extracts the sub-error documents. Service subtypes may
// replace this by re-parsing RawBody; the base behavior only recognizes a
// top-level "errors" array of objects.
func (e *APIError) parseErrorsArray(doc gjson.Result) []gjson.Result {
	errorsField := doc.Get("errors")
	if !errorsField.IsArray() {
		return nil
	}
	var out []gjson.Result
	for _, sub := range errorsField.Array() {
		if sub.IsObject() {
			out = append(out, sub)
		}
	}
	return out
}

func (e *APIError) parseCode(doc gjson.Result) {
	if code := doc.Get("code"); code.Exists() && code.Type == gjson.String {
		e.Code = code.String()
		return
	}
	// OAuth2-style bodies carry the code in a top-level "error" string
	if oauthError := doc.Get("error"); oauthError.Type == gjson.String && oauthError.String() != "" {
		e.Code = oauthError.String()
		return
	}
	// with no top-level code, a code shared by every sub-error stands in
	var shared string
	for i, sub := range e.Errors {
		code := sub.Get("code")
		if !code.Exists() || code.Type != gjson.String {
			return
		}
		if i == 0 {
			shared = code.String()
		} else if code.String() != shared {
			return
		}
	}
	if shared != "" {
		e.Code = shared
	}
}

func (e *APIError) parseMessages(doc gjson.Result) {
	for _, field := range messageFields {
		if value := doc.Get(field); value.Exists() && value.Type == gjson.String {
			e.Messages = append(e.Messages, value.String())
			return
		}
	}
	for _, sub := range e.Errors {
		for _, field := range messageFields {
			if value := sub.Get(field); value.Exists() && value.Type == gjson.String {
				e.Messages = append(e.Messages, value.String())
				break
			}
		}
	}
	if len(e.Messages) == 0 {
		if desc := doc.Get("error_description"); desc.Type == gjson.String && desc.String() != "" {
			e.Messages = append(e.Messages, desc.String())
		}
	}
}

// NewAPIError builds the default APIError for a non-2xx response body.
func NewAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{}
	apiErr.Parse(statusCode, body)
	return apiErr
}

// DecodingError indicates that a response body did not match the shape
// expected for the requested response type.
type DecodingError struct {
	// Expected describes the shape the caller asked for.
	Expected string
	// Cause is the underlying decoding failure, when one exists.
	Cause error
}

// Error returns a string representation of the decoding error.
func (e *DecodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("globus-sdk decoding error: response did not match %s: %v", e.Expected, e.Cause)
	}
	return fmt.Sprintf("globus-sdk decoding error: response did not match %s", e.Expected)
}

// Unwrap exposes the underlying decoding failure.
func (e *DecodingError) Unwrap() error { return e.Cause }

// NewDecodingError creates a decoding error for the named expected shape.
func NewDecodingError(expected string, cause error) *DecodingError {
	return &DecodingError{Expected: expected, Cause: cause}
}

// IsDecodingError checks whether an error is a DecodingError.
func IsDecodingError(err error) bool {
	var decodingError *DecodingError
	return errors.As(err, &decodingError)
}
