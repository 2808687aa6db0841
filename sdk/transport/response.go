package transport

import (
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
)

// Response is the structured result of one HTTP round trip. The body is
// fully read and buffered; callers may decode it any number of times.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers holds the response headers.
	Headers http.Header
	// Body is the verbatim response body.
	Body []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// Decode unmarshals the JSON body into v. A body that does not match the
// target shape yields a DecodingError.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return sdkerrors.NewDecodingError("json response", err)
	}
	return nil
}

// JSON parses the body for loose, path-based access. Invalid JSON yields a
// zero Result, whose Exists checks all report false.
func (r *Response) JSON() gjson.Result {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// Get extracts a single value from the JSON body by gjson path.
func (r *Response) Get(path string) gjson.Result {
	return r.JSON().Get(path)
}
