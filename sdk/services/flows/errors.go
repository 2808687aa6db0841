package flows

import (
	"github.com/tidwall/gjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// FlowsAPIError represents error responses from the Flows service. Flows
// wraps its failures in a top-level "error" object rather than the common
// "errors" array, and carries detail messages at error.detail[].msg.
type FlowsAPIError struct {
	sdkerrors.APIError
}

// newFlowsAPIError parses a non-2xx Flows response.
func newFlowsAPIError(resp *transport.Response) error {
	flowsErr := &FlowsAPIError{}
	flowsErr.Parse(resp.StatusCode, resp.Body)

	errorObj := gjson.ParseBytes(resp.Body).Get("error")
	if !errorObj.IsObject() {
		return flowsErr
	}

	// a top-level "error" object is treated as an errors array of size one
	flowsErr.Errors = []gjson.Result{errorObj}
	if code := errorObj.Get("code"); code.Type == gjson.String {
		flowsErr.Code = code.String()
	}

	var messages []string
	detail := errorObj.Get("detail")
	if detail.IsArray() {
		for _, entry := range detail.Array() {
			if msg := entry.Get("msg"); msg.Type == gjson.String {
				messages = append(messages, msg.String())
			}
		}
	} else if detail.Type == gjson.String {
		messages = append(messages, detail.String())
	}
	if len(messages) == 0 {
		if msg := errorObj.Get("message"); msg.Type == gjson.String {
			messages = append(messages, msg.String())
		}
	}
	if len(messages) > 0 {
		flowsErr.Messages = messages
	}
	return flowsErr
}
