package flows

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// flowsServer replies to every request with the scripted bodies in order and
// records what it saw.
func flowsServer(t *testing.T, status int, bodies []string, requests *[]recordedRequest) *httptest.Server {
	t.Helper()
	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*requests = append(*requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		w.WriteHeader(status)
		if call < len(bodies) {
			w.Write([]byte(bodies[call]))
			call++
		} else {
			w.Write([]byte(`{}`))
		}
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    baseURL,
		Authorizer: authorizers.NewAccessTokenAuthorizer("tok"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCreateFlow(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 201, []string{`{"id": "flow-1"}`}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.CreateFlow(context.Background(), CreateFlowRequest{
		Title:       "Example Flow",
		Definition:  map[string]any{"StartAt": "Step1", "States": map[string]any{}},
		InputSchema: map[string]any{"type": "object"},
		Keywords:    []string{"demo"},
		AdditionalFields: map[string]any{
			"subscription_id": "sub-1",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Get("id").String() != "flow-1" {
		t.Errorf("body = %s", resp.Body)
	}

	req := requests[0]
	if req.Method != http.MethodPost || req.Path != "/flows" {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	var sent map[string]any
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatal(err)
	}
	if sent["title"] != "Example Flow" {
		t.Errorf("title = %v", sent["title"])
	}
	if sent["subscription_id"] != "sub-1" {
		t.Errorf("additional fields should merge, got %v", sent)
	}
	if _, ok := sent["subtitle"]; ok {
		t.Error("unset optional fields must not be sent")
	}
}

func TestListFlowsQueryParams(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 200, []string{`{"flows": []}`}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ListFlows(context.Background(), &ListFlowsOptions{
		FilterRole:     "flow_owner",
		FilterFulltext: "genomics",
		OrderBy:        []string{"updated_at DESC", "title ASC"},
		Marker:         "m1",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := requests[0].Query
	if q.Get("filter_role") != "flow_owner" {
		t.Errorf("filter_role = %q", q.Get("filter_role"))
	}
	if q.Get("filter_fulltext") != "genomics" {
		t.Errorf("filter_fulltext = %q", q.Get("filter_fulltext"))
	}
	// each ordering criterion is a separate parameter
	if len(q["orderby"]) != 2 {
		t.Errorf("orderby = %v", q["orderby"])
	}
	if q.Get("marker") != "m1" {
		t.Errorf("marker = %q", q.Get("marker"))
	}
}

func TestListFlowsPaginated(t *testing.T) {
	var requests []recordedRequest
	bodies := []string{
		`{"flows": [{"id": "f1"}, {"id": "f2"}], "marker": "m1", "has_next_page": true}`,
		`{"flows": [{"id": "f3"}], "marker": null, "has_next_page": false}`,
	}
	server := flowsServer(t, 200, bodies, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	it := c.ListFlowsPaginated(&ListFlowsOptions{FilterRole: "flow_viewer"}).Items()

	var ids []string
	for it.Next(context.Background()) {
		ids = append(ids, it.Item().Get("id").String())
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "f1" || ids[2] != "f3" {
		t.Errorf("ids = %v", ids)
	}

	if requests[0].Query.Has("marker") {
		t.Error("first page should not send a marker")
	}
	if requests[1].Query.Get("marker") != "m1" {
		t.Errorf("second page marker = %q", requests[1].Query.Get("marker"))
	}
	if requests[1].Query.Get("filter_role") != "flow_viewer" {
		t.Error("filters must persist across pages")
	}
}

func TestPaginatedListingsAreIndependent(t *testing.T) {
	var requests []recordedRequest
	bodies := []string{
		`{"flows": [{"id": "f1"}]}`,
		`{"flows": [{"id": "f1"}]}`,
	}
	server := flowsServer(t, 200, bodies, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	first := c.ListFlowsPaginated(nil)
	second := c.ListFlowsPaginated(nil)

	ctx := context.Background()
	for first.Next(ctx) {
	}
	for second.Next(ctx) {
	}
	if first.Err() != nil || second.Err() != nil {
		t.Fatalf("errs: %v, %v", first.Err(), second.Err())
	}
	if len(requests) != 2 {
		t.Errorf("each paginator owns its cursor; got %d fetches", len(requests))
	}
}

func TestRunOperations(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 200, nil, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	if _, err := c.GetRun(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetRunDefinition(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CancelRun(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateRun(ctx, "run-1", UpdateRunRequest{Label: "nightly"}); err != nil {
		t.Fatal(err)
	}

	want := []struct{ method, path string }{
		{http.MethodGet, "/runs/run-1"},
		{http.MethodGet, "/runs/run-1/definition"},
		{http.MethodPost, "/runs/run-1/cancel"},
		{http.MethodPost, "/runs/run-1/release"},
		{http.MethodPut, "/runs/run-1"},
	}
	for i, w := range want {
		if requests[i].Method != w.method || requests[i].Path != w.path {
			t.Errorf("call %d = %s %s, want %s %s", i, requests[i].Method, requests[i].Path, w.method, w.path)
		}
	}
}

func TestListRunsFilters(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 200, []string{`{"runs": []}`}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ListRuns(context.Background(), &ListRunsOptions{
		FilterFlowID: []string{"f1", "f2"},
		FilterStatus: []string{"ACTIVE", "INACTIVE"},
	})
	if err != nil {
		t.Fatal(err)
	}
	q := requests[0].Query
	if q.Get("filter_flow_id") != "f1,f2" {
		t.Errorf("filter_flow_id = %q", q.Get("filter_flow_id"))
	}
	if q.Get("filter_status") != "ACTIVE,INACTIVE" {
		t.Errorf("filter_status = %q", q.Get("filter_status"))
	}
}

func TestGetRunLogs(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 200, []string{`{"entries": [{"code": "FlowStarted"}]}`}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.GetRunLogs(context.Background(), "run-1", &GetRunLogsOptions{
		Limit:        25,
		ReverseOrder: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Get("entries.0.code").String() != "FlowStarted" {
		t.Errorf("body = %s", resp.Body)
	}
	req := requests[0]
	if req.Path != "/runs/run-1/log" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Query.Get("per_page") != "25" {
		t.Errorf("per_page = %q", req.Query.Get("per_page"))
	}
	if req.Query.Get("reverse_order") != "true" {
		t.Errorf("reverse_order = %q", req.Query.Get("reverse_order"))
	}
}

func TestFlowsAPIErrorParsing(t *testing.T) {
	var requests []recordedRequest
	body := `{
		"error": {
			"code": "UNPROCESSABLE_ENTITY",
			"detail": [
				{"loc": ["body", "title"], "msg": "field required", "type": "value_error.missing"},
				{"loc": ["body", "definition"], "msg": "invalid definition", "type": "value_error"}
			]
		},
		"debug_id": "d-123"
	}`
	server := flowsServer(t, 422, []string{body}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.CreateFlow(context.Background(), CreateFlowRequest{})
	if err == nil {
		t.Fatal("want an error for a 422")
	}

	var flowsErr *FlowsAPIError
	if !errors.As(err, &flowsErr) {
		t.Fatalf("want a FlowsAPIError, got %T: %v", err, err)
	}
	if !sdkerrors.IsAPIError(err) {
		t.Error("a FlowsAPIError should still match IsAPIError")
	}
	if flowsErr.StatusCode != 422 {
		t.Errorf("StatusCode = %d", flowsErr.StatusCode)
	}
	if flowsErr.Code != "UNPROCESSABLE_ENTITY" {
		t.Errorf("Code = %q", flowsErr.Code)
	}
	if len(flowsErr.Errors) != 1 {
		t.Errorf("the error object should appear as a one-element array, got %d", len(flowsErr.Errors))
	}
	if len(flowsErr.Messages) != 2 || flowsErr.Messages[0] != "field required" {
		t.Errorf("Messages = %v", flowsErr.Messages)
	}
}

func TestFlowsAPIErrorStringDetail(t *testing.T) {
	var requests []recordedRequest
	server := flowsServer(t, 404, []string{`{"error": {"code": "NOT_FOUND", "detail": "no flow with that ID"}}`}, &requests)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GetFlow(context.Background(), "missing")
	var flowsErr *FlowsAPIError
	if !errors.As(err, &flowsErr) {
		t.Fatalf("want a FlowsAPIError, got %v", err)
	}
	if flowsErr.Message() != "no flow with that ID" {
		t.Errorf("Message() = %q", flowsErr.Message())
	}
}
