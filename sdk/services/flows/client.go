// Package flows provides a client for the Globus Flows service: flow
// definition CRUD, run management, and marker-paginated listings of flows,
// runs, and run logs.
package flows

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/globus/globus-sdk-go/sdk/authorizers"
	"github.com/globus/globus-sdk-go/sdk/client"
	"github.com/globus/globus-sdk-go/sdk/config"
	"github.com/globus/globus-sdk-go/sdk/paging"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// Options configures a Flows client.
type Options struct {
	// Environment selects the Globus environment. Empty means the value of
	// GLOBUS_SDK_ENVIRONMENT, falling back to production.
	Environment string
	// BaseURL overrides the environment-derived service URL.
	BaseURL string
	// Authorizer supplies the Authorization header.
	Authorizer authorizers.Authorizer
	// Config holds optional transport settings (proxy, timeout, app name).
	Config *config.Config
}

// Client talks to the Globus Flows API.
type Client struct {
	*client.BaseClient
}

// NewClient creates a Flows client.
func NewClient(opts Options) (*Client, error) {
	base, err := client.New("flows", client.Options{
		Environment:  opts.Environment,
		BaseURL:      opts.BaseURL,
		Authorizer:   opts.Authorizer,
		Config:       opts.Config,
		ErrorFactory: newFlowsAPIError,
	})
	if err != nil {
		return nil, err
	}
	return &Client{BaseClient: base}, nil
}

// CreateFlowRequest describes a new flow definition.
type CreateFlowRequest struct {
	// Title is the human-friendly display name, required.
	Title string
	// Definition is the JSON object specifying states and execution order,
	// required.
	Definition map[string]any
	// InputSchema is the JSON Schema that run input must conform to,
	// required.
	InputSchema map[string]any
	// Subtitle is a concise summary of the flow's purpose.
	Subtitle string
	// Description is a detailed description for end-user display.
	Description string
	// FlowViewers are principal URNs (or "public") that may view the flow.
	FlowViewers []string
	// FlowStarters are principal URNs (or "all_authenticated_users") that
	// may start a run.
	FlowStarters []string
	// FlowAdministrators are principal URNs that may administer the flow.
	FlowAdministrators []string
	// Keywords categorize the flow for query and discovery.
	Keywords []string
	// AdditionalFields is merged into the request body last.
	AdditionalFields map[string]any
}

func (r *CreateFlowRequest) body() map[string]any {
	return newPayload().
		set("title", r.Title).
		set("definition", r.Definition).
		set("input_schema", r.InputSchema).
		setOptionalString("subtitle", r.Subtitle).
		setOptionalString("description", r.Description).
		setOptionalStringSlice("flow_viewers", r.FlowViewers).
		setOptionalStringSlice("flow_starters", r.FlowStarters).
		setOptionalStringSlice("flow_administrators", r.FlowAdministrators).
		setOptionalStringSlice("keywords", r.Keywords).
		merge(r.AdditionalFields).
		Map()
}

// CreateFlow deploys a new flow definition.
func (c *Client) CreateFlow(ctx context.Context, req CreateFlowRequest) (*transport.Response, error) {
	log.Infof("flows: creating flow %q", req.Title)
	return c.Post(ctx, "flows", nil, req.body(), transport.EncodingJSON)
}

// GetFlow fetches one deployed flow by ID.
func (c *Client) GetFlow(ctx context.Context, flowID string) (*transport.Response, error) {
	return c.Get(ctx, "flows/"+flowID, nil)
}

// ListFlowsOptions filters a flow listing.
type ListFlowsOptions struct {
	// FilterRole names the minimum role required for a flow to be listed.
	FilterRole string
	// FilterFulltext filters results by a full-text search string.
	FilterFulltext string
	// OrderBy holds listing order criteria, e.g. "updated_at DESC". One or
	// many values may be given.
	OrderBy []string
	// Marker requests a specific page from a previous listing.
	Marker string
	// QueryParams holds additional raw query parameters.
	QueryParams url.Values
}

func (o *ListFlowsOptions) values() url.Values {
	params := url.Values{}
	if o == nil {
		return params
	}
	for key, values := range o.QueryParams {
		params[key] = values
	}
	if o.FilterRole != "" {
		params.Set("filter_role", o.FilterRole)
	}
	if o.FilterFulltext != "" {
		params.Set("filter_fulltext", o.FilterFulltext)
	}
	for _, orderBy := range o.OrderBy {
		params.Add("orderby", orderBy)
	}
	if o.Marker != "" {
		params.Set("marker", o.Marker)
	}
	return params
}

// ListFlows fetches one page of deployed flows. The page body nests results
// under "flows" and carries a "marker" cursor for the next page.
func (c *Client) ListFlows(ctx context.Context, opts *ListFlowsOptions) (*transport.Response, error) {
	return c.Get(ctx, "flows", opts.values())
}

// ListFlowsPaginated returns a fresh paginator over the full flow listing.
// Each call produces an independent paginator with its own cursor.
func (c *Client) ListFlowsPaginated(opts *ListFlowsOptions) *paging.MarkerPaginator {
	return paging.NewMarkerPaginator(c.pageFetcher("flows"), paging.MarkerOptions{
		Params:   opts.values(),
		ItemsKey: "flows",
	})
}

// UpdateFlowRequest carries the fields to change on a deployed flow. Unset
// fields are left unchanged by the service.
type UpdateFlowRequest struct {
	Title              string
	Definition         map[string]any
	InputSchema        map[string]any
	Subtitle           string
	Description        string
	FlowViewers        []string
	FlowStarters       []string
	FlowAdministrators []string
	Keywords           []string
	AdditionalFields   map[string]any
}

func (r *UpdateFlowRequest) body() map[string]any {
	return newPayload().
		setOptionalString("title", r.Title).
		setOptionalMap("definition", r.Definition).
		setOptionalMap("input_schema", r.InputSchema).
		setOptionalString("subtitle", r.Subtitle).
		setOptionalString("description", r.Description).
		setOptionalStringSlice("flow_viewers", r.FlowViewers).
		setOptionalStringSlice("flow_starters", r.FlowStarters).
		setOptionalStringSlice("flow_administrators", r.FlowAdministrators).
		setOptionalStringSlice("keywords", r.Keywords).
		merge(r.AdditionalFields).
		Map()
}

// UpdateFlow applies a partial update to a deployed flow.
func (c *Client) UpdateFlow(ctx context.Context, flowID string, req UpdateFlowRequest) (*transport.Response, error) {
	log.Infof("flows: updating flow %s", flowID)
	return c.Put(ctx, "flows/"+flowID, nil, req.body(), transport.EncodingJSON)
}

// DeleteFlow removes a deployed flow.
func (c *Client) DeleteFlow(ctx context.Context, flowID string) (*transport.Response, error) {
	log.Infof("flows: deleting flow %s", flowID)
	return c.Delete(ctx, "flows/"+flowID, nil)
}

// ListRunsOptions filters a run listing.
type ListRunsOptions struct {
	// FilterFlowID restricts the listing to runs of the given flows.
	FilterFlowID []string
	// FilterStatus restricts the listing to runs in the given statuses.
	FilterStatus []string
	// Marker requests a specific page from a previous listing.
	Marker string
	// QueryParams holds additional raw query parameters.
	QueryParams url.Values
}

func (o *ListRunsOptions) values() url.Values {
	params := url.Values{}
	if o == nil {
		return params
	}
	for key, values := range o.QueryParams {
		params[key] = values
	}
	if len(o.FilterFlowID) > 0 {
		params.Set("filter_flow_id", commaJoin(o.FilterFlowID))
	}
	if len(o.FilterStatus) > 0 {
		params.Set("filter_status", commaJoin(o.FilterStatus))
	}
	if o.Marker != "" {
		params.Set("marker", o.Marker)
	}
	return params
}

// ListRuns fetches one page of runs, nested under "runs".
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOptions) (*transport.Response, error) {
	return c.Get(ctx, "runs", opts.values())
}

// ListRunsPaginated returns a fresh paginator over the full run listing.
func (c *Client) ListRunsPaginated(opts *ListRunsOptions) *paging.MarkerPaginator {
	return paging.NewMarkerPaginator(c.pageFetcher("runs"), paging.MarkerOptions{
		Params:   opts.values(),
		ItemsKey: "runs",
	})
}

// GetRun fetches one run by ID.
func (c *Client) GetRun(ctx context.Context, runID string) (*transport.Response, error) {
	return c.Get(ctx, "runs/"+runID, nil)
}

// GetRunDefinition fetches the flow definition and input schema as they
// were at the time the run started.
func (c *Client) GetRunDefinition(ctx context.Context, runID string) (*transport.Response, error) {
	return c.Get(ctx, "runs/"+runID+"/definition", nil)
}

// GetRunLogsOptions selects a page of run log entries.
type GetRunLogsOptions struct {
	// Limit bounds the number of entries per page.
	Limit int
	// ReverseOrder returns entries newest-first.
	ReverseOrder bool
	// Marker requests a specific page from a previous listing.
	Marker string
}

func (o *GetRunLogsOptions) values() url.Values {
	params := url.Values{}
	if o == nil {
		return params
	}
	if o.Limit > 0 {
		params.Set("per_page", fmt.Sprintf("%d", o.Limit))
	}
	if o.ReverseOrder {
		params.Set("reverse_order", "true")
	}
	if o.Marker != "" {
		params.Set("marker", o.Marker)
	}
	return params
}

// GetRunLogs fetches one page of execution log entries for a run, nested
// under "entries".
func (c *Client) GetRunLogs(ctx context.Context, runID string, opts *GetRunLogsOptions) (*transport.Response, error) {
	return c.Get(ctx, "runs/"+runID+"/log", opts.values())
}

// GetRunLogsPaginated returns a fresh paginator over the full run log.
func (c *Client) GetRunLogsPaginated(runID string, opts *GetRunLogsOptions) *paging.MarkerPaginator {
	return paging.NewMarkerPaginator(c.pageFetcher("runs/"+runID+"/log"), paging.MarkerOptions{
		Params:   opts.values(),
		ItemsKey: "entries",
	})
}

// CancelRun requests cancellation of an active run.
func (c *Client) CancelRun(ctx context.Context, runID string) (*transport.Response, error) {
	log.Infof("flows: cancelling run %s", runID)
	return c.Post(ctx, "runs/"+runID+"/cancel", nil, nil, "")
}

// UpdateRunRequest carries the metadata fields to change on a run.
type UpdateRunRequest struct {
	// Label is a short human-readable title for the run.
	Label string
	// Tags replace the run's tag list.
	Tags []string
	// RunMonitors replace the principals that may monitor the run.
	RunMonitors []string
	// RunManagers replace the principals that may manage the run.
	RunManagers []string
	// AdditionalFields is merged into the request body last.
	AdditionalFields map[string]any
}

// UpdateRun updates a run's metadata.
func (c *Client) UpdateRun(ctx context.Context, runID string, req UpdateRunRequest) (*transport.Response, error) {
	log.Infof("flows: updating run %s", runID)
	body := newPayload().
		setOptionalString("label", req.Label).
		setOptionalStringSlice("tags", req.Tags).
		setOptionalStringSlice("run_monitors", req.RunMonitors).
		setOptionalStringSlice("run_managers", req.RunManagers).
		merge(req.AdditionalFields).
		Map()
	return c.Put(ctx, "runs/"+runID, nil, body, transport.EncodingJSON)
}

// DeleteRun releases a completed run, removing it from the service.
func (c *Client) DeleteRun(ctx context.Context, runID string) (*transport.Response, error) {
	log.Infof("flows: releasing run %s", runID)
	return c.Post(ctx, "runs/"+runID+"/release", nil, nil, "")
}

// pageFetcher binds a GET path into the shape consumed by paginators.
func (c *Client) pageFetcher(path string) paging.PageFetcher {
	return func(ctx context.Context, params url.Values) (*transport.Response, error) {
		return c.Get(ctx, path, params)
	}
}

func commaJoin(values []string) string {
	return strings.Join(values, ",")
}
