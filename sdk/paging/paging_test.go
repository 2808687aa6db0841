package paging

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/tidwall/sjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// pageBody builds one page document with the given item IDs plus extra
// top-level cursor fields.
func pageBody(t *testing.T, itemsKey string, ids []string, extra map[string]any) string {
	t.Helper()
	body := "{}"
	var err error
	for i, id := range ids {
		if body, err = sjson.Set(body, fmt.Sprintf("%s.%d.id", itemsKey, i), id); err != nil {
			t.Fatal(err)
		}
	}
	for key, value := range extra {
		if body, err = sjson.Set(body, key, value); err != nil {
			t.Fatal(err)
		}
	}
	return body
}

// fetcherFromBodies binds a PageFetcher to a fixed page script, recording the
// query parameters of each call.
func fetcherFromBodies(t *testing.T, bodies []string, calls *[]url.Values) PageFetcher {
	t.Helper()
	call := 0
	return func(ctx context.Context, params url.Values) (*transport.Response, error) {
		if call >= len(bodies) {
			t.Fatalf("unexpected page fetch #%d with params %v", call+1, params)
		}
		if calls != nil {
			*calls = append(*calls, cloneValues(params))
		}
		body := bodies[call]
		call++
		return &transport.Response{StatusCode: 200, Body: []byte(body)}, nil
	}
}

func collectItems(t *testing.T, it *ItemIterator) []string {
	t.Helper()
	var out []string
	for it.Next(context.Background()) {
		out = append(out, it.Item().Get("id").String())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	return out
}

func TestMarkerPaginatorWalksMarkers(t *testing.T) {
	bodies := []string{
		`{"flows": [{"id": "a"}, {"id": "b"}], "marker": "m1", "has_next_page": true}`,
		`{"flows": [{"id": "c"}], "marker": "m2", "has_next_page": true}`,
		`{"flows": [{"id": "d"}], "marker": null, "has_next_page": false}`,
	}
	var calls []url.Values
	pager := NewMarkerPaginator(fetcherFromBodies(t, bodies, &calls), MarkerOptions{
		Params:   url.Values{"filter_role": []string{"flow_owner"}},
		ItemsKey: "flows",
	})

	var pages int
	for pager.Next(context.Background()) {
		pages++
	}
	if err := pager.Err(); err != nil {
		t.Fatal(err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}

	// the first call carries no marker; later calls echo the previous one
	if calls[0].Has("marker") {
		t.Errorf("first call should not send a marker: %v", calls[0])
	}
	if calls[1].Get("marker") != "m1" || calls[2].Get("marker") != "m2" {
		t.Errorf("marker echo broken: %v", calls)
	}
	// the caller's filter survives on every call
	for i, c := range calls {
		if c.Get("filter_role") != "flow_owner" {
			t.Errorf("call %d lost filter_role: %v", i, c)
		}
	}
}

func TestMarkerPaginatorNullMarkerEnds(t *testing.T) {
	// no has_next_page at all: a null marker alone ends the listing,
	// but the final page is still yielded. the scripted fetcher fails the
	// test if a call past page 3 ever happens.
	bodies := []string{
		`{"runs": [{"id": "r1"}], "marker": "m1"}`,
		`{"runs": [{"id": "r2"}], "marker": "m2"}`,
		`{"runs": [{"id": "r3"}], "marker": null}`,
	}
	pager := NewMarkerPaginator(fetcherFromBodies(t, bodies, nil), MarkerOptions{ItemsKey: "runs"})

	var ids []string
	for pager.Next(context.Background()) {
		for _, item := range pageItems(pager.Page(), "runs") {
			ids = append(ids, item.Get("id").String())
		}
	}
	if len(ids) != 3 || ids[2] != "r3" {
		t.Errorf("ids = %v, want all three pages' items", ids)
	}
	if pager.Err() != nil {
		t.Fatal(pager.Err())
	}
	// exhausted paginators stay exhausted
	if pager.Next(context.Background()) {
		t.Error("Next after exhaustion should stay false")
	}
}

func TestMarkerPaginatorHasNextWithoutMarker(t *testing.T) {
	bodies := []string{
		`{"entries": [{"id": "e1"}], "has_next_page": true}`,
		`{"entries": [{"id": "e2"}], "has_next_page": false}`,
	}
	var calls []url.Values
	pager := NewMarkerPaginator(fetcherFromBodies(t, bodies, &calls), MarkerOptions{ItemsKey: "entries"})

	var pages int
	for pager.Next(context.Background()) {
		pages++
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
	if calls[1].Has("marker") {
		t.Errorf("no marker was given, none should be sent: %v", calls[1])
	}
}

func TestMarkerPaginatorFetchError(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	call := 0
	pager := NewMarkerPaginator(func(ctx context.Context, params url.Values) (*transport.Response, error) {
		call++
		if call == 1 {
			return &transport.Response{StatusCode: 200, Body: []byte(`{"flows": [], "marker": "m1"}`)}, nil
		}
		return nil, boom
	}, MarkerOptions{ItemsKey: "flows"})

	ctx := context.Background()
	if !pager.Next(ctx) {
		t.Fatal("first page should succeed")
	}
	if pager.Next(ctx) {
		t.Fatal("second page should fail")
	}
	if pager.Err() != boom {
		t.Errorf("Err = %v, want the fetch error", pager.Err())
	}
	if pager.Next(ctx) {
		t.Error("a failed paginator should stay stopped")
	}
}

func TestItemIteratorFlattens(t *testing.T) {
	bodies := []string{
		`{"flows": [{"id": "a"}, {"id": "b"}], "marker": "m1"}`,
		`{"flows": [], "marker": "m2"}`,
		`{"flows": [{"id": "c"}]}`,
	}
	pager := NewMarkerPaginator(fetcherFromBodies(t, bodies, nil), MarkerOptions{ItemsKey: "flows"})
	got := collectItems(t, pager.Items())
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestItemIteratorOrderMatchesPages(t *testing.T) {
	bodies := []string{
		`{"flows": [{"id": "a"}, {"id": "b"}], "marker": "m1"}`,
		`{"flows": [{"id": "c"}, {"id": "d"}]}`,
	}
	pagePager := NewMarkerPaginator(fetcherFromBodies(t, bodies, nil), MarkerOptions{ItemsKey: "flows"})
	var fromPages []string
	for pagePager.Next(context.Background()) {
		for _, item := range pageItems(pagePager.Page(), "flows") {
			fromPages = append(fromPages, item.Get("id").String())
		}
	}

	itemPager := NewMarkerPaginator(fetcherFromBodies(t, bodies, nil), MarkerOptions{ItemsKey: "flows"})
	fromItems := collectItems(t, itemPager.Items())

	if len(fromPages) != len(fromItems) {
		t.Fatalf("page walk %v vs item walk %v", fromPages, fromItems)
	}
	for i := range fromPages {
		if fromPages[i] != fromItems[i] {
			t.Fatalf("page walk %v vs item walk %v", fromPages, fromItems)
		}
	}
}

func TestItemIteratorRequiresItemsKey(t *testing.T) {
	pager := NewMarkerPaginator(fetcherFromBodies(t, nil, nil), MarkerOptions{})
	it := pager.Items()
	if it.Next(context.Background()) {
		t.Fatal("Next should fail without an items key")
	}
	if !sdkerrors.IsUsageError(it.Err()) {
		t.Errorf("Err = %v, want a UsageError", it.Err())
	}
}

func TestHasNextPaginator(t *testing.T) {
	bodies := []string{
		pageBody(t, "items", []string{"a", "b"}, map[string]any{"has_next_page": true}),
		pageBody(t, "items", []string{"c"}, map[string]any{"has_next_page": false}),
	}
	var calls []url.Values
	pager := NewHasNextPaginator(fetcherFromBodies(t, bodies, &calls), LimitOffsetOptions{
		ItemsKey: "items",
		PageSize: 2,
	})

	got := collectItems(t, pager.Items())
	if len(got) != 3 {
		t.Errorf("items = %v, want 3", got)
	}
	if calls[0].Get("limit") != "2" || calls[0].Get("offset") != "0" {
		t.Errorf("first call params: %v", calls[0])
	}
	if calls[1].Get("offset") != "2" {
		t.Errorf("offset should advance by item count: %v", calls[1])
	}
}

func TestHasNextPaginatorShortPageFallback(t *testing.T) {
	// no has_next_page field: a short page means the end
	bodies := []string{
		`{"items": [{"id": "a"}]}`,
	}
	pager := NewHasNextPaginator(fetcherFromBodies(t, bodies, nil), LimitOffsetOptions{
		ItemsKey: "items",
		PageSize: 10,
	})
	var pages int
	for pager.Next(context.Background()) {
		pages++
	}
	if pages != 1 || pager.Err() != nil {
		t.Errorf("pages = %d, err = %v", pages, pager.Err())
	}
}

func TestHasNextPaginatorMaxTotalResults(t *testing.T) {
	bodies := []string{
		`{"items": [{"id": "a"}, {"id": "b"}], "has_next_page": true}`,
		`{"items": [{"id": "c"}], "has_next_page": true}`,
	}
	var calls []url.Values
	pager := NewHasNextPaginator(fetcherFromBodies(t, bodies, &calls), LimitOffsetOptions{
		ItemsKey:        "items",
		PageSize:        2,
		MaxTotalResults: 3,
	})
	got := collectItems(t, pager.Items())
	if len(got) != 3 {
		t.Errorf("items = %v, want the capped 3", got)
	}
	// the final page request only asks for the remainder
	if calls[1].Get("limit") != "1" {
		t.Errorf("capped limit should shrink: %v", calls[1])
	}
}

func TestLimitOffsetTotalPaginator(t *testing.T) {
	bodies := []string{
		pageBody(t, "items", []string{"a", "b"}, map[string]any{"total": 3}),
		pageBody(t, "items", []string{"c"}, map[string]any{"total": 3}),
	}
	pager := NewLimitOffsetTotalPaginator(fetcherFromBodies(t, bodies, nil), LimitOffsetOptions{
		ItemsKey: "items",
		PageSize: 2,
	})
	got := collectItems(t, pager.Items())
	if len(got) != 3 {
		t.Errorf("items = %v, want 3", got)
	}
}

func TestMarkerPaginatorMaxPages(t *testing.T) {
	bodies := []string{
		`{"flows": [{"id": "a"}], "marker": "m1"}`,
		`{"flows": [{"id": "b"}], "marker": "m2"}`,
	}
	pager := NewMarkerPaginator(fetcherFromBodies(t, bodies, nil), MarkerOptions{
		ItemsKey: "flows",
		MaxPages: 2,
	})
	var pages int
	for pager.Next(context.Background()) {
		pages++
	}
	if pages != 2 || pager.Err() != nil {
		t.Errorf("pages = %d, err = %v; the cap should stop a live cursor", pages, pager.Err())
	}
}

func TestOffsetPaginatorRequiresItemsKey(t *testing.T) {
	pager := NewHasNextPaginator(fetcherFromBodies(t, nil, nil), LimitOffsetOptions{})
	if pager.Next(context.Background()) {
		t.Fatal("Next should fail without an items key")
	}
	if !sdkerrors.IsUsageError(pager.Err()) {
		t.Errorf("Err = %v, want a UsageError", pager.Err())
	}
}

func TestCloneValuesIsolation(t *testing.T) {
	original := url.Values{"limit": []string{"5"}}
	cloned := cloneValues(original)
	cloned.Set("marker", "m1")
	if original.Has("marker") {
		t.Error("paginator cursor fields must not leak into the caller's params")
	}
}
