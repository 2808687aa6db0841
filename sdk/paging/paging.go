// Package paging turns single-page Globus list endpoints into lazy,
// single-pass sequences of pages or of flattened items. A paginator owns the
// evolving cursor state (an opaque server marker, or a numeric offset) and
// fetches one page at a time; it never buffers more than the current page,
// never reorders items, and never retries a failed fetch.
//
// Iteration is scanner-style:
//
//	pager := paging.NewMarkerPaginator(fetch, paging.MarkerOptions{ItemsKey: "flows"})
//	for pager.Next(ctx) {
//		page := pager.Page()
//		...
//	}
//	if err := pager.Err(); err != nil {
//		...
//	}
//
// A paginator cannot rewind. To list again from the start, obtain a fresh
// paginator from the originating client method.
package paging

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
	"github.com/globus/globus-sdk-go/sdk/transport"
)

// PageFetcher issues one page request with the paginator's current query
// parameters and returns the decoded page. List methods on service clients
// bind themselves to this shape when constructing paginators.
type PageFetcher func(ctx context.Context, params url.Values) (*transport.Response, error)

// Paginator is the common contract of all pagination styles: produce the
// next page or signal exhaustion. Page is only valid after a true Next, and
// Err is only meaningful once Next has returned false.
type Paginator interface {
	Next(ctx context.Context) bool
	Page() *transport.Response
	Err() error
	// ItemsKey names the array within each page holding the items, or ""
	// when the paginator has no item-level view.
	ItemsKey() string
}

// cloneValues copies query parameters so that cursor fields set by the
// paginator never leak into the caller's map.
func cloneValues(params url.Values) url.Values {
	out := url.Values{}
	for key, values := range params {
		for _, value := range values {
			out.Add(key, value)
		}
	}
	return out
}

// pageItems extracts the items array from a page body. A missing key yields
// an empty slice rather than an error so that short final pages and pages
// with omitted empty arrays behave alike.
func pageItems(page *transport.Response, itemsKey string) []gjson.Result {
	items := page.Get(itemsKey)
	if !items.IsArray() {
		return nil
	}
	return items.Array()
}

// MarkerOptions configures a MarkerPaginator.
type MarkerOptions struct {
	// Params holds the initial query parameters, applied to every page call.
	Params url.Values
	// ItemsKey names the array within each page holding the items.
	ItemsKey string
	// MarkerKey is the body field carrying the next-page cursor.
	// Defaults to "marker".
	MarkerKey string
	// ParamName is the query parameter echoing the cursor back to the
	// server. Defaults to the marker key.
	ParamName string
	// MaxPages caps the number of pages fetched. Zero means unbounded.
	MaxPages int
}

// MarkerPaginator pages through endpoints that return an opaque cursor in
// each page body. The cursor is echoed back as a query parameter on the next
// call; a page without a cursor (and without has_next_page: true) is the
// last one.
type MarkerPaginator struct {
	fetch     PageFetcher
	params    url.Values
	itemsKey  string
	markerKey string
	paramName string

	marker   string
	page     *transport.Response
	pages    int
	maxPages int
	err      error
	done     bool
}

// NewMarkerPaginator creates a marker-style paginator over a bound page
// fetch operation.
func NewMarkerPaginator(fetch PageFetcher, opts MarkerOptions) *MarkerPaginator {
	markerKey := opts.MarkerKey
	if markerKey == "" {
		markerKey = "marker"
	}
	paramName := opts.ParamName
	if paramName == "" {
		paramName = markerKey
	}
	return &MarkerPaginator{
		fetch:     fetch,
		params:    cloneValues(opts.Params),
		itemsKey:  opts.ItemsKey,
		markerKey: markerKey,
		paramName: paramName,
		maxPages:  opts.MaxPages,
	}
}

// Next fetches the next page. It returns false once the server signals the
// end of the listing or a fetch fails; check Err to distinguish.
func (p *MarkerPaginator) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	params := cloneValues(p.params)
	if p.marker != "" {
		params.Set(p.paramName, p.marker)
	}

	page, err := p.fetch(ctx, params)
	if err != nil {
		p.err = err
		p.done = true
		return false
	}
	p.page = page
	p.pages++
	if p.maxPages > 0 && p.pages >= p.maxPages {
		p.done = true
		return true
	}

	// a non-null marker, or an explicit has_next_page, keeps the cursor alive
	marker := page.Get(p.markerKey)
	hasNext := page.Get("has_next_page")
	switch {
	case hasNext.Exists() && !hasNext.Bool():
		p.done = true
	case marker.Exists() && marker.Type == gjson.String && marker.String() != "":
		p.marker = marker.String()
	case hasNext.Exists() && hasNext.Bool():
		// server promised another page without a marker; repeat the call
	default:
		p.done = true
	}
	return true
}

// Page returns the page produced by the last successful Next call.
func (p *MarkerPaginator) Page() *transport.Response { return p.page }

// Err returns the error that ended iteration, if any.
func (p *MarkerPaginator) Err() error { return p.err }

// ItemsKey names the per-page items array.
func (p *MarkerPaginator) ItemsKey() string { return p.itemsKey }

// Items returns the flattened item-level view over this paginator's cursor.
func (p *MarkerPaginator) Items() *ItemIterator { return newItemIterator(p) }

// LimitOffsetOptions configures the offset-based paginators.
type LimitOffsetOptions struct {
	// Params holds the initial query parameters, applied to every page call.
	Params url.Values
	// ItemsKey names the array within each page holding the items. It is
	// required for offset paginators, which count items to advance.
	ItemsKey string
	// PageSize is the limit requested per page.
	PageSize int
	// MaxTotalResults caps the total number of items fetched across pages.
	// Zero means unbounded.
	MaxTotalResults int
	// MaxPages caps the number of pages fetched. Zero means unbounded.
	MaxPages int
}

// limitOffsetPaginator holds the cursor mechanics shared by the offset
// styles: request limit/offset, advance offset by the page's item count.
type limitOffsetPaginator struct {
	fetch           PageFetcher
	params          url.Values
	itemsKey        string
	limit           int
	offset          int
	maxTotalResults int
	maxPages        int

	page  *transport.Response
	pages int
	err   error
	done  bool
}

func (p *limitOffsetPaginator) fetchPage(ctx context.Context) bool {
	if p.itemsKey == "" {
		p.err = sdkerrors.NewUsageError("offset pagination requires ItemsKey to count page items")
		p.done = true
		return false
	}

	limit := p.limit
	if p.maxTotalResults > 0 && p.offset+limit > p.maxTotalResults {
		limit = p.maxTotalResults - p.offset
	}

	params := cloneValues(p.params)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(p.offset))

	page, err := p.fetch(ctx, params)
	if err != nil {
		p.err = err
		p.done = true
		return false
	}
	p.page = page
	p.pages++
	p.offset += len(pageItems(page, p.itemsKey))
	if p.maxTotalResults > 0 && p.offset >= p.maxTotalResults {
		p.done = true
	}
	if p.maxPages > 0 && p.pages >= p.maxPages {
		p.done = true
	}
	return true
}

func (p *limitOffsetPaginator) Page() *transport.Response { return p.page }
func (p *limitOffsetPaginator) Err() error                { return p.err }
func (p *limitOffsetPaginator) ItemsKey() string          { return p.itemsKey }

// HasNextPaginator pages offset-style endpoints that report an explicit
// has_next_page flag. Endpoints omitting the flag terminate on the first
// short page instead.
type HasNextPaginator struct {
	limitOffsetPaginator
}

// NewHasNextPaginator creates an offset-style paginator driven by the
// has_next_page field.
func NewHasNextPaginator(fetch PageFetcher, opts LimitOffsetOptions) *HasNextPaginator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &HasNextPaginator{limitOffsetPaginator{
		fetch:           fetch,
		params:          cloneValues(opts.Params),
		itemsKey:        opts.ItemsKey,
		limit:           pageSize,
		maxTotalResults: opts.MaxTotalResults,
		maxPages:        opts.MaxPages,
	}}
}

// Next fetches the next page, advancing the offset by the page's item count.
func (p *HasNextPaginator) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	before := p.offset
	if !p.fetchPage(ctx) {
		return false
	}
	hasNext := p.page.Get("has_next_page")
	if hasNext.Exists() {
		if !hasNext.Bool() {
			p.done = true
		}
	} else if p.offset-before < p.limit {
		p.done = true
	}
	return true
}

// Items returns the flattened item-level view over this paginator's cursor.
func (p *HasNextPaginator) Items() *ItemIterator { return newItemIterator(p) }

// LimitOffsetTotalPaginator pages offset-style endpoints that report the
// total result count in each page; iteration stops when the offset reaches
// that total.
type LimitOffsetTotalPaginator struct {
	limitOffsetPaginator
}

// NewLimitOffsetTotalPaginator creates an offset-style paginator driven by
// the per-page total field.
func NewLimitOffsetTotalPaginator(fetch PageFetcher, opts LimitOffsetOptions) *LimitOffsetTotalPaginator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &LimitOffsetTotalPaginator{limitOffsetPaginator{
		fetch:           fetch,
		params:          cloneValues(opts.Params),
		itemsKey:        opts.ItemsKey,
		limit:           pageSize,
		maxTotalResults: opts.MaxTotalResults,
		maxPages:        opts.MaxPages,
	}}
}

// Next fetches the next page, stopping once the offset reaches the total
// reported by the server.
func (p *LimitOffsetTotalPaginator) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if !p.fetchPage(ctx) {
		return false
	}
	if int64(p.offset) >= p.page.Get("total").Int() {
		p.done = true
	}
	return true
}

// Items returns the flattened item-level view over this paginator's cursor.
func (p *LimitOffsetTotalPaginator) Items() *ItemIterator { return newItemIterator(p) }
