package paging

import (
	"context"

	"github.com/tidwall/gjson"

	sdkerrors "github.com/globus/globus-sdk-go/sdk/errors"
)

// ItemIterator is the flattened item-level view over a paginator. It shares
// the underlying cursor: advancing items consumes pages, and a paginator
// must not be iterated at both levels at once.
type ItemIterator struct {
	pager   Paginator
	current []gjson.Result
	index   int
	item    gjson.Result
	err     error
}

func newItemIterator(pager Paginator) *ItemIterator {
	return &ItemIterator{pager: pager, index: -1}
}

// Next advances to the next item, fetching further pages as needed. It
// returns false at the end of the listing or on a page-fetch failure; items
// already yielded from earlier pages are unaffected by a later failure.
func (it *ItemIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.pager.ItemsKey() == "" {
		it.err = sdkerrors.NewUsageError("cannot iterate items on a paginator without an items key")
		return false
	}
	for {
		it.index++
		if it.index < len(it.current) {
			it.item = it.current[it.index]
			return true
		}
		if !it.pager.Next(ctx) {
			it.err = it.pager.Err()
			return false
		}
		it.current = pageItems(it.pager.Page(), it.pager.ItemsKey())
		it.index = -1
	}
}

// Item returns the item produced by the last successful Next call.
func (it *ItemIterator) Item() gjson.Result { return it.item }

// Err returns the error that ended iteration, if any.
func (it *ItemIterator) Err() error { return it.err }
