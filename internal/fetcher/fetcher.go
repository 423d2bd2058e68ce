// Package fetcher assembles the set of recently opened, still-open tickets
// by splitting one unbounded search into many disjoint age windows. Each
// window's result count stays under the search API's per-query cap.
package fetcher

import (
	"context"
	"fmt"

	"github.com/steveyegge/dupesweep/internal/types"
)

// PageSource fetches one page of search results. An empty next requests the
// first page for query; a non-empty next is the opaque link returned by the
// previous page. The returned link is empty on the last page.
type PageSource interface {
	SearchPage(ctx context.Context, query, next string) ([]*types.Ticket, string, error)
}

// RetrievalError aborts a run: partial snapshots are never acted upon
type RetrievalError struct {
	Query string
	Page  int
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to fetch tickets (query %q, page %d): %v", e.Query, e.Page, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Pager is a lazy sequence of result pages for one query
type Pager struct {
	source  PageSource
	query   string
	next    string
	page    int
	started bool
	done    bool
}

// NewPager creates a pager over query
func NewPager(source PageSource, query string) *Pager {
	return &Pager{source: source, query: query}
}

// Done reports whether every page has been consumed
func (p *Pager) Done() bool { return p.done }

// Next fetches the next page. Calling Next after Done returns nil, nil.
func (p *Pager) Next(ctx context.Context) ([]*types.Ticket, error) {
	if p.done {
		return nil, nil
	}
	if p.started && p.next == "" {
		p.done = true
		return nil, nil
	}
	p.page++
	tickets, next, err := p.source.SearchPage(ctx, p.query, p.next)
	if err != nil {
		return nil, &RetrievalError{Query: p.query, Page: p.page, Err: err}
	}
	p.started = true
	p.next = next
	if next == "" {
		p.done = true
	}
	return tickets, nil
}

// Progress is called after each window completes
type Progress func(w Window, fetched, total int)

// Fetcher runs the windowed search
type Fetcher struct {
	source   PageSource
	windows  []Window
	base     string
	progress Progress
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithWindows overrides the default window set
func WithWindows(windows []Window) Option {
	return func(f *Fetcher) { f.windows = windows }
}

// WithProgress installs a per-window progress callback
func WithProgress(p Progress) Option {
	return func(f *Fetcher) { f.progress = p }
}

// New creates a Fetcher over source
func New(source PageSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:  source,
		windows: Windows(),
		base:    BaseQuery,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchOpen returns every open ticket in the window set, in query order.
// Any failed page, or a page carrying a malformed ticket, aborts the whole
// fetch with a *RetrievalError.
//
// Windows are disjoint, but a ticket can still show up twice if the search
// index shifts between two queries; later copies are dropped.
func (f *Fetcher) FetchOpen(ctx context.Context) ([]*types.Ticket, error) {
	var all []*types.Ticket
	seen := make(map[int64]bool)

	for _, w := range f.windows {
		pager := NewPager(f.source, w.Query(f.base))
		fetched := 0
		for !pager.Done() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := pager.Next(ctx)
			if err != nil {
				return nil, err
			}
			for _, t := range page {
				if t == nil || seen[t.ID] {
					continue
				}
				if err := t.Validate(); err != nil {
					return nil, &RetrievalError{Query: pager.query, Page: pager.page, Err: err}
				}
				seen[t.ID] = true
				all = append(all, t)
				fetched++
			}
		}
		if f.progress != nil {
			f.progress(w, fetched, len(all))
		}
	}
	return all, nil
}
