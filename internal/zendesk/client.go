// Package zendesk is the ticket source client: search with pagination,
// ticket reads and updates, and comment listing.
package zendesk

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/steveyegge/dupesweep/internal/transport"
	"github.com/steveyegge/dupesweep/internal/types"
)

const (
	searchPath = "/api/v2/search.json"
)

// Config identifies the Zendesk account
type Config struct {
	Domain string `yaml:"domain"` // e.g. "acme.zendesk.com"
	Email  string `yaml:"email"`  // agent email; the API token is sent as "{email}/token"
	Token  string `yaml:"token"`
}

// Validate checks that all fields are present
func (c Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("zendesk domain is required")
	}
	if c.Email == "" {
		return fmt.Errorf("zendesk email is required")
	}
	if c.Token == "" {
		return fmt.Errorf("zendesk api token is required")
	}
	return nil
}

// Client talks to the Zendesk REST API
type Client struct {
	http *transport.Client
}

// New creates a Zendesk client
func New(cfg Config, tcfg transport.Config, opts ...transport.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds := transport.Credentials{Username: cfg.Email + "/token", Password: cfg.Token}
	hc, err := transport.New("zendesk", cfg.Domain, creds, tcfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

type searchResponse struct {
	Results  []*types.Ticket `json:"results"`
	NextPage *string         `json:"next_page"`
	Count    int             `json:"count"`
}

type ticketEnvelope struct {
	Ticket *types.Ticket `json:"ticket"`
}

type updateEnvelope struct {
	Ticket types.TicketUpdate `json:"ticket"`
}

type commentsResponse struct {
	Comments []types.Comment `json:"comments"`
	NextPage *string         `json:"next_page"`
}

// SearchPage fetches one page of search results. An empty next fetches the
// first page for query; otherwise next is the opaque next_page link from
// the previous page and query is ignored. The returned link is empty on the
// last page.
func (c *Client) SearchPage(ctx context.Context, query, next string) ([]*types.Ticket, string, error) {
	var resp searchResponse
	var err error
	if next == "" {
		err = c.http.Get(ctx, searchPath, url.Values{"query": {query}}, &resp)
	} else {
		err = c.http.Get(ctx, next, nil, &resp)
	}
	if err != nil {
		return nil, "", err
	}
	return resp.Results, deref(resp.NextPage), nil
}

// GetTicket fetches a single ticket
func (c *Client) GetTicket(ctx context.Context, id int64) (*types.Ticket, error) {
	var env ticketEnvelope
	if err := c.http.Get(ctx, ticketPath(id), nil, &env); err != nil {
		return nil, err
	}
	if env.Ticket == nil {
		return nil, fmt.Errorf("zendesk: ticket %d missing from response", id)
	}
	return env.Ticket, nil
}

// UpdateTicket applies a partial update. A failed update returns a
// *transport.RequestError carrying the status code and body.
func (c *Client) UpdateTicket(ctx context.Context, id int64, update types.TicketUpdate) error {
	return c.http.Put(ctx, ticketPath(id), updateEnvelope{Ticket: update}, nil)
}

// ListComments returns every comment on the ticket, oldest first
func (c *Client) ListComments(ctx context.Context, id int64) ([]types.Comment, error) {
	var all []types.Comment
	next := fmt.Sprintf("/api/v2/tickets/%d/comments.json", id)
	for next != "" {
		var resp commentsResponse
		if err := c.http.Get(ctx, next, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Comments...)
		next = deref(resp.NextPage)
	}
	return all, nil
}

// ListPublicComments returns the creation times of customer-visible
// comments, oldest first
func (c *Client) ListPublicComments(ctx context.Context, id int64) ([]time.Time, error) {
	comments, err := c.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	var times []time.Time
	for _, cm := range comments {
		if cm.Public {
			times = append(times, cm.CreatedAt.Time)
		}
	}
	return times, nil
}

// LastPublicCommentTime returns the most recent customer-visible activity
func (c *Client) LastPublicCommentTime(ctx context.Context, id int64) (time.Time, bool, error) {
	times, err := c.ListPublicComments(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(times) == 0 {
		return time.Time{}, false, nil
	}
	return times[len(times)-1], true, nil
}

func ticketPath(id int64) string {
	return fmt.Sprintf("/api/v2/tickets/%d.json", id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
