// Package quiq is the messaging platform client: conversation lookup and
// queue transfer.
package quiq

import (
	"context"
	"fmt"
	"net/url"

	"github.com/steveyegge/dupesweep/internal/transport"
	"github.com/steveyegge/dupesweep/internal/types"
)

// Config identifies the Quiq tenant and API key pair
type Config struct {
	Domain   string `yaml:"domain"` // e.g. "acme.goquiq.com"
	Identity string `yaml:"identity"`
	Secret   string `yaml:"secret"`
}

// Validate checks that all fields are present
func (c Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("quiq domain is required")
	}
	if c.Identity == "" || c.Secret == "" {
		return fmt.Errorf("quiq api key identity and secret are required")
	}
	return nil
}

// Client talks to the Quiq messaging API
type Client struct {
	http *transport.Client
}

// New creates a Quiq client
func New(cfg Config, tcfg transport.Config, opts ...transport.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds := transport.Credentials{Username: cfg.Identity, Password: cfg.Secret}
	hc, err := transport.New("quiq", cfg.Domain, creds, tcfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

type sendToQueueRequest struct {
	TargetQueue              string `json:"targetQueue"`
	AwaitingCustomerResponse bool   `json:"awaitingCustomerResponse"`
}

// GetConversation fetches the current state of a conversation
func (c *Client) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("quiq: conversation id is required")
	}
	var conv types.Conversation
	if err := c.http.Get(ctx, "/api/v1/messaging/conversation/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		conv.ID = id
	}
	return &conv, nil
}

// SendToQueue moves a conversation to queue without waiting on the customer
func (c *Client) SendToQueue(ctx context.Context, id, queue string) error {
	if id == "" || queue == "" {
		return fmt.Errorf("quiq: conversation id and queue are required")
	}
	body := sendToQueueRequest{TargetQueue: queue, AwaitingCustomerResponse: false}
	return c.http.Post(ctx, "/api/v1/messaging/conversations/"+url.PathEscape(id)+"/send-to-queue", body, nil)
}
