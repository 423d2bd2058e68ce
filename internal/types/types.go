package types

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is a helpdesk ticket as returned by the ticket source's search API.
// Identifiers is derived locally from Subject and never sent back.
type Ticket struct {
	ID          int64        `json:"id"`
	Status      TicketStatus `json:"status"`
	CreatedAt   Timestamp    `json:"created_at"`
	Subject     string       `json:"subject"`
	Tags        []string     `json:"tags"`
	Identifiers Identifiers  `json:"-"`
}

// Validate checks if the ticket has the fields the pipeline relies on
func (t *Ticket) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("ticket id must be positive (got %d)", t.ID)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("ticket %d: invalid status: %q", t.ID, t.Status)
	}
	return nil
}

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	StatusNew     TicketStatus = "new"
	StatusOpen    TicketStatus = "open"
	StatusPending TicketStatus = "pending"
	StatusHold    TicketStatus = "hold"
	StatusSolved  TicketStatus = "solved"
	StatusClosed  TicketStatus = "closed"
)

// IsValid checks if the status value is valid
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusOpen, StatusPending, StatusHold, StatusSolved, StatusClosed:
		return true
	}
	return false
}

// Display returns the status with its first letter upper-cased ("open" -> "Open")
func (s TicketStatus) Display() string {
	return Capitalize(string(s))
}

// Identifiers are the values embedded in a ticket subject line.
// Empty strings mean absent.
type Identifiers struct {
	BookingID      string `json:"booking_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SecondaryID    string `json:"secondary_id,omitempty"`
}

// HasBooking reports whether a booking id was extracted
func (i Identifiers) HasBooking() bool { return i.BookingID != "" }

// HasConversation reports whether a conversation id was extracted
func (i Identifiers) HasConversation() bool { return i.ConversationID != "" }

// TicketUpdate is a partial ticket update. Nil/empty fields are not sent.
type TicketUpdate struct {
	Tags   []string     `json:"tags,omitempty"`
	Status TicketStatus `json:"status,omitempty"`
}

// ConversationStatus is the messaging platform's conversation state
type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "Open"
	ConversationClosed ConversationStatus = "Closed"
)

// Display returns a printable status, "Unknown" when empty
func (s ConversationStatus) Display() string {
	if s == "" {
		return "Unknown"
	}
	return Capitalize(string(s))
}

// Conversation is a snapshot of a live-chat conversation. It is fetched on
// demand for a single ticket and never cached.
type Conversation struct {
	ID        string             `json:"id"`
	Status    ConversationStatus `json:"status"`
	StartTime Timestamp          `json:"startTime"`
	Messages  []Message          `json:"messages"`
}

// IsOpen reports whether the conversation is still open
func (c *Conversation) IsOpen() bool {
	return c != nil && c.Status == ConversationOpen
}

// LastCustomerMessageTime returns the timestamp of the most recent message
// sent by the customer
func (c *Conversation) LastCustomerMessageTime() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].FromCustomer {
			return c.Messages[i].Timestamp.Time, true
		}
	}
	return time.Time{}, false
}

// Message is one entry of a conversation transcript
type Message struct {
	Timestamp    Timestamp `json:"timestamp"`
	FromCustomer bool      `json:"fromCustomer"`
	Text         string    `json:"text,omitempty"`
}

// Comment is a ticket comment; only public comments are customer-visible
type Comment struct {
	ID        int64     `json:"id"`
	Public    bool      `json:"public"`
	CreatedAt Timestamp `json:"created_at"`
}

// RunMode gates every mutating action for one invocation
type RunMode string

const (
	ModeDryRun RunMode = "dry-run"
	ModeLive   RunMode = "live"
)

// IsValid checks if the mode value is valid
func (m RunMode) IsValid() bool {
	return m == ModeDryRun || m == ModeLive
}

// IsLive reports whether mutations should be performed
func (m RunMode) IsLive() bool { return m == ModeLive }

// Label returns the banner shown in reports ("DRY RUN" or "LIVE")
func (m RunMode) Label() string {
	if m.IsLive() {
		return "LIVE"
	}
	return "DRY RUN"
}

// ModeFor maps a dry-run flag to a RunMode
func ModeFor(dryRun bool) RunMode {
	if dryRun {
		return ModeDryRun
	}
	return ModeLive
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
