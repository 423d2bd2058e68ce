package types

import (
	"fmt"
	"time"
)

// BookingGroup is the set of open tickets sharing one booking id, in the
// order they were fetched
type BookingGroup struct {
	BookingID string
	Tickets   []*Ticket
}

// IsDuplicate reports whether the group needs resolution
func (g BookingGroup) IsDuplicate() bool { return len(g.Tickets) > 1 }

// ConversationAction is what the run does with a duplicate's conversation
type ConversationAction string

const (
	ConversationNoAction    ConversationAction = "none"
	ConversationSendToQueue ConversationAction = "send_to_queue"
)

// DuplicateResolution is the decision for one non-primary ticket.
// Conversation is nil when the ticket carries no conversation id or the
// lookup failed (LookupErr is set in the latter case).
type DuplicateResolution struct {
	Ticket             *Ticket
	Conversation       *Conversation
	ConversationAction ConversationAction
	LookupErr          error
}

// NeedsTransfer reports whether the conversation goes to the target queue
func (d DuplicateResolution) NeedsTransfer() bool {
	return d.ConversationAction == ConversationSendToQueue
}

// ResolutionPlan is the full set of decisions for one duplicate group
type ResolutionPlan struct {
	BookingID    string
	Primary      *Ticket
	Duplicates   []DuplicateResolution
	PrimaryTag   string
	DuplicateTag string
	TargetQueue  string

	// Activity maps ticket id to its last public comment time, when tracked
	Activity map[int64]time.Time
}

// Validate checks the plan's structural invariants
func (p *ResolutionPlan) Validate() error {
	if p.Primary == nil {
		return fmt.Errorf("booking %s: primary ticket is required", p.BookingID)
	}
	if len(p.Duplicates) == 0 {
		return fmt.Errorf("booking %s: plan has no duplicates", p.BookingID)
	}
	seen := map[int64]bool{p.Primary.ID: true}
	for _, d := range p.Duplicates {
		if d.Ticket == nil {
			return fmt.Errorf("booking %s: duplicate without ticket", p.BookingID)
		}
		if d.Ticket.ID > p.Primary.ID {
			return fmt.Errorf("booking %s: duplicate %d is newer than primary %d",
				p.BookingID, d.Ticket.ID, p.Primary.ID)
		}
		if seen[d.Ticket.ID] {
			return fmt.Errorf("booking %s: ticket %d appears twice", p.BookingID, d.Ticket.ID)
		}
		seen[d.Ticket.ID] = true
		if d.NeedsTransfer() && !d.Ticket.Identifiers.HasConversation() {
			return fmt.Errorf("booking %s: ticket %d marked for transfer without conversation id",
				p.BookingID, d.Ticket.ID)
		}
	}
	return nil
}

// TicketCount is the number of group members covered by the plan
func (p *ResolutionPlan) TicketCount() int {
	return len(p.Duplicates) + 1
}

// ActionKind identifies a single remote mutation
type ActionKind string

const (
	ActionAddTag      ActionKind = "add_tag"
	ActionSolve       ActionKind = "solve"
	ActionSendToQueue ActionKind = "send_to_queue"
)

// Action is one mutation the executor applies (or reports in dry-run)
type Action struct {
	Kind           ActionKind
	TicketID       int64
	ConversationID string
	Tag            string
	Queue          string
}

// String describes the action for reports
func (a Action) String() string {
	switch a.Kind {
	case ActionAddTag:
		return fmt.Sprintf("add tag '%s' to ticket %d", a.Tag, a.TicketID)
	case ActionSolve:
		return fmt.Sprintf("solve ticket %d", a.TicketID)
	case ActionSendToQueue:
		return fmt.Sprintf("send conversation %s to %s queue", a.ConversationID, a.Queue)
	default:
		return fmt.Sprintf("unknown action %q", a.Kind)
	}
}

// Actions lists the plan's mutations in execution order: for each duplicate
// tag, solve, then queue transfer if needed; the primary's tag last.
func (p *ResolutionPlan) Actions() []Action {
	actions := make([]Action, 0, len(p.Duplicates)*3+1)
	for _, d := range p.Duplicates {
		actions = append(actions,
			Action{Kind: ActionAddTag, TicketID: d.Ticket.ID, Tag: p.DuplicateTag},
			Action{Kind: ActionSolve, TicketID: d.Ticket.ID},
		)
		if d.NeedsTransfer() {
			actions = append(actions, Action{
				Kind:           ActionSendToQueue,
				TicketID:       d.Ticket.ID,
				ConversationID: d.Ticket.Identifiers.ConversationID,
				Queue:          p.TargetQueue,
			})
		}
	}
	if p.Primary != nil {
		actions = append(actions, Action{Kind: ActionAddTag, TicketID: p.Primary.ID, Tag: p.PrimaryTag})
	}
	return actions
}
