// Package actions applies resolution plans to the ticket source and the
// messaging platform.
package actions

import (
	"context"
	"fmt"

	"github.com/steveyegge/dupesweep/internal/events"
	"github.com/steveyegge/dupesweep/internal/labels"
	"github.com/steveyegge/dupesweep/internal/transport"
	"github.com/steveyegge/dupesweep/internal/types"
)

// TicketWriter reads and updates tickets
type TicketWriter interface {
	GetTicket(ctx context.Context, id int64) (*types.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, update types.TicketUpdate) error
}

// QueueSender transfers conversations between queues
type QueueSender interface {
	SendToQueue(ctx context.Context, id, queue string) error
}

// MutationError is a single failed action. The rest of the plan still runs.
type MutationError struct {
	Action types.Action
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Action, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// StatusCode is the HTTP status of the failed call, or 0 if there was none
func (e *MutationError) StatusCode() int { return transport.StatusCode(e.Err) }

// Outcome counts what Apply did with one plan
type Outcome struct {
	BookingID string
	Planned   int // dry-run only
	Applied   int
	Skipped   int
	Failures  []*MutationError
}

// Executor applies plans in the mode fixed at construction
type Executor struct {
	tickets TicketWriter
	queues  QueueSender
	mode    types.RunMode
	journal *events.Journal
}

// NewExecutor creates an executor. queues may be nil when no plan will
// carry a queue transfer; journal may be nil.
func NewExecutor(tickets TicketWriter, queues QueueSender, mode types.RunMode, journal *events.Journal) (*Executor, error) {
	if tickets == nil {
		return nil, fmt.Errorf("ticket writer is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid run mode: %q", mode)
	}
	return &Executor{tickets: tickets, queues: queues, mode: mode, journal: journal}, nil
}

// Mode returns the executor's run mode
func (e *Executor) Mode() types.RunMode { return e.mode }

// Apply runs every action of plan in order. In dry-run mode nothing is
// sent; each action is only recorded as planned.
//
// A failed action is recorded and Apply moves on to the next one. The
// returned error is reserved for an invalid plan or a canceled context.
func (e *Executor) Apply(ctx context.Context, plan *types.ResolutionPlan) (*Outcome, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to apply plan: %w", err)
	}

	out := &Outcome{BookingID: plan.BookingID}
	for _, action := range plan.Actions() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if !e.mode.IsLive() {
			out.Planned++
			e.record(plan.BookingID, action, events.EventTypeActionPlanned, events.SeverityInfo,
				"Would "+action.String(), 0)
			continue
		}

		skipped, err := e.apply(ctx, action)
		switch {
		case err != nil:
			merr := &MutationError{Action: action, Err: err}
			out.Failures = append(out.Failures, merr)
			e.record(plan.BookingID, action, events.EventTypeActionFailed, events.SeverityError,
				merr.Error(), merr.StatusCode())
		case skipped:
			out.Skipped++
			e.record(plan.BookingID, action, events.EventTypeActionSkipped, events.SeverityInfo,
				fmt.Sprintf("Ticket %d already has tag '%s'", action.TicketID, action.Tag), 0)
		default:
			out.Applied++
			e.record(plan.BookingID, action, events.EventTypeActionApplied, events.SeverityInfo,
				successMessage(action), 0)
		}
	}
	return out, nil
}

// apply performs one live action. skipped is true when the action turned
// out to be unnecessary.
func (e *Executor) apply(ctx context.Context, action types.Action) (skipped bool, err error) {
	switch action.Kind {
	case types.ActionAddTag:
		return e.addTag(ctx, action.TicketID, action.Tag)
	case types.ActionSolve:
		return false, e.tickets.UpdateTicket(ctx, action.TicketID, types.TicketUpdate{Status: types.StatusSolved})
	case types.ActionSendToQueue:
		if e.queues == nil {
			return false, fmt.Errorf("no messaging client configured")
		}
		return false, e.queues.SendToQueue(ctx, action.ConversationID, action.Queue)
	default:
		return false, fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// addTag re-reads the ticket's tags because an update replaces the whole set
func (e *Executor) addTag(ctx context.Context, id int64, tag string) (bool, error) {
	current, err := e.tickets.GetTicket(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to read ticket %d: %w", id, err)
	}
	merged, changed := labels.MergeTag(current.Tags, tag)
	if !changed {
		return true, nil
	}
	if err := e.tickets.UpdateTicket(ctx, id, types.TicketUpdate{Tags: merged}); err != nil {
		return false, err
	}
	return false, nil
}

func (e *Executor) record(bookingID string, action types.Action, t events.EventType,
	severity events.EventSeverity, msg string, status int) {
	if e.journal == nil {
		return
	}
	e.journal.Record(events.Event{
		Type:           t,
		Severity:       severity,
		BookingID:      bookingID,
		TicketID:       action.TicketID,
		ConversationID: action.ConversationID,
		Action:         string(action.Kind),
		StatusCode:     status,
		Message:        msg,
	})
}

func successMessage(a types.Action) string {
	switch a.Kind {
	case types.ActionAddTag:
		return fmt.Sprintf("Successfully added tag '%s' to ticket %d", a.Tag, a.TicketID)
	case types.ActionSolve:
		return fmt.Sprintf("Successfully solved ticket %d", a.TicketID)
	case types.ActionSendToQueue:
		return fmt.Sprintf("Successfully sent conversation %s to %s queue", a.ConversationID, a.Queue)
	default:
		return a.String()
	}
}
