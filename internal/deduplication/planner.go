package deduplication

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/steveyegge/dupesweep/internal/types"
)

// ConversationSource looks up the live state of a conversation
type ConversationSource interface {
	GetConversation(ctx context.Context, id string) (*types.Conversation, error)
}

// ActivitySource reports a ticket's most recent customer-visible comment
type ActivitySource interface {
	LastPublicCommentTime(ctx context.Context, id int64) (time.Time, bool, error)
}

// ConversationLookupError is kept on a DuplicateResolution when the
// conversation could not be fetched. It is reported, never fatal.
type ConversationLookupError struct {
	TicketID       int64
	ConversationID string
	Err            error
}

func (e *ConversationLookupError) Error() string {
	return fmt.Sprintf("failed to get conversation %s for ticket %d: %v", e.ConversationID, e.TicketID, e.Err)
}

func (e *ConversationLookupError) Unwrap() error { return e.Err }

// Planner turns duplicate groups into resolution plans
type Planner struct {
	conversations ConversationSource
	activity      ActivitySource
	config        Config
}

// NewPlanner creates a planner. conversations may be nil only when the
// config disables conversation lookups; activity may be nil unless
// TrackActivity is set.
func NewPlanner(conversations ConversationSource, activity ActivitySource, cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deduplication config: %w", err)
	}
	if cfg.LookupConversations && conversations == nil {
		return nil, fmt.Errorf("conversation source is required when conversation lookups are enabled")
	}
	if cfg.TrackActivity && activity == nil {
		return nil, fmt.Errorf("activity source is required when activity tracking is enabled")
	}
	return &Planner{conversations: conversations, activity: activity, config: cfg}, nil
}

// Rank returns a copy of tickets ordered newest first (highest id). Tickets
// with equal ids keep their relative input order.
func Rank(tickets []*types.Ticket) []*types.Ticket {
	ranked := append([]*types.Ticket(nil), tickets...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ID > ranked[j].ID
	})
	return ranked
}

// Plan decides the resolution of one duplicate group. The newest ticket is
// primary; every other ticket is tagged and solved, and its conversation is
// sent to the target queue if the conversation is still open.
//
// Conversation lookup failures are recorded on the resolution rather than
// returned. Plan only fails for a group that is not a duplicate group or a
// canceled context.
func (p *Planner) Plan(ctx context.Context, group types.BookingGroup) (*types.ResolutionPlan, error) {
	if !group.IsDuplicate() {
		return nil, fmt.Errorf("booking %s has %d ticket(s), not a duplicate group",
			group.BookingID, len(group.Tickets))
	}

	ranked := Rank(group.Tickets)
	plan := &types.ResolutionPlan{
		BookingID:    group.BookingID,
		Primary:      ranked[0],
		Duplicates:   make([]types.DuplicateResolution, 0, len(ranked)-1),
		PrimaryTag:   p.config.PrimaryTag,
		DuplicateTag: p.config.DuplicateTag,
		TargetQueue:  p.config.TargetQueue,
	}

	for _, t := range ranked[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plan.Duplicates = append(plan.Duplicates, p.resolveDuplicate(ctx, t))
	}

	if p.config.TrackActivity {
		plan.Activity = p.lastActivity(ctx, ranked)
	}
	return plan, nil
}

// resolveDuplicate starts every ticket from "no action" so no conversation
// state leaks from one duplicate to the next
func (p *Planner) resolveDuplicate(ctx context.Context, t *types.Ticket) types.DuplicateResolution {
	res := types.DuplicateResolution{
		Ticket:             t,
		ConversationAction: types.ConversationNoAction,
	}

	if !t.Identifiers.HasConversation() || !p.config.LookupConversations {
		return res
	}
	cid := t.Identifiers.ConversationID

	conv, err := p.conversations.GetConversation(ctx, cid)
	if err != nil {
		res.LookupErr = &ConversationLookupError{TicketID: t.ID, ConversationID: cid, Err: err}
		return res
	}
	if conv == nil {
		res.LookupErr = &ConversationLookupError{TicketID: t.ID, ConversationID: cid, Err: fmt.Errorf("empty response")}
		return res
	}

	res.Conversation = conv
	if conv.IsOpen() {
		res.ConversationAction = types.ConversationSendToQueue
	}
	return res
}

// lastActivity is best-effort: tickets whose comments cannot be listed are
// simply absent from the map
func (p *Planner) lastActivity(ctx context.Context, tickets []*types.Ticket) map[int64]time.Time {
	activity := make(map[int64]time.Time, len(tickets))
	for _, t := range tickets {
		last, ok, err := p.activity.LastPublicCommentTime(ctx, t.ID)
		if err != nil || !ok {
			continue
		}
		activity[t.ID] = last
	}
	return activity
}
