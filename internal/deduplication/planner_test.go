package deduplication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupesweep/internal/types"
)

type fakeConversations struct {
	convs map[string]*types.Conversation
	errs  map[string]error
	calls []string
}

func (f *fakeConversations) GetConversation(_ context.Context, id string) (*types.Conversation, error) {
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	return f.convs[id], nil
}

type fakeActivity struct {
	last map[int64]time.Time
	errs map[int64]error
}

func (f *fakeActivity) LastPublicCommentTime(_ context.Context, id int64) (time.Time, bool, error) {
	if err, ok := f.errs[id]; ok {
		return time.Time{}, false, err
	}
	last, ok := f.last[id]
	return last, ok, nil
}

func open(id string) *types.Conversation {
	return &types.Conversation{ID: id, Status: types.ConversationOpen}
}

func closed(id string) *types.Conversation {
	return &types.Conversation{ID: id, Status: types.ConversationClosed}
}

func TestRank(t *testing.T) {
	tickets := []*types.Ticket{ticket(101, "A", ""), ticket(105, "A", ""), ticket(103, "A", "")}

	ranked := Rank(tickets)
	assert.Equal(t, []int64{105, 103, 101}, ids(ranked))
	// Input is left untouched
	assert.Equal(t, []int64{101, 105, 103}, ids(tickets))
}

func TestRankIsStableForEqualIDs(t *testing.T) {
	a := ticket(7, "A", "first")
	b := ticket(7, "A", "second")

	ranked := Rank([]*types.Ticket{a, b})
	assert.Same(t, a, ranked[0])
	assert.Same(t, b, ranked[1])
}

func TestNewPlanner(t *testing.T) {
	_, err := NewPlanner(nil, nil, DefaultConfig())
	assert.Error(t, err, "lookups enabled without a conversation source")

	cfg := DefaultConfig()
	cfg.LookupConversations = false
	_, err = NewPlanner(nil, nil, cfg)
	assert.NoError(t, err)

	cfg.TrackActivity = true
	_, err = NewPlanner(nil, nil, cfg)
	assert.Error(t, err, "activity tracking without an activity source")

	bad := DefaultConfig()
	bad.DuplicateTag = bad.PrimaryTag
	_, err = NewPlanner(&fakeConversations{}, nil, bad)
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	convs := &fakeConversations{convs: map[string]*types.Conversation{
		"c101": open("c101"),
		"c103": closed("c103"),
		"c105": open("c105"),
	}}
	p, err := NewPlanner(convs, nil, DefaultConfig())
	require.NoError(t, err)

	group := types.BookingGroup{
		BookingID: "B1",
		Tickets: []*types.Ticket{
			ticket(101, "B1", "c101"),
			ticket(105, "B1", "c105"),
			ticket(103, "B1", "c103"),
		},
	}

	plan, err := p.Plan(context.Background(), group)
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	assert.Equal(t, "B1", plan.BookingID)
	assert.Equal(t, int64(105), plan.Primary.ID)
	require.Len(t, plan.Duplicates, 2)

	assert.Equal(t, int64(103), plan.Duplicates[0].Ticket.ID)
	assert.Equal(t, types.ConversationNoAction, plan.Duplicates[0].ConversationAction)
	assert.Equal(t, int64(101), plan.Duplicates[1].Ticket.ID)
	assert.Equal(t, types.ConversationSendToQueue, plan.Duplicates[1].ConversationAction)

	// The primary's conversation is never looked up
	assert.Equal(t, []string{"c103", "c101"}, convs.calls)

	assert.Equal(t, "primary_ticket", plan.PrimaryTag)
	assert.Equal(t, "duplicate_ticket", plan.DuplicateTag)
	assert.Equal(t, "duplicates", plan.TargetQueue)
	assert.Nil(t, plan.Activity)
}

func TestPlanLookupFailureStillResolvesTicket(t *testing.T) {
	lookupErr := errors.New("503 service unavailable")
	convs := &fakeConversations{
		convs: map[string]*types.Conversation{"c2": open("c2")},
		errs:  map[string]error{"c1": lookupErr},
	}
	p, err := NewPlanner(convs, nil, DefaultConfig())
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", "c1"), ticket(2, "B", "c2"), ticket(3, "B", "")},
	})
	require.NoError(t, err)
	require.Len(t, plan.Duplicates, 2)

	// Ticket 2's open conversation must not leak into ticket 1's failed lookup
	d2, d1 := plan.Duplicates[0], plan.Duplicates[1]
	assert.True(t, d2.NeedsTransfer())
	assert.False(t, d1.NeedsTransfer())
	assert.Nil(t, d1.Conversation)

	var lookup *ConversationLookupError
	require.ErrorAs(t, d1.LookupErr, &lookup)
	assert.Equal(t, "c1", lookup.ConversationID)
	assert.ErrorIs(t, d1.LookupErr, lookupErr)

	kinds := []types.ActionKind{}
	for _, a := range plan.Actions() {
		if a.TicketID == 1 {
			kinds = append(kinds, a.Kind)
		}
	}
	assert.Equal(t, []types.ActionKind{types.ActionAddTag, types.ActionSolve}, kinds)
}

func TestPlanWithoutConversationID(t *testing.T) {
	convs := &fakeConversations{}
	p, err := NewPlanner(convs, nil, DefaultConfig())
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", ""), ticket(2, "B", "")},
	})
	require.NoError(t, err)
	assert.Empty(t, convs.calls)
	assert.Equal(t, types.ConversationNoAction, plan.Duplicates[0].ConversationAction)
	assert.NoError(t, plan.Duplicates[0].LookupErr)
}

func TestPlanLookupsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LookupConversations = false
	p, err := NewPlanner(nil, nil, cfg)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", "c1"), ticket(2, "B", "c2")},
	})
	require.NoError(t, err)
	assert.False(t, plan.Duplicates[0].NeedsTransfer())
}

func TestPlanRejectsSingleton(t *testing.T) {
	p, err := NewPlanner(&fakeConversations{}, nil, DefaultConfig())
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", "")},
	})
	assert.Error(t, err)
}

func TestPlanCanceledContext(t *testing.T) {
	p, err := NewPlanner(&fakeConversations{}, nil, DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Plan(ctx, types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", ""), ticket(2, "B", "")},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanTracksActivity(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	activity := &fakeActivity{
		last: map[int64]time.Time{2: now},
		errs: map[int64]error{1: errors.New("boom")},
	}
	cfg := DefaultConfig()
	cfg.TrackActivity = true
	p, err := NewPlanner(&fakeConversations{}, activity, cfg)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), types.BookingGroup{
		BookingID: "B",
		Tickets:   []*types.Ticket{ticket(1, "B", ""), ticket(2, "B", "")},
	})
	require.NoError(t, err)
	assert.Equal(t, map[int64]time.Time{2: now}, plan.Activity)
}
