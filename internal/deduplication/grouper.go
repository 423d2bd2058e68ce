package deduplication

import (
	"github.com/steveyegge/dupesweep/internal/types"
)

// Group partitions tickets by booking id and returns only the groups with
// more than one member. Tickets without a booking id are dropped.
//
// Groups are ordered by the first appearance of their booking id, and
// members keep the order they had in tickets, so the same input always
// yields the same output.
func Group(tickets []*types.Ticket) []types.BookingGroup {
	index := make(map[string]int)
	var groups []types.BookingGroup

	for _, t := range tickets {
		if t == nil || !t.Identifiers.HasBooking() {
			continue
		}
		id := t.Identifiers.BookingID
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, types.BookingGroup{BookingID: id})
		}
		groups[i].Tickets = append(groups[i].Tickets, t)
	}

	duplicates := groups[:0]
	for _, g := range groups {
		if g.IsDuplicate() {
			duplicates = append(duplicates, g)
		}
	}
	return duplicates
}
