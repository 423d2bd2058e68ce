// Package subject extracts booking and conversation identifiers from ticket
// subject lines such as "Booking ID: 123 SID: 789 CID: 456".
package subject

import (
	"strings"

	"github.com/steveyegge/dupesweep/internal/types"
)

// Subject markers, expected left to right when all are present
const (
	BookingMarker      = "Booking ID:"
	SecondaryMarker    = "SID:"
	ConversationMarker = "CID:"
)

// Parse extracts identifiers from a subject line. The boolean is false when
// the subject carries no usable booking id, in which case every field of the
// returned Identifiers is empty.
//
// The booking segment runs from "Booking ID:" to the next "CID:" (or the end
// of the subject). A "SID:" inside that segment splits it into booking id and
// secondary id. The conversation id is everything after "CID:". A value
// never extends past a repeat of its own marker.
func Parse(s string) (types.Identifiers, bool) {
	rest, found := segment(s, BookingMarker)
	if !found {
		return types.Identifiers{}, false
	}

	if before, _, ok := strings.Cut(rest, ConversationMarker); ok {
		rest = before
	}

	var ids types.Identifiers
	if before, _, ok := strings.Cut(rest, SecondaryMarker); ok {
		ids.BookingID = strings.TrimSpace(before)
		sid, _ := segment(rest, SecondaryMarker)
		ids.SecondaryID = strings.TrimSpace(sid)
	} else {
		ids.BookingID = strings.TrimSpace(rest)
	}

	// "Booking ID:" followed by nothing usable
	if ids.BookingID == "" {
		return types.Identifiers{}, false
	}

	if cid, ok := segment(s, ConversationMarker); ok {
		ids.ConversationID = strings.TrimSpace(cid)
	}
	return ids, true
}

// segment returns the text between the first occurrence of marker and the
// next one, or the end of s
func segment(s, marker string) (string, bool) {
	_, after, found := strings.Cut(s, marker)
	if !found {
		return "", false
	}
	if before, _, ok := strings.Cut(after, marker); ok {
		return before, true
	}
	return after, true
}

// Annotate fills in Identifiers on every ticket from its subject. Tickets
// that do not match keep empty identifiers. It returns the number of
// tickets that matched.
func Annotate(tickets []*types.Ticket) int {
	matched := 0
	for _, t := range tickets {
		ids, ok := Parse(t.Subject)
		t.Identifiers = ids
		if ok {
			matched++
		}
	}
	return matched
}
