package subject

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/dupesweep/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    types.Identifiers
		wantOK  bool
	}{
		{
			name:    "booking and conversation",
			subject: "Booking ID: 123 CID: 456",
			want:    types.Identifiers{BookingID: "123", ConversationID: "456"},
			wantOK:  true,
		},
		{
			name:    "booking, secondary and conversation",
			subject: "Booking ID: 123 SID: 789 CID: 456",
			want:    types.Identifiers{BookingID: "123", SecondaryID: "789", ConversationID: "456"},
			wantOK:  true,
		},
		{
			name:    "prefix text before markers",
			subject: "Chat transcript - Booking ID: AB-77 CID: conv-9 ",
			want:    types.Identifiers{BookingID: "AB-77", ConversationID: "conv-9"},
			wantOK:  true,
		},
		{
			name:    "booking only",
			subject: "Booking ID:   555   ",
			want:    types.Identifiers{BookingID: "555"},
			wantOK:  true,
		},
		{
			name:    "booking with secondary, no conversation",
			subject: "Booking ID: 555 SID: x1",
			want:    types.Identifiers{BookingID: "555", SecondaryID: "x1"},
			wantOK:  true,
		},
		{
			name:    "repeated booking marker",
			subject: "Booking ID: 1 Booking ID: 2 CID: 3",
			want:    types.Identifiers{BookingID: "1", ConversationID: "3"},
			wantOK:  true,
		},
		{
			name:    "repeated secondary marker",
			subject: "Booking ID: 1 SID: a SID: b CID: 3",
			want:    types.Identifiers{BookingID: "1", SecondaryID: "a", ConversationID: "3"},
			wantOK:  true,
		},
		{
			name:    "repeated conversation marker",
			subject: "Booking ID: 1 CID: 3 CID: 4",
			want:    types.Identifiers{BookingID: "1", ConversationID: "3"},
			wantOK:  true,
		},
		{
			name:    "no booking marker",
			subject: "Refund request CID: 456 SID: 789",
			wantOK:  false,
		},
		{
			name:    "empty subject",
			subject: "",
			wantOK:  false,
		},
		{
			name:    "empty booking segment",
			subject: "Booking ID: CID: 456",
			wantOK:  false,
		},
		{
			name:    "secondary marker with empty booking",
			subject: "Booking ID: SID: 789 CID: 456",
			wantOK:  false,
		},
		{
			name:    "lowercase markers are not recognized",
			subject: "booking id: 123 cid: 456",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.subject)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWithoutBookingAlwaysEmpty(t *testing.T) {
	subjects := []string{
		"CID: 1",
		"SID: 2 CID: 3",
		"Booking: 4",
		"Re: Booking 5",
		"BookingID: 6 CID: 7",
	}
	for _, s := range subjects {
		ids, ok := Parse(s)
		assert.False(t, ok, s)
		assert.Equal(t, types.Identifiers{}, ids, s)
	}
}

func TestAnnotate(t *testing.T) {
	tickets := []*types.Ticket{
		{ID: 1, Subject: "Booking ID: 10 CID: a"},
		{ID: 2, Subject: "Question about parking"},
		{ID: 3, Subject: "Booking ID: 10 SID: s CID: b"},
	}

	matched := Annotate(tickets)

	assert.Equal(t, 2, matched)
	assert.Equal(t, "10", tickets[0].Identifiers.BookingID)
	assert.Equal(t, "a", tickets[0].Identifiers.ConversationID)
	assert.False(t, tickets[1].Identifiers.HasBooking())
	assert.Equal(t, "s", tickets[2].Identifiers.SecondaryID)
}
