// Package report renders a run for operators: one block per duplicate
// group, action outcomes as they happen, and a closing summary.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/steveyegge/dupesweep/internal/events"
	"github.com/steveyegge/dupesweep/internal/fetcher"
	"github.com/steveyegge/dupesweep/internal/types"
)

// Summary counts the outcome of one run
type Summary struct {
	RunID    string
	Mode     types.RunMode
	Fetched  int
	Matched  int
	Groups   int
	Tickets  int
	Planned  int
	Applied  int
	Skipped  int
	Failed   int
	Duration time.Duration

	// LookupFailures counts conversations that could not be fetched
	LookupFailures int
	// Failures holds every failure event of the run, in order
	Failures []events.Event
}

// Writer prints run output to an io.Writer
type Writer struct {
	out  io.Writer
	mode types.RunMode
	now  func() time.Time

	bold   func(a ...interface{}) string
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	red    func(a ...interface{}) string
	cyan   func(a ...interface{}) string
}

// NewWriter creates a Writer for a run in mode
func NewWriter(out io.Writer, mode types.RunMode) *Writer {
	return &Writer{
		out:    out,
		mode:   mode,
		now:    time.Now,
		bold:   color.New(color.Bold).SprintFunc(),
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

// WithClock replaces the clock used for relative ages
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Window reports one completed search window. It matches fetcher.Progress.
func (w *Writer) Window(win fetcher.Window, fetched, total int) {
	fmt.Fprintf(w.out, "  %-22s %s ticket(s), %s so far\n",
		win.String(), humanize.Comma(int64(fetched)), humanize.Comma(int64(total)))
}

// Fetched reports the size of the snapshot
func (w *Writer) Fetched(total, matched, groups int) {
	fmt.Fprintf(w.out, "%s Fetched %s open ticket(s), %s with a booking id, %s duplicate group(s)\n",
		w.cyan("→"), humanize.Comma(int64(total)), humanize.Comma(int64(matched)), humanize.Comma(int64(groups)))
}

// NoDuplicates is printed when the snapshot holds no duplicate group
func (w *Writer) NoDuplicates() {
	fmt.Fprintln(w.out, "No duplicate tickets found!")
}

// Plan prints one duplicate group: every duplicate with its conversation,
// then the primary
func (w *Writer) Plan(plan *types.ResolutionPlan) {
	banner := w.yellow("[" + w.mode.Label() + "]")
	if w.mode.IsLive() {
		banner = w.red("[" + w.mode.Label() + "]")
	}
	fmt.Fprintf(w.out, "\n%s %s\n", banner, w.bold("Booking ID: "+plan.BookingID))

	for _, d := range plan.Duplicates {
		w.ticket(plan, d.Ticket)
		fmt.Fprintf(w.out, "- Add tag '%s' and solve\n", plan.DuplicateTag)

		cid := d.Ticket.Identifiers.ConversationID
		switch {
		case cid == "":
			// no linked conversation
		case d.LookupErr != nil:
			fmt.Fprintf(w.out, "Convo %s\n", cid)
			fmt.Fprintf(w.out, "- %s Lookup failed: %v\n", w.yellow("⚠"), d.LookupErr)
			fmt.Fprintln(w.out, "- No action needed")
		case d.Conversation != nil:
			w.conversation(d)
			if d.NeedsTransfer() {
				fmt.Fprintf(w.out, "- Send to %s queue\n", plan.TargetQueue)
			} else {
				fmt.Fprintln(w.out, "- No action needed")
			}
		}
	}

	w.ticket(plan, plan.Primary)
	fmt.Fprintf(w.out, "- Add tag '%s'\n", plan.PrimaryTag)
}

func (w *Writer) ticket(plan *types.ResolutionPlan, t *types.Ticket) {
	fmt.Fprintf(w.out, "Ticket %d\n", t.ID)
	fmt.Fprintf(w.out, "- Status: %s\n", t.Status.Display())
	fmt.Fprintf(w.out, "- Created: %s%s\n", FormatTime(t.CreatedAt.Time), w.age(t.CreatedAt.Time))
	if last, ok := plan.Activity[t.ID]; ok {
		fmt.Fprintf(w.out, "- Last public comment: %s%s\n", FormatTime(last), w.age(last))
	}
}

func (w *Writer) conversation(d types.DuplicateResolution) {
	c := d.Conversation
	fmt.Fprintf(w.out, "Convo %s\n", d.Ticket.Identifiers.ConversationID)
	fmt.Fprintf(w.out, "- Status: %s\n", c.Status.Display())
	fmt.Fprintf(w.out, "- Created: %s\n", FormatTime(c.StartTime.Time))
	if last, ok := c.LastCustomerMessageTime(); ok {
		fmt.Fprintf(w.out, "- Last customer message: %s%s\n", FormatTime(last), w.age(last))
	}
}

// age renders " (3 hours ago)", or nothing for an unknown time
func (w *Writer) age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return " (" + humanize.RelTime(t, w.now(), "ago", "from now") + ")"
}

// Event prints an action outcome as it is recorded. Planned actions and
// lookup failures are already part of the plan block; only planned queue
// transfers are echoed.
func (w *Writer) Event(e events.Event) {
	switch e.Type {
	case events.EventTypeActionApplied:
		fmt.Fprintf(w.out, "%s %s\n", w.green("✓"), e.Message)
	case events.EventTypeActionSkipped:
		fmt.Fprintf(w.out, "%s %s\n", w.cyan("·"), e.Message)
	case events.EventTypeActionFailed:
		fmt.Fprintf(w.out, "%s %s\n", w.red("✗"), e.Message)
	case events.EventTypeActionPlanned:
		if e.Action == string(types.ActionSendToQueue) {
			fmt.Fprintf(w.out, "[%s] %s\n", w.mode.Label(), e.Message)
		}
	}
}

// Summary prints the closing line of a run
func (w *Writer) Summary(s *Summary) {
	counts := fmt.Sprintf("%d group(s), %d ticket(s)", s.Groups, s.Tickets)
	var actions string
	if s.Mode.IsLive() {
		actions = fmt.Sprintf("%s applied, %d skipped, %s failed",
			w.green(s.Applied), s.Skipped, failedColor(w, s.Failed))
	} else {
		actions = fmt.Sprintf("%d action(s) planned, none applied", s.Planned)
	}
	if s.LookupFailures > 0 {
		actions += fmt.Sprintf(", %s conversation lookup(s) failed", w.yellow(s.LookupFailures))
	}
	fmt.Fprintf(w.out, "\n%s %s: %s; %s (took %s)\n",
		w.bold("Summary"), "["+s.Mode.Label()+"]", counts, actions, s.Duration.Round(time.Millisecond))
}

// Failures lists every failure of the run with its status code, if any
func (w *Writer) Failures(s *Summary) {
	for _, e := range s.Failures {
		glyph := w.red("✗")
		if e.Severity == events.SeverityWarning {
			glyph = w.yellow("⚠")
		}
		if e.StatusCode != 0 {
			fmt.Fprintf(w.out, "%s [%d] %s\n", glyph, e.StatusCode, e.Message)
			continue
		}
		fmt.Fprintf(w.out, "%s %s\n", glyph, e.Message)
	}
}

func failedColor(w *Writer, n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return w.red(n)
}
