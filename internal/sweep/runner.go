// Package sweep runs one reconciliation pass: fetch open tickets, group
// them by booking, plan each duplicate group, and apply or report the plan.
package sweep

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/steveyegge/dupesweep/internal/actions"
	"github.com/steveyegge/dupesweep/internal/config"
	"github.com/steveyegge/dupesweep/internal/deduplication"
	"github.com/steveyegge/dupesweep/internal/events"
	"github.com/steveyegge/dupesweep/internal/fetcher"
	"github.com/steveyegge/dupesweep/internal/quiq"
	"github.com/steveyegge/dupesweep/internal/report"
	"github.com/steveyegge/dupesweep/internal/subject"
	"github.com/steveyegge/dupesweep/internal/types"
	"github.com/steveyegge/dupesweep/internal/zendesk"
)

// Summary is the outcome of one pass
type Summary = report.Summary

// TicketSource is everything a pass needs from the ticket system
type TicketSource interface {
	fetcher.PageSource
	actions.TicketWriter
	deduplication.ActivitySource
}

// MessagingSource is everything a pass needs from the messaging platform
type MessagingSource interface {
	deduplication.ConversationSource
	actions.QueueSender
}

// Runner executes passes. A Runner holds no state between passes.
type Runner struct {
	tickets   TicketSource
	messaging MessagingSource
	mode      types.RunMode
	policy    deduplication.Config
	out       io.Writer
	now       func() time.Time
	fetchOpts []fetcher.Option
	verbose   bool
}

// Option configures a Runner
type Option func(*Runner)

// WithClock replaces the clock used for durations and relative ages
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithFetchOptions passes options through to the ticket fetcher
func WithFetchOptions(opts ...fetcher.Option) Option {
	return func(r *Runner) { r.fetchOpts = append(r.fetchOpts, opts...) }
}

// WithVerbose prints a line for every search window as it completes
func WithVerbose(verbose bool) Option {
	return func(r *Runner) { r.verbose = verbose }
}

// New creates a Runner. messaging may be nil when the policy disables
// conversation lookups.
func New(tickets TicketSource, messaging MessagingSource, mode types.RunMode,
	policy deduplication.Config, out io.Writer, opts ...Option) (*Runner, error) {
	if tickets == nil {
		return nil, fmt.Errorf("ticket source is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid run mode: %q", mode)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	r := &Runner{
		tickets:   tickets,
		messaging: messaging,
		mode:      mode,
		policy:    policy,
		out:       out,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewFromConfig wires the real API clients from cfg
func NewFromConfig(cfg config.Config, out io.Writer, opts ...Option) (*Runner, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	tcfg := cfg.TransportConfig()

	zd, err := zendesk.New(cfg.Zendesk, tcfg)
	if err != nil {
		return nil, fmt.Errorf("creating ticket source client: %w", err)
	}

	var messaging MessagingSource
	if cfg.Policy.LookupConversations {
		qc, err := quiq.New(cfg.Quiq, tcfg)
		if err != nil {
			return nil, fmt.Errorf("creating messaging client: %w", err)
		}
		messaging = qc
	}

	return New(zd, messaging, cfg.Mode(), cfg.Policy, out, opts...)
}

// Mode returns the runner's mode
func (r *Runner) Mode() types.RunMode { return r.mode }

// Run performs one pass. It fails only if the ticket snapshot cannot be
// fetched or ctx is canceled; individual action failures are reported and
// counted in the summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := r.now()
	journal := events.NewJournal()
	w := report.NewWriter(r.out, r.mode).WithClock(r.now)
	journal.Subscribe(w.Event)

	journal.Record(events.Event{
		Type:    events.EventTypeRunStarted,
		Message: fmt.Sprintf("%s pass started", r.mode.Label()),
	})

	fetchOpts := r.fetchOpts
	if r.verbose {
		fetchOpts = append(append([]fetcher.Option(nil), r.fetchOpts...), fetcher.WithProgress(w.Window))
	}
	tickets, err := fetcher.New(r.tickets, fetchOpts...).FetchOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching open tickets: %w", err)
	}
	matched := subject.Annotate(tickets)
	groups := deduplication.Group(tickets)

	journal.Record(events.Event{
		Type:    events.EventTypeTicketsFetched,
		Message: fmt.Sprintf("fetched %d ticket(s), %d matched, %d duplicate group(s)", len(tickets), matched, len(groups)),
	})
	w.Fetched(len(tickets), matched, len(groups))

	summary := &Summary{
		RunID:   journal.RunID(),
		Mode:    r.mode,
		Fetched: len(tickets),
		Matched: matched,
		Groups:  len(groups),
	}

	if len(groups) == 0 {
		w.NoDuplicates()
		return r.finish(w, journal, summary, start), nil
	}

	planner, executor, err := r.build(journal)
	if err != nil {
		return summary, err
	}

	for _, group := range groups {
		plan, err := planner.Plan(ctx, group)
		if err != nil {
			return summary, err
		}
		w.Plan(plan)
		recordLookupFailures(journal, plan)

		outcome, err := executor.Apply(ctx, plan)
		if outcome != nil {
			summary.Tickets += plan.TicketCount()
			summary.Planned += outcome.Planned
			summary.Applied += outcome.Applied
			summary.Skipped += outcome.Skipped
		}
		if err != nil {
			tally(journal, summary)
			return summary, err
		}
	}

	return r.finish(w, journal, summary, start), nil
}

func (r *Runner) build(journal *events.Journal) (*deduplication.Planner, *actions.Executor, error) {
	// Keep interface values nil rather than typed-nil when messaging is absent
	var conversations deduplication.ConversationSource
	var queues actions.QueueSender
	if r.messaging != nil {
		conversations = r.messaging
		queues = r.messaging
	}

	planner, err := deduplication.NewPlanner(conversations, r.tickets, r.policy)
	if err != nil {
		return nil, nil, err
	}
	executor, err := actions.NewExecutor(r.tickets, queues, r.mode, journal)
	if err != nil {
		return nil, nil, err
	}
	return planner, executor, nil
}

// tally fills the failure counts from the journal
func tally(journal *events.Journal, summary *Summary) {
	summary.Failures = journal.Failures()
	summary.Failed = journal.Count(events.EventTypeActionFailed)
	summary.LookupFailures = journal.Count(events.EventTypeConversationLookupFailed)
}

func (r *Runner) finish(w *report.Writer, journal *events.Journal, summary *Summary, start time.Time) *Summary {
	tally(journal, summary)
	summary.Duration = r.now().Sub(start)
	journal.Record(events.Event{
		Type: events.EventTypeRunCompleted,
		Message: fmt.Sprintf("pass completed: %d group(s), %d applied, %d failed",
			summary.Groups, summary.Applied, summary.Failed),
	})
	w.Summary(summary)
	return summary
}

func recordLookupFailures(journal *events.Journal, plan *types.ResolutionPlan) {
	for _, d := range plan.Duplicates {
		if d.LookupErr == nil {
			continue
		}
		journal.Record(events.Event{
			Type:           events.EventTypeConversationLookupFailed,
			Severity:       events.SeverityWarning,
			BookingID:      plan.BookingID,
			TicketID:       d.Ticket.ID,
			ConversationID: d.Ticket.Identifiers.ConversationID,
			Message:        d.LookupErr.Error(),
		})
	}
}
