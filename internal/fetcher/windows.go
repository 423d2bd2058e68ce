package fetcher

import (
	"fmt"
	"strings"
	"time"
)

// SubjectFilter restricts search results to tickets created by the chat
// integration
const SubjectFilter = `subject:"Booking ID:" subject:"CID:"`

// BaseQuery is the search prefix shared by every window
const BaseQuery = "type:ticket status:open " + SubjectFilter

// Window is an age range (Lower, Upper] relative to the time of the search.
// A zero Lower means the window reaches the present.
type Window struct {
	Lower time.Duration
	Upper time.Duration
}

// Contains reports whether a ticket of the given age falls in the window.
// The upper bound is inclusive and the lower bound exclusive, so a ticket
// exactly on a boundary belongs to the newer window only.
func (w Window) Contains(age time.Duration) bool {
	if age > w.Upper {
		return false
	}
	if w.Lower == 0 {
		return age >= 0
	}
	return age > w.Lower
}

// Query renders the search query for this window
func (w Window) Query(base string) string {
	var b strings.Builder
	b.WriteString(base)
	if w.Lower > 0 {
		b.WriteString(" created_at>")
		b.WriteString(formatAge(w.Lower))
	}
	b.WriteString(" created_at<=")
	b.WriteString(formatAge(w.Upper))
	return b.String()
}

func (w Window) String() string {
	return fmt.Sprintf("(%s, %s]", formatAge(w.Lower), formatAge(w.Upper))
}

// formatAge renders a duration in the search API's relative-time syntax
func formatAge(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d%s", n, unit)
	}
	return fmt.Sprintf("%d%ss", n, unit)
}

// DefaultEdges are the window boundaries: 1-minute buckets for the first
// 15 minutes, 15-minute buckets up to 2 hours, then coarser hour buckets
// out to 48 hours. Finer buckets near the present keep each query under the
// search API's per-query result cap during busy periods.
func DefaultEdges() []time.Duration {
	var edges []time.Duration
	for m := 0; m <= 15; m++ {
		edges = append(edges, time.Duration(m)*time.Minute)
	}
	for m := 30; m <= 120; m += 15 {
		edges = append(edges, time.Duration(m)*time.Minute)
	}
	for _, h := range []int{4, 6, 8, 10, 12, 24, 36, 48} {
		edges = append(edges, time.Duration(h)*time.Hour)
	}
	return edges
}

// BuildWindows turns ascending edges into contiguous, non-overlapping
// windows ordered oldest first. Edges must start at zero and be strictly
// increasing.
func BuildWindows(edges []time.Duration) ([]Window, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("need at least two edges (got %d)", len(edges))
	}
	if edges[0] != 0 {
		return nil, fmt.Errorf("first edge must be zero (got %v)", edges[0])
	}
	windows := make([]Window, 0, len(edges)-1)
	for i := len(edges) - 1; i > 0; i-- {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("edges must be strictly increasing (%v after %v)", edges[i], edges[i-1])
		}
		if edges[i]%time.Minute != 0 {
			return nil, fmt.Errorf("edge %v is not a whole number of minutes", edges[i])
		}
		windows = append(windows, Window{Lower: edges[i-1], Upper: edges[i]})
	}
	return windows, nil
}

// Windows returns the default window set, oldest first
func Windows() []Window {
	windows, err := BuildWindows(DefaultEdges())
	if err != nil {
		panic(fmt.Sprintf("default window edges are invalid: %v", err))
	}
	return windows
}

// MaxAge is the outer bound covered by the windows
func MaxAge(windows []Window) time.Duration {
	var outer time.Duration
	for _, w := range windows {
		outer = max(outer, w.Upper)
	}
	return outer
}
