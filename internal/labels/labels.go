// Package labels holds the ticket tags and queue names written by a run.
//
// Tag Flow:
// - newest ticket of a duplicate group → primary_ticket
// - every older ticket → duplicate_ticket, then solved
// - an older ticket's open conversation → duplicates queue
package labels

import (
	"fmt"
	"strings"
)

const (
	// TagPrimary marks the ticket kept open for a booking
	TagPrimary = "primary_ticket"
	// TagDuplicate marks a ticket closed as a duplicate of the primary
	TagDuplicate = "duplicate_ticket"
	// QueueDuplicates is where open conversations of duplicate tickets go
	QueueDuplicates = "duplicates"
)

// HasTag checks if tags contains tag.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MergeTag returns existing plus tag. The ticket source replaces the whole
// tag set on update, so existing tags must be carried over. changed is false
// when the tag was already present; the returned slice is then a copy of
// existing.
func MergeTag(existing []string, tag string) (merged []string, changed bool) {
	merged = make([]string, 0, len(existing)+1)
	merged = append(merged, existing...)
	if HasTag(existing, tag) {
		return merged, false
	}
	return append(merged, tag), true
}

// ValidateTag checks a tag is usable by the ticket source: non-empty, no
// whitespace (whitespace splits a tag in two).
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}
	if strings.ContainsAny(tag, " \t\r\n") {
		return fmt.Errorf("tag %q cannot contain whitespace", tag)
	}
	if len(tag) > 80 {
		return fmt.Errorf("tag %q too long (max 80 characters)", tag)
	}
	return nil
}
