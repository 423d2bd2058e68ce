// Package deduplication decides how duplicate support tickets are resolved.
//
// # Overview
//
// Chat transcripts are filed as tickets whose subject carries the booking id
// ("Booking ID: 123 CID: 456"). A customer who reconnects produces a second
// ticket for the same booking. This package finds those groups and decides,
// per group, which ticket survives.
//
// # Architecture
//
//  1. Group: partition annotated tickets by booking id and keep groups with
//     more than one member. Member order is fetch order.
//  2. Planner.Plan: rank a group by ticket id (higher is newer), keep the
//     newest as primary, and mark the rest as duplicates. For each duplicate
//     with a conversation id, look the conversation up and mark it for a
//     queue transfer if it is still open.
//
// Both steps are side-effect free apart from the conversation lookup; the
// actions package applies the resulting plans.
//
// # Failure Handling
//
// A failed conversation lookup never fails the plan. The duplicate is still
// tagged and solved; only the queue transfer is skipped and the error is kept
// on the resolution for reporting.
//
// # Configuration
//
// Tag names and the target queue come from Config (see Config.ApplyEnv).
package deduplication
