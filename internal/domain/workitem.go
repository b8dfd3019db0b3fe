package domain

import "time"

// Work item statuses. Scanners create items as open; after first creation
// only explicit user actions (snooze/complete) mutate the status.
const (
	WorkItemStatusOpen    = "open"
	WorkItemStatusSnoozed = "snoozed"
	WorkItemStatusDone    = "done"
)

// WorkItem is an alert materialized by a periodic scanner. DedupeKey is a
// deterministic function of stable entity identity and alert kind
// (e.g. "membership:renewal:<membership_id>"), unique per organization, so
// re-running a scan over unchanged data never produces a second row.
type WorkItem struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	DedupeKey      string     `json:"dedupe_key"`
	Kind           string     `json:"kind"`
	Title          string     `json:"title"`
	EntityType     string     `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
