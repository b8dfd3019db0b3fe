package domain

import (
	"encoding/json"
	"time"
)

// Queue entry statuses. The engine only ever writes pending rows; the
// remaining transitions belong to the external action worker.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusDone       = "done"
	QueueStatusFailed     = "failed"
)

// QueueEntry is a durable record meaning "this rule should execute for this
// event". PayloadSnapshot is a copy of the event payload taken at match time,
// not a live reference, so pending work survives event log compaction.
type QueueEntry struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	RuleID          string          `json:"rule_id"`
	EventID         string          `json:"event_id"`
	EventName       string          `json:"event_name"`
	PayloadSnapshot json.RawMessage `json:"payload_snapshot"`
	Status          string          `json:"status"`
	Attempts        int             `json:"attempts"`
	CreatedAt       time.Time       `json:"created_at"`
}
