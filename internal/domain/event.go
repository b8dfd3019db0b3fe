package domain

import (
	"encoding/json"
	"time"
)

// Event is an immutable fact: something that happened inside an organization,
// tagged with a dot-namespaced name like "donation.created". Events are
// write-once; nothing in the engine updates or deletes them.
type Event struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	Payload        json.RawMessage `json:"payload"`
	SourceType     string          `json:"source_type,omitempty"`
	SourceID       string          `json:"source_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
