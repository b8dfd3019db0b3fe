package domain

import (
	"encoding/json"
	"time"
)

// AutomationRule binds a set of trigger event names and a filter tree to an
// ordered list of actions. Rules are created and edited by administrators;
// the engine only ever reads them. A rule with no trigger events can never
// match — that is a valid (if useless) rule, not an error.
type AutomationRule struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	TriggerEvents  []string        `json:"trigger_events"`
	Filters        json.RawMessage `json:"filters,omitempty"`
	Actions        []Action        `json:"actions"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Action describes one side effect an external worker should perform when
// the rule fires (send an email, create a task, notify staff).
type Action struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

type CreateRuleRequest struct {
	Name          string          `json:"name"`
	TriggerEvents []string        `json:"trigger_events"`
	Filters       json.RawMessage `json:"filters,omitempty"`
	Actions       []Action        `json:"actions"`
}

type UpdateRuleRequest struct {
	Name          *string         `json:"name,omitempty"`
	TriggerEvents *[]string       `json:"trigger_events,omitempty"`
	Filters       json.RawMessage `json:"filters,omitempty"`
	Actions       *[]Action       `json:"actions,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}
