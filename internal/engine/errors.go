package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation failures, returned before anything is written.
var (
	ErrMissingOrganization = errors.New("organization id is required")
	ErrInvalidEventName    = errors.New("event name must be dot-namespaced, e.g. \"donation.created\"")
	ErrInvalidPayload      = errors.New("payload must be a valid JSON document")
)

// Per-rule failure stages.
const (
	StageEvaluate = "evaluate"
	StageEnqueue  = "enqueue"
)

// maxRuleErrors bounds the error list returned from a single Emit so a
// tenant with thousands of broken rules cannot balloon the response.
const maxRuleErrors = 25

// RuleError records one rule's failure during matching. It never aborts the
// match loop; the remaining rules still run.
type RuleError struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Stage    string `json:"stage"`
	Err      error  `json:"-"`
}

// MarshalJSON flattens the wrapped error into a string so API responses
// carry the failure reason, not an opaque object.
func (e *RuleError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RuleID   string `json:"rule_id"`
		RuleName string `json:"rule_name"`
		Stage    string `json:"stage"`
		Detail   string `json:"detail"`
	}{e.RuleID, e.RuleName, e.Stage, fmt.Sprintf("%v", e.Err)})
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s (%s) failed at %s: %v", e.RuleID, e.RuleName, e.Stage, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
