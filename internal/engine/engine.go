package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/metrics"
)

// EventLog persists immutable event rows. The insert is the one
// integrity-critical write in an Emit call: if it fails, nothing else runs.
type EventLog interface {
	InsertEvent(ctx context.Context, event domain.Event) (*domain.Event, error)
}

// RuleSource yields the active rules of an organization whose trigger-event
// set contains the given event name.
type RuleSource interface {
	ActiveRules(ctx context.Context, orgID, eventName string) ([]domain.AutomationRule, error)
}

// QueueWriter persists pending queue entries for matched rules.
type QueueWriter interface {
	InsertQueueEntry(ctx context.Context, entry domain.QueueEntry) error
}

// Engine logs business events and dispatches them against tenant-scoped
// automation rules. Stores are injected so tests can run against fakes.
type Engine struct {
	events  EventLog
	rules   RuleSource
	queue   QueueWriter
	logger  *slog.Logger
	workers int
}

func New(events EventLog, rules RuleSource, queue QueueWriter, workers int, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		events:  events,
		rules:   rules,
		queue:   queue,
		logger:  logger,
		workers: workers,
	}
}

// EmitResult reports what one Emit call did. RuleErrors is bounded; a
// non-empty list with queued entries means partial success, which is success.
type EmitResult struct {
	EventID        string       `json:"event_id"`
	RulesMatched   int          `json:"rules_matched"`
	RulesQueued    int          `json:"rules_queued"`
	MatchedRuleIDs []string     `json:"matched_rule_ids,omitempty"`
	RuleErrors     []*RuleError `json:"rule_errors,omitempty"`
}

// Emit validates and logs one event, then queues work for every active rule
// of the organization that matches it. The returned error is hard only when
// the event itself could not be validated or durably logged, or when the
// rule set could not be read at all; individual rule failures are isolated
// into the result.
func (e *Engine) Emit(ctx context.Context, orgID, eventName string, payload json.RawMessage, sourceType, sourceID string) (*EmitResult, error) {
	if orgID == "" {
		return nil, ErrMissingOrganization
	}
	if !ValidEventName(eventName) {
		metrics.EventsRejected.Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventName, eventName)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		metrics.EventsRejected.Inc()
		return nil, ErrInvalidPayload
	}

	event, err := e.events.InsertEvent(ctx, domain.Event{
		OrganizationID: orgID,
		Name:           eventName,
		Payload:        payload,
		SourceType:     sourceType,
		SourceID:       sourceID,
	})
	if err != nil {
		// Matching against an unlogged event would be unauditable.
		return nil, fmt.Errorf("logging event: %w", err)
	}
	metrics.EventsEmitted.WithLabelValues(eventName).Inc()

	result, err := e.match(ctx, event)
	if err != nil {
		return nil, err
	}

	e.logger.Info("event dispatched",
		"organization_id", orgID,
		"event_id", event.ID,
		"event_name", eventName,
		"rules_matched", result.RulesMatched,
		"rules_queued", result.RulesQueued,
		"rule_errors", len(result.RuleErrors),
	)
	return result, nil
}

// ValidEventName reports whether name is dot-namespaced: at least two
// non-empty segments of lowercase letters, digits and underscores. The
// taxonomy itself is open — unknown names are legal and match zero rules.
func ValidEventName(name string) bool {
	segments := 0
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			if i == start {
				return false
			}
			segments++
			start = i + 1
			continue
		}
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return segments >= 2
}
