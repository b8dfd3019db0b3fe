package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/condition"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/metrics"
)

// match evaluates every candidate rule against the event and writes one
// pending queue entry per match. Rules are independent, so they are fanned
// out over a small fixed worker set; one rule's failure never blocks the
// others and partial progress is never rolled back.
func (e *Engine) match(ctx context.Context, event *domain.Event) (*EmitResult, error) {
	rules, err := e.rules.ActiveRules(ctx, event.OrganizationID, event.Name)
	if err != nil {
		return nil, fmt.Errorf("loading candidate rules: %w", err)
	}

	result := &EmitResult{EventID: event.ID}
	if len(rules) == 0 {
		return result, nil
	}

	// The payload was validated in Emit. A non-object document (array,
	// bare scalar) decodes to nil here: every field lookup resolves to
	// undefined, so only filterless rules match it.
	var payload map[string]any
	_ = json.Unmarshal(event.Payload, &payload)

	workers := e.workers
	if workers > len(rules) {
		workers = len(rules)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan domain.AutomationRule)
	)

	record := func(ruleID string, matched bool, queued bool, ruleErr *RuleError) {
		mu.Lock()
		defer mu.Unlock()
		if matched {
			result.RulesMatched++
			result.MatchedRuleIDs = append(result.MatchedRuleIDs, ruleID)
		}
		if queued {
			result.RulesQueued++
		}
		if ruleErr != nil && len(result.RuleErrors) < maxRuleErrors {
			result.RuleErrors = append(result.RuleErrors, ruleErr)
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rule := range jobs {
				e.matchOne(ctx, event, rule, payload, record)
			}
		}()
	}

	for _, rule := range rules {
		jobs <- rule
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

func (e *Engine) matchOne(ctx context.Context, event *domain.Event, rule domain.AutomationRule, payload map[string]any, record func(ruleID string, matched, queued bool, ruleErr *RuleError)) {
	tree, err := condition.Parse(rule.Filters)
	if err != nil {
		metrics.RuleErrors.WithLabelValues(StageEvaluate).Inc()
		e.logger.Warn("rule filter could not be evaluated",
			"organization_id", event.OrganizationID,
			"rule_id", rule.ID,
			"error", err,
		)
		record(rule.ID, false, false, &RuleError{RuleID: rule.ID, RuleName: rule.Name, Stage: StageEvaluate, Err: err})
		return
	}

	if !tree.Match(payload) {
		record(rule.ID, false, false, nil)
		return
	}
	metrics.RulesMatched.Inc()

	entry := domain.QueueEntry{
		OrganizationID:  event.OrganizationID,
		RuleID:          rule.ID,
		EventID:         event.ID,
		EventName:       event.Name,
		PayloadSnapshot: append(json.RawMessage(nil), event.Payload...),
		Status:          domain.QueueStatusPending,
	}
	if err := e.queue.InsertQueueEntry(ctx, entry); err != nil {
		metrics.RuleErrors.WithLabelValues(StageEnqueue).Inc()
		e.logger.Error("failed to queue matched rule",
			"organization_id", event.OrganizationID,
			"rule_id", rule.ID,
			"event_id", event.ID,
			"error", err,
		)
		record(rule.ID, true, false, &RuleError{RuleID: rule.ID, RuleName: rule.Name, Stage: StageEnqueue, Err: err})
		return
	}
	metrics.QueueEntriesWritten.Inc()
	record(rule.ID, true, true, nil)
}
