package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

type fakeEventLog struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *fakeEventLog) InsertEvent(_ context.Context, event domain.Event) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = fmt.Sprintf("evt-%d", len(f.events)+1)
	f.events = append(f.events, event)
	return &event, nil
}

// fakeRuleSource filters by organization and trigger-event membership the
// way the real store query does.
type fakeRuleSource struct {
	rules []domain.AutomationRule
	err   error
}

func (f *fakeRuleSource) ActiveRules(_ context.Context, orgID, eventName string) ([]domain.AutomationRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.AutomationRule
	for _, rule := range f.rules {
		if rule.OrganizationID != orgID || !rule.IsActive {
			continue
		}
		for _, trigger := range rule.TriggerEvents {
			if trigger == eventName {
				out = append(out, rule)
				break
			}
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	entries    []domain.QueueEntry
	failRuleID string
}

func (f *fakeQueue) InsertQueueEntry(_ context.Context, entry domain.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRuleID != "" && entry.RuleID == f.failRuleID {
		return errors.New("connection reset")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeQueue) forRule(ruleID string) []domain.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QueueEntry
	for _, e := range f.entries {
		if e.RuleID == ruleID {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(events *fakeEventLog, rules *fakeRuleSource, queue *fakeQueue) *Engine {
	return New(events, rules, queue, 4, testLogger())
}

func TestEmit_LargeDonationScenario(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{
			ID:             "rule-large",
			OrganizationID: "org-1",
			Name:           "Large Donation Alert",
			TriggerEvents:  []string{"donation.created"},
			Filters:        json.RawMessage(`{"amount_cents":{"gte":100000}}`),
			IsActive:       true,
		},
		{
			ID:             "rule-member",
			OrganizationID: "org-1",
			Name:           "Welcome New Member",
			TriggerEvents:  []string{"member.created"},
			IsActive:       true,
		},
	}}
	events := &fakeEventLog{}
	queue := &fakeQueue{}
	eng := newTestEngine(events, rules, queue)

	result, err := eng.Emit(context.Background(), "org-1", "donation.created",
		json.RawMessage(`{"amount_cents":150000}`), "api", "")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if result.RulesMatched != 1 || result.RulesQueued != 1 {
		t.Errorf("expected 1 matched/1 queued, got %d/%d", result.RulesMatched, result.RulesQueued)
	}
	if len(result.RuleErrors) != 0 {
		t.Errorf("expected no rule errors, got %v", result.RuleErrors)
	}
	if len(result.MatchedRuleIDs) != 1 || result.MatchedRuleIDs[0] != "rule-large" {
		t.Errorf("expected matched rule ids [rule-large], got %v", result.MatchedRuleIDs)
	}
	if got := queue.forRule("rule-large"); len(got) != 1 {
		t.Fatalf("expected exactly 1 entry for rule-large, got %d", len(got))
	}
	if got := queue.forRule("rule-member"); len(got) != 0 {
		t.Errorf("rule with a different trigger event must not queue, got %d entries", len(got))
	}

	entry := queue.forRule("rule-large")[0]
	if entry.Status != domain.QueueStatusPending {
		t.Errorf("new entries must be pending, got %q", entry.Status)
	}
	if entry.EventID != result.EventID || entry.EventName != "donation.created" {
		t.Errorf("entry should reference the logged event: %+v", entry)
	}
	if entry.OrganizationID != "org-1" {
		t.Errorf("entry must be org-scoped, got %q", entry.OrganizationID)
	}
}

func TestEmit_BelowThresholdMatchesNothing(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{{
		ID:             "rule-large",
		OrganizationID: "org-1",
		TriggerEvents:  []string{"donation.created"},
		Filters:        json.RawMessage(`{"amount_cents":{"gte":100000}}`),
		IsActive:       true,
	}}}
	events := &fakeEventLog{}
	queue := &fakeQueue{}
	eng := newTestEngine(events, rules, queue)

	result, err := eng.Emit(context.Background(), "org-1", "donation.created",
		json.RawMessage(`{"amount_cents":50000}`), "api", "")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if result.RulesMatched != 0 || result.RulesQueued != 0 {
		t.Errorf("expected no matches, got %d/%d", result.RulesMatched, result.RulesQueued)
	}
	if len(queue.entries) != 0 {
		t.Errorf("no entries expected, got %d", len(queue.entries))
	}
	// The event is still durably logged even when nothing matches.
	if len(events.events) != 1 {
		t.Errorf("event should be logged regardless of matching, got %d", len(events.events))
	}
}

func TestEmit_MalformedFilterIsIsolated(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{
			ID:             "rule-broken",
			OrganizationID: "org-1",
			Name:           "Broken",
			TriggerEvents:  []string{"donation.created"},
			Filters:        json.RawMessage(`{"amount_cents":{"betwixt":5}}`),
			IsActive:       true,
		},
		{
			ID:             "rule-ok",
			OrganizationID: "org-1",
			Name:           "Any Donation",
			TriggerEvents:  []string{"donation.created"},
			IsActive:       true,
		},
	}}
	events := &fakeEventLog{}
	queue := &fakeQueue{}
	eng := newTestEngine(events, rules, queue)

	result, err := eng.Emit(context.Background(), "org-1", "donation.created",
		json.RawMessage(`{"amount_cents":100}`), "api", "")
	if err != nil {
		t.Fatalf("one broken rule must not fail the call: %v", err)
	}

	if result.RulesQueued != 1 {
		t.Errorf("the healthy rule should still be queued, got %d", result.RulesQueued)
	}
	if len(result.RuleErrors) != 1 {
		t.Fatalf("expected 1 rule error, got %d", len(result.RuleErrors))
	}
	if result.RuleErrors[0].RuleID != "rule-broken" || result.RuleErrors[0].Stage != StageEvaluate {
		t.Errorf("unexpected rule error: %+v", result.RuleErrors[0])
	}
	if got := queue.forRule("rule-ok"); len(got) != 1 {
		t.Errorf("expected 1 entry for the healthy rule, got %d", len(got))
	}
}

func TestEmit_QueueWriteFailureIsIsolated(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{ID: "rule-a", OrganizationID: "org-1", TriggerEvents: []string{"grant.submitted"}, IsActive: true},
		{ID: "rule-b", OrganizationID: "org-1", TriggerEvents: []string{"grant.submitted"}, IsActive: true},
	}}
	events := &fakeEventLog{}
	queue := &fakeQueue{failRuleID: "rule-a"}
	eng := newTestEngine(events, rules, queue)

	result, err := eng.Emit(context.Background(), "org-1", "grant.submitted", nil, "api", "")
	if err != nil {
		t.Fatalf("a single queue write failure must not fail the call: %v", err)
	}

	if result.RulesMatched != 2 {
		t.Errorf("both rules matched, got %d", result.RulesMatched)
	}
	if result.RulesQueued != 1 {
		t.Errorf("only the surviving rule should count as queued, got %d", result.RulesQueued)
	}
	if len(result.RuleErrors) != 1 || result.RuleErrors[0].Stage != StageEnqueue {
		t.Errorf("expected one enqueue error, got %+v", result.RuleErrors)
	}
	if got := queue.forRule("rule-b"); len(got) != 1 {
		t.Errorf("rule-b's entry should be written, got %d", len(got))
	}
}

func TestEmit_EventWriteFailureAbortsEverything(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{ID: "rule-a", OrganizationID: "org-1", TriggerEvents: []string{"donation.created"}, IsActive: true},
	}}
	events := &fakeEventLog{err: errors.New("disk full")}
	queue := &fakeQueue{}
	eng := newTestEngine(events, rules, queue)

	_, err := eng.Emit(context.Background(), "org-1", "donation.created", nil, "api", "")
	if err == nil {
		t.Fatal("matching against an unlogged event must not happen")
	}
	if len(queue.entries) != 0 {
		t.Errorf("no entries may be written when the event write fails, got %d", len(queue.entries))
	}
}

func TestEmit_ValidationRejectsBeforeLogging(t *testing.T) {
	events := &fakeEventLog{}
	eng := newTestEngine(events, &fakeRuleSource{}, &fakeQueue{})
	ctx := context.Background()

	if _, err := eng.Emit(ctx, "", "donation.created", nil, "api", ""); !errors.Is(err, ErrMissingOrganization) {
		t.Errorf("missing org: got %v", err)
	}
	if _, err := eng.Emit(ctx, "org-1", "donation", nil, "api", ""); !errors.Is(err, ErrInvalidEventName) {
		t.Errorf("undotted name: got %v", err)
	}
	if _, err := eng.Emit(ctx, "org-1", "donation.created", json.RawMessage(`{oops`), "api", ""); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("bad payload: got %v", err)
	}

	if len(events.events) != 0 {
		t.Errorf("rejected events must never reach the log, got %d", len(events.events))
	}
}

func TestEmit_UnknownEventNameIsLegal(t *testing.T) {
	events := &fakeEventLog{}
	eng := newTestEngine(events, &fakeRuleSource{}, &fakeQueue{})

	result, err := eng.Emit(context.Background(), "org-1", "custom.weird_thing.happened", nil, "webhook", "wh-1")
	if err != nil {
		t.Fatalf("the taxonomy is open; unknown names must be accepted: %v", err)
	}
	if result.RulesMatched != 0 {
		t.Errorf("unknown names match zero rules, got %d", result.RulesMatched)
	}
	if len(events.events) != 1 {
		t.Errorf("the event should still be logged, got %d", len(events.events))
	}
}

func TestEmit_SnapshotIsACopy(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{ID: "rule-a", OrganizationID: "org-1", TriggerEvents: []string{"donation.created"}, IsActive: true},
	}}
	queue := &fakeQueue{}
	eng := newTestEngine(&fakeEventLog{}, rules, queue)

	payload := []byte(`{"amount_cents":150000}`)
	if _, err := eng.Emit(context.Background(), "org-1", "donation.created", payload, "api", ""); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	copy(payload, []byte(`{"amount_cents":000000}`))

	entry := queue.forRule("rule-a")[0]
	if string(entry.PayloadSnapshot) != `{"amount_cents":150000}` {
		t.Errorf("snapshot must not alias the caller's buffer: %s", entry.PayloadSnapshot)
	}
}

func TestEmit_ManyRulesAllQueued(t *testing.T) {
	var ruleSet []domain.AutomationRule
	for i := 0; i < 37; i++ {
		ruleSet = append(ruleSet, domain.AutomationRule{
			ID:             fmt.Sprintf("rule-%d", i),
			OrganizationID: "org-1",
			TriggerEvents:  []string{"member.imported"},
			IsActive:       true,
		})
	}
	queue := &fakeQueue{}
	eng := newTestEngine(&fakeEventLog{}, &fakeRuleSource{rules: ruleSet}, queue)

	result, err := eng.Emit(context.Background(), "org-1", "member.imported", nil, "import", "batch-7")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if result.RulesQueued != 37 {
		t.Errorf("every independent rule should queue, got %d", result.RulesQueued)
	}
	if len(queue.entries) != 37 {
		t.Errorf("expected 37 entries, got %d", len(queue.entries))
	}
}

func TestValidEventName(t *testing.T) {
	valid := []string{"donation.created", "member.imported", "grant.report.due", "a.b", "x9.y_z"}
	invalid := []string{"", "donation", ".created", "donation.", "donation..created", "Donation.Created", "donation created", "donation.cre ated"}

	for _, name := range valid {
		if !ValidEventName(name) {
			t.Errorf("%q should be valid", name)
		}
	}
	for _, name := range invalid {
		if ValidEventName(name) {
			t.Errorf("%q should be invalid", name)
		}
	}
}
