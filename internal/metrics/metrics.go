package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_events_emitted_total",
		Help: "Total number of events logged by the emitter, labelled by event name.",
	}, []string{"event_name"})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_events_rejected_total",
		Help: "Total number of events rejected before logging (invalid name or payload).",
	})

	RulesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_rules_matched_total",
		Help: "Total number of rule matches across all events.",
	})

	RuleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_rule_errors_total",
		Help: "Total number of per-rule failures, labelled by stage (evaluate or enqueue).",
	}, []string{"stage"})

	QueueEntriesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_queue_entries_written_total",
		Help: "Total number of pending queue entries written by the matcher.",
	})

	WorkItemsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_work_items_created_total",
		Help: "Total number of work items created by scanners, labelled by kind.",
	}, []string{"kind"})

	WorkItemsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_work_items_deduplicated_total",
		Help: "Total number of scanner upserts skipped because the dedupe key already existed.",
	}, []string{"kind"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automation_audit_write_failures_total",
		Help: "Total number of audit entries that could not be persisted.",
	})
)
