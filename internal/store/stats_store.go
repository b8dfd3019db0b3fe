package store

import (
	"context"
	"fmt"
)

// AutomationStats holds per-organization aggregate counts for the stats
// endpoint.
type AutomationStats struct {
	TotalEvents       int `json:"total_events"`
	ActiveRules       int `json:"active_rules"`
	PendingQueue      int `json:"pending_queue_entries"`
	ProcessingQueue   int `json:"processing_queue_entries"`
	FailedQueue       int `json:"failed_queue_entries"`
	OpenWorkItems     int `json:"open_work_items"`
	SnoozedWorkItems  int `json:"snoozed_work_items"`
	AuditEntriesTotal int `json:"audit_entries_total"`
}

// GetAutomationStats returns aggregate automation counts for one
// organization.
func (s *PostgresStore) GetAutomationStats(ctx context.Context, orgID string) (*AutomationStats, error) {
	var stats AutomationStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'processing') AS processing,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM queue_entries WHERE organization_id = $1
	`, orgID).Scan(&stats.PendingQueue, &stats.ProcessingQueue, &stats.FailedQueue)
	if err != nil {
		return nil, fmt.Errorf("querying queue stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'open') AS open,
			COUNT(*) FILTER (WHERE status = 'snoozed') AS snoozed
		FROM work_items WHERE organization_id = $1
	`, orgID).Scan(&stats.OpenWorkItems, &stats.SnoozedWorkItems)
	if err != nil {
		return nil, fmt.Errorf("querying work item stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events WHERE organization_id = $1
	`, orgID).Scan(&stats.TotalEvents)
	if err != nil {
		return nil, fmt.Errorf("querying event count: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM automation_rules WHERE organization_id = $1 AND is_active = true
	`, orgID).Scan(&stats.ActiveRules)
	if err != nil {
		return nil, fmt.Errorf("querying active rule count: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_log WHERE organization_id = $1
	`, orgID).Scan(&stats.AuditEntriesTotal)
	if err != nil {
		return nil, fmt.Errorf("querying audit count: %w", err)
	}

	return &stats, nil
}
