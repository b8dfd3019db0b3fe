package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// InsertQueueEntry writes one pending queue entry. The engine only ever
// creates pending rows; status transitions belong to the action worker.
func (s *PostgresStore) InsertQueueEntry(ctx context.Context, entry domain.QueueEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queue_entries (id, organization_id, rule_id, event_id, event_name, payload_snapshot, status, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
	`, uuid.NewString(), entry.OrganizationID, entry.RuleID, entry.EventID,
		entry.EventName, entry.PayloadSnapshot, domain.QueueStatusPending)
	if err != nil {
		return fmt.Errorf("inserting queue entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListQueueEntries(ctx context.Context, orgID, status string, limit int) ([]domain.QueueEntry, error) {
	query := `
		SELECT id, organization_id, rule_id, event_id, event_name, payload_snapshot, status, attempts, created_at
		FROM queue_entries WHERE organization_id = $1`
	args := []interface{}{orgID}
	argIdx := 2

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying queue entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.QueueEntry{}
	for rows.Next() {
		var e domain.QueueEntry
		err := rows.Scan(&e.ID, &e.OrganizationID, &e.RuleID, &e.EventID, &e.EventName,
			&e.PayloadSnapshot, &e.Status, &e.Attempts, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning queue entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}
