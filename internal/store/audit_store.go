package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// InsertAuditEntry appends one audit row. Callers treat failures as
// advisory; the audit.Recorder swallows them.
func (s *PostgresStore) InsertAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, organization_id, actor, action, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), entry.OrganizationID, entry.Actor, entry.Action,
		entry.EntityType, entry.EntityID, metadata)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, organization_id, actor, action, entity_type, entity_id, metadata, created_at
		FROM audit_log WHERE organization_id = $1
		ORDER BY created_at DESC`
	args := []interface{}{orgID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var metadata []byte
		err := rows.Scan(&e.ID, &e.OrganizationID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &metadata, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding audit metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}

	return entries, nil
}
