package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// InsertEvent writes one immutable event row and returns it with its id and
// timestamp filled in.
func (s *PostgresStore) InsertEvent(ctx context.Context, event domain.Event) (*domain.Event, error) {
	var out domain.Event
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (id, organization_id, name, payload, source_type, source_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, organization_id, name, payload, source_type, source_id, created_at
	`, uuid.NewString(), event.OrganizationID, event.Name, event.Payload, event.SourceType, event.SourceID).Scan(
		&out.ID, &out.OrganizationID, &out.Name, &out.Payload, &out.SourceType, &out.SourceID, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, orgID, id string) (*domain.Event, error) {
	var event domain.Event
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, payload, source_type, source_id, created_at
		FROM events WHERE organization_id = $1 AND id = $2
	`, orgID, id).Scan(
		&event.ID, &event.OrganizationID, &event.Name, &event.Payload,
		&event.SourceType, &event.SourceID, &event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return &event, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, orgID, eventName string, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, organization_id, name, payload, source_type, source_id, created_at
		FROM events WHERE organization_id = $1`
	args := []interface{}{orgID}
	argIdx := 2

	if eventName != "" {
		query += fmt.Sprintf(" AND name = $%d", argIdx)
		args = append(args, eventName)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		err := rows.Scan(&e.ID, &e.OrganizationID, &e.Name, &e.Payload, &e.SourceType, &e.SourceID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}

	if events == nil {
		events = []domain.Event{}
	}

	return events, nil
}
