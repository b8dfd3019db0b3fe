package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// UpsertWorkItem inserts the work item, or does nothing if a row with the
// same (organization_id, dedupe_key) already exists. The conflict handling
// is pushed to the unique constraint so overlapping scanner runs cannot
// create duplicates, and an existing row's status is never touched — after
// first creation only user actions mutate it. Returns whether a row was
// created.
func (s *PostgresStore) UpsertWorkItem(ctx context.Context, item domain.WorkItem) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO work_items (id, organization_id, dedupe_key, kind, title, entity_type, entity_id, due_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (organization_id, dedupe_key) DO NOTHING
	`, uuid.NewString(), item.OrganizationID, item.DedupeKey, item.Kind, item.Title,
		item.EntityType, item.EntityID, item.DueAt, item.Status)
	if err != nil {
		return false, fmt.Errorf("upserting work item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetWorkItem(ctx context.Context, orgID, id string) (*domain.WorkItem, error) {
	var item domain.WorkItem
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, dedupe_key, kind, title, entity_type, entity_id, due_at, status, created_at, updated_at
		FROM work_items WHERE organization_id = $1 AND id = $2
	`, orgID, id).Scan(
		&item.ID, &item.OrganizationID, &item.DedupeKey, &item.Kind, &item.Title,
		&item.EntityType, &item.EntityID, &item.DueAt, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying work item: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListWorkItems(ctx context.Context, orgID, status string, limit int) ([]domain.WorkItem, error) {
	query := `
		SELECT id, organization_id, dedupe_key, kind, title, entity_type, entity_id, due_at, status, created_at, updated_at
		FROM work_items WHERE organization_id = $1`
	args := []interface{}{orgID}
	argIdx := 2

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	query += " ORDER BY due_at NULLS LAST, created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying work items: %w", err)
	}
	defer rows.Close()

	items := []domain.WorkItem{}
	for rows.Next() {
		var item domain.WorkItem
		err := rows.Scan(&item.ID, &item.OrganizationID, &item.DedupeKey, &item.Kind, &item.Title,
			&item.EntityType, &item.EntityID, &item.DueAt, &item.Status, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning work item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// SetWorkItemStatus records a user action (snooze/complete) on an item.
// This is the only path that mutates a work item after creation.
func (s *PostgresStore) SetWorkItemStatus(ctx context.Context, orgID, id, status string) (*domain.WorkItem, error) {
	var item domain.WorkItem
	err := s.pool.QueryRow(ctx, `
		UPDATE work_items SET status = $3, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2
		RETURNING id, organization_id, dedupe_key, kind, title, entity_type, entity_id, due_at, status, created_at, updated_at
	`, orgID, id, status).Scan(
		&item.ID, &item.OrganizationID, &item.DedupeKey, &item.Kind, &item.Title,
		&item.EntityType, &item.EntityID, &item.DueAt, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("updating work item status: %w", err)
	}
	return &item, nil
}
