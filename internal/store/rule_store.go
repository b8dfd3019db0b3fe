package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

const ruleColumns = `r.id, r.organization_id, r.name, r.filters, r.actions, r.is_active, r.created_at, r.updated_at,
	ARRAY(SELECT event_name FROM rule_trigger_events t WHERE t.rule_id = r.id ORDER BY event_name)`

func scanRule(row pgx.Row) (*domain.AutomationRule, error) {
	var rule domain.AutomationRule
	var actionsRaw []byte
	err := row.Scan(
		&rule.ID, &rule.OrganizationID, &rule.Name, &rule.Filters, &actionsRaw,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt, &rule.TriggerEvents,
	)
	if err != nil {
		return nil, err
	}
	if len(actionsRaw) > 0 {
		if err := json.Unmarshal(actionsRaw, &rule.Actions); err != nil {
			return nil, fmt.Errorf("decoding rule actions: %w", err)
		}
	}
	return &rule, nil
}

// CreateRule inserts the rule and its trigger-event rows in one transaction.
func (s *PostgresStore) CreateRule(ctx context.Context, orgID string, req domain.CreateRuleRequest) (*domain.AutomationRule, error) {
	actions, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("encoding rule actions: %w", err)
	}

	filters := req.Filters
	if len(filters) == 0 {
		filters = json.RawMessage(`{}`)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ruleID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO automation_rules (id, organization_id, name, filters, actions)
		VALUES ($1, $2, $3, $4, $5)
	`, ruleID, orgID, req.Name, filters, actions)
	if err != nil {
		return nil, fmt.Errorf("inserting rule: %w", err)
	}

	for _, eventName := range req.TriggerEvents {
		_, err = tx.Exec(ctx, `
			INSERT INTO rule_trigger_events (rule_id, event_name)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, ruleID, eventName)
		if err != nil {
			return nil, fmt.Errorf("inserting trigger event %s: %w", eventName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return s.GetRule(ctx, orgID, ruleID)
}

func (s *PostgresStore) GetRule(ctx context.Context, orgID, id string) (*domain.AutomationRule, error) {
	rule, err := scanRule(s.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules r
		WHERE r.organization_id = $1 AND r.id = $2
	`, orgID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying rule: %w", err)
	}
	return rule, nil
}

func (s *PostgresStore) ListRules(ctx context.Context, orgID string) ([]domain.AutomationRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules r
		WHERE r.organization_id = $1
		ORDER BY r.created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	return rules, nil
}

// ActiveRules returns the organization's active rules whose trigger-event
// set contains eventName. Exact set membership only — no wildcard or prefix
// matching.
func (s *PostgresStore) ActiveRules(ctx context.Context, orgID, eventName string) ([]domain.AutomationRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules r
		WHERE r.organization_id = $1
		  AND r.is_active = true
		  AND EXISTS (
			SELECT 1 FROM rule_trigger_events t
			WHERE t.rule_id = r.id AND t.event_name = $2
		  )
		ORDER BY r.created_at
	`, orgID, eventName)
	if err != nil {
		return nil, fmt.Errorf("querying active rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	return rules, nil
}

// UpdateRule applies a partial update; replacing trigger events rewrites the
// join rows in the same transaction.
func (s *PostgresStore) UpdateRule(ctx context.Context, orgID, id string, req domain.UpdateRuleRequest) (*domain.AutomationRule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ownership check up front: the trigger-event rows below are keyed by
	// rule_id alone, so the organization predicate must hold before any of
	// them are touched.
	var owned bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM automation_rules WHERE organization_id = $1 AND id = $2)
	`, orgID, id).Scan(&owned)
	if err != nil {
		return nil, fmt.Errorf("checking rule ownership: %w", err)
	}
	if !owned {
		return nil, nil
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *req.Name)
		argIdx++
	}
	if len(req.Filters) > 0 {
		setClauses = append(setClauses, fmt.Sprintf("filters = $%d", argIdx))
		args = append(args, req.Filters)
		argIdx++
	}
	if req.Actions != nil {
		actions, err := json.Marshal(*req.Actions)
		if err != nil {
			return nil, fmt.Errorf("encoding rule actions: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("actions = $%d", argIdx))
		args = append(args, actions)
		argIdx++
	}
	if req.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *req.IsActive)
		argIdx++
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = NOW()")
		query := fmt.Sprintf(`
			UPDATE automation_rules SET %s
			WHERE organization_id = $%d AND id = $%d
		`, strings.Join(setClauses, ", "), argIdx, argIdx+1)
		args = append(args, orgID, id)

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("updating rule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, nil
		}
	}

	if req.TriggerEvents != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM rule_trigger_events WHERE rule_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clearing trigger events: %w", err)
		}
		for _, eventName := range *req.TriggerEvents {
			_, err := tx.Exec(ctx, `
				INSERT INTO rule_trigger_events (rule_id, event_name)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, id, eventName)
			if err != nil {
				return nil, fmt.Errorf("inserting trigger event %s: %w", eventName, err)
			}
		}
		if len(setClauses) == 0 {
			// Rewriting the join rows is an update of the rule too.
			_, err := tx.Exec(ctx, `
				UPDATE automation_rules SET updated_at = NOW()
				WHERE organization_id = $1 AND id = $2
			`, orgID, id)
			if err != nil {
				return nil, fmt.Errorf("touching rule timestamp: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return s.GetRule(ctx, orgID, id)
}
