package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// ListMembershipsExpiringBefore returns the organization's memberships whose
// expiry falls between now and the cutoff. Already-expired memberships are
// excluded; lapsed-member handling is a separate process.
func (s *PostgresStore) ListMembershipsExpiringBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, member_name, email, level, expires_at
		FROM memberships
		WHERE organization_id = $1
		  AND expires_at > NOW()
		  AND expires_at <= $2
		ORDER BY expires_at
	`, orgID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying expiring memberships: %w", err)
	}
	defer rows.Close()

	memberships := []domain.Membership{}
	for rows.Next() {
		var m domain.Membership
		err := rows.Scan(&m.ID, &m.OrganizationID, &m.MemberName, &m.Email, &m.Level, &m.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, nil
}

// ListGrantsWithReportDueBefore returns the organization's grants with a
// report deadline between now and the cutoff.
func (s *PostgresStore) ListGrantsWithReportDueBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Grant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, funder, name, amount_cents, report_due_at
		FROM grants
		WHERE organization_id = $1
		  AND report_due_at > NOW()
		  AND report_due_at <= $2
		ORDER BY report_due_at
	`, orgID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying grants with reports due: %w", err)
	}
	defer rows.Close()

	grants := []domain.Grant{}
	for rows.Next() {
		var g domain.Grant
		err := rows.Scan(&g.ID, &g.OrganizationID, &g.Funder, &g.Name, &g.AmountCents, &g.ReportDueAt)
		if err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, nil
}

// InsertDonation records one gift and returns the stored row.
func (s *PostgresStore) InsertDonation(ctx context.Context, orgID string, req domain.CreateDonationRequest) (*domain.Donation, error) {
	receivedAt := time.Now().UTC()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	var d domain.Donation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO donations (id, organization_id, donor_name, email, amount_cents, currency, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, organization_id, donor_name, email, amount_cents, currency, received_at, created_at
	`, uuid.NewString(), orgID, req.DonorName, req.Email, req.AmountCents, currency, receivedAt).Scan(
		&d.ID, &d.OrganizationID, &d.DonorName, &d.Email, &d.AmountCents, &d.Currency, &d.ReceivedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting donation: %w", err)
	}
	return &d, nil
}
