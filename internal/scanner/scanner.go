package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/metrics"
)

// Work item kinds produced by the scanners.
const (
	KindMembershipRenewal = "membership_renewal"
	KindGrantReport       = "grant_report"
)

// Store is what a scan needs from persistence: candidate listings plus the
// atomic insert-or-ignore upsert. The upsert MUST be atomic on the
// (organization_id, dedupe_key) unique constraint — a check-then-insert
// races when a manual re-trigger overlaps the scheduled run.
type Store interface {
	ListMembershipsExpiringBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Membership, error)
	ListGrantsWithReportDueBefore(ctx context.Context, orgID string, cutoff time.Time) ([]domain.Grant, error)
	UpsertWorkItem(ctx context.Context, item domain.WorkItem) (bool, error)
}

// Result reports one scan run: how many candidates were derived from live
// data, how many were new this run, and how many upserts failed.
type Result struct {
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	Errors     int `json:"errors"`
}

// Scanner re-derives alert work items from current entity state. It is
// deliberately stateless: every run scans the whole live table and relies on
// the dedupe constraint to make re-runs no-ops.
type Scanner struct {
	store   Store
	logger  *slog.Logger
	workers int

	membershipWindow time.Duration
	grantWindow      time.Duration
}

func New(store Store, membershipWindow, grantWindow time.Duration, workers int, logger *slog.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		store:            store,
		logger:           logger,
		workers:          workers,
		membershipWindow: membershipWindow,
		grantWindow:      grantWindow,
	}
}

// DedupeKey builds the deterministic identity of one logical alert. It must
// be a pure function of stable entity identity and alert kind so re-running
// a scan on unchanged data recomputes the identical key.
func DedupeKey(entityType, kind, entityID string) string {
	return entityType + ":" + kind + ":" + entityID
}

// ScanMembershipRenewals upserts one renewal work item per membership of the
// organization expiring within the configured window.
func (s *Scanner) ScanMembershipRenewals(ctx context.Context, orgID string) (*Result, error) {
	cutoff := time.Now().Add(s.membershipWindow)
	memberships, err := s.store.ListMembershipsExpiringBefore(ctx, orgID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing expiring memberships: %w", err)
	}

	items := make([]domain.WorkItem, 0, len(memberships))
	for _, m := range memberships {
		due := m.ExpiresAt
		items = append(items, domain.WorkItem{
			OrganizationID: orgID,
			DedupeKey:      DedupeKey("membership", "renewal", m.ID),
			Kind:           KindMembershipRenewal,
			Title:          fmt.Sprintf("Membership renewal due: %s", m.MemberName),
			EntityType:     "membership",
			EntityID:       m.ID,
			DueAt:          &due,
			Status:         domain.WorkItemStatusOpen,
		})
	}

	result := s.upsertAll(ctx, orgID, KindMembershipRenewal, items)
	return result, nil
}

// ScanGrantReports upserts one report-deadline work item per grant of the
// organization with a report due within the configured window.
func (s *Scanner) ScanGrantReports(ctx context.Context, orgID string) (*Result, error) {
	cutoff := time.Now().Add(s.grantWindow)
	grants, err := s.store.ListGrantsWithReportDueBefore(ctx, orgID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing grants with reports due: %w", err)
	}

	items := make([]domain.WorkItem, 0, len(grants))
	for _, g := range grants {
		due := g.ReportDueAt
		items = append(items, domain.WorkItem{
			OrganizationID: orgID,
			DedupeKey:      DedupeKey("grant", "report", g.ID),
			Kind:           KindGrantReport,
			Title:          fmt.Sprintf("Grant report due: %s (%s)", g.Name, g.Funder),
			EntityType:     "grant",
			EntityID:       g.ID,
			DueAt:          &due,
			Status:         domain.WorkItemStatusOpen,
		})
	}

	result := s.upsertAll(ctx, orgID, KindGrantReport, items)
	return result, nil
}

// upsertAll fans candidate upserts over a bounded worker set. Safe because
// each upsert is independent and storage-atomic; a failed upsert is counted
// and logged without stopping the rest.
func (s *Scanner) upsertAll(ctx context.Context, orgID, kind string, items []domain.WorkItem) *Result {
	result := &Result{Candidates: len(items)}
	if len(items) == 0 {
		return result
	}

	workers := s.workers
	if workers > len(items) {
		workers = len(items)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan domain.WorkItem)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				created, err := s.store.UpsertWorkItem(ctx, item)
				mu.Lock()
				switch {
				case err != nil:
					result.Errors++
				case created:
					result.Created++
				}
				mu.Unlock()

				if err != nil {
					s.logger.Error("work item upsert failed",
						"organization_id", orgID,
						"dedupe_key", item.DedupeKey,
						"error", err,
					)
					continue
				}
				if created {
					metrics.WorkItemsCreated.WithLabelValues(kind).Inc()
				} else {
					metrics.WorkItemsDeduplicated.WithLabelValues(kind).Inc()
				}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	s.logger.Info("scan complete",
		"organization_id", orgID,
		"kind", kind,
		"candidates", result.Candidates,
		"created", result.Created,
		"errors", result.Errors,
	)
	return result
}
