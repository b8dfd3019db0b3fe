package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// fakeScanStore enforces the same (organization_id, dedupe_key) uniqueness
// the real table does, atomically under its lock.
type fakeScanStore struct {
	mu          sync.Mutex
	memberships []domain.Membership
	grants      []domain.Grant
	items       map[string]domain.WorkItem // key: orgID + "|" + dedupeKey
	listErr     error
	upsertErr   error
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{items: map[string]domain.WorkItem{}}
}

func (f *fakeScanStore) ListMembershipsExpiringBefore(_ context.Context, orgID string, cutoff time.Time) ([]domain.Membership, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Membership
	for _, m := range f.memberships {
		if m.OrganizationID == orgID && m.ExpiresAt.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeScanStore) ListGrantsWithReportDueBefore(_ context.Context, orgID string, cutoff time.Time) ([]domain.Grant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Grant
	for _, g := range f.grants {
		if g.OrganizationID == orgID && g.ReportDueAt.Before(cutoff) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeScanStore) UpsertWorkItem(_ context.Context, item domain.WorkItem) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := item.OrganizationID + "|" + item.DedupeKey
	if _, exists := f.items[key]; exists {
		return false, nil
	}
	f.items[key] = item
	return true, nil
}

func (f *fakeScanStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeScanStore) setStatus(orgID, dedupeKey, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := orgID + "|" + dedupeKey
	item := f.items[key]
	item.Status = status
	f.items[key] = item
}

func testScanner(store *fakeScanStore) *Scanner {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(store, 30*24*time.Hour, 14*24*time.Hour, 3, logger)
}

func TestScanMembershipRenewals_RerunIsIdempotent(t *testing.T) {
	store := newFakeScanStore()
	store.memberships = []domain.Membership{{
		ID:             "mem-1",
		OrganizationID: "org-1",
		MemberName:     "Dana Whitfield",
		ExpiresAt:      time.Now().Add(20 * 24 * time.Hour),
	}}
	s := testScanner(store)
	ctx := context.Background()

	first, err := s.ScanMembershipRenewals(ctx, "org-1")
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if first.Candidates != 1 || first.Created != 1 {
		t.Errorf("run 1: expected 1 candidate/1 created, got %+v", first)
	}

	// A user snoozes the alert between runs; the re-scan must not undo it.
	store.setStatus("org-1", "membership:renewal:mem-1", domain.WorkItemStatusSnoozed)

	second, err := s.ScanMembershipRenewals(ctx, "org-1")
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("run 2 over unchanged data must create nothing, got %d", second.Created)
	}
	if store.count() != 1 {
		t.Errorf("row count must not grow on re-scan, got %d", store.count())
	}
	if item := store.items["org-1|membership:renewal:mem-1"]; item.Status != domain.WorkItemStatusSnoozed {
		t.Errorf("re-scan must not overwrite user status, got %q", item.Status)
	}
}

func TestScanMembershipRenewals_WindowFilters(t *testing.T) {
	store := newFakeScanStore()
	store.memberships = []domain.Membership{
		{ID: "soon", OrganizationID: "org-1", MemberName: "A", ExpiresAt: time.Now().Add(10 * 24 * time.Hour)},
		{ID: "far", OrganizationID: "org-1", MemberName: "B", ExpiresAt: time.Now().Add(90 * 24 * time.Hour)},
		{ID: "other-org", OrganizationID: "org-2", MemberName: "C", ExpiresAt: time.Now().Add(10 * 24 * time.Hour)},
	}
	s := testScanner(store)

	result, err := s.ScanMembershipRenewals(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if result.Candidates != 1 || result.Created != 1 {
		t.Errorf("only the in-window membership of org-1 should alert, got %+v", result)
	}
	if _, ok := store.items["org-2|membership:renewal:other-org"]; ok {
		t.Error("scan must never cross the organization boundary")
	}
}

func TestScanGrantReports(t *testing.T) {
	store := newFakeScanStore()
	store.grants = []domain.Grant{{
		ID:             "grant-1",
		OrganizationID: "org-1",
		Funder:         "Community Foundation",
		Name:           "Youth Program 2026",
		ReportDueAt:    time.Now().Add(7 * 24 * time.Hour),
	}}
	s := testScanner(store)

	result, err := s.ScanGrantReports(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("expected 1 created, got %+v", result)
	}

	item, ok := store.items["org-1|grant:report:grant-1"]
	if !ok {
		t.Fatal("expected a work item keyed by the grant's dedupe key")
	}
	if item.Kind != KindGrantReport || item.Status != domain.WorkItemStatusOpen {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestScan_UpsertFailuresAreCountedNotFatal(t *testing.T) {
	store := newFakeScanStore()
	store.memberships = []domain.Membership{
		{ID: "m1", OrganizationID: "org-1", MemberName: "A", ExpiresAt: time.Now().Add(24 * time.Hour)},
		{ID: "m2", OrganizationID: "org-1", MemberName: "B", ExpiresAt: time.Now().Add(24 * time.Hour)},
	}
	store.upsertErr = errors.New("constraint violation")
	s := testScanner(store)

	result, err := s.ScanMembershipRenewals(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("per-candidate failures must not fail the scan: %v", err)
	}
	if result.Errors != 2 || result.Created != 0 {
		t.Errorf("expected 2 errors/0 created, got %+v", result)
	}
}

func TestScan_ListFailureIsFatal(t *testing.T) {
	store := newFakeScanStore()
	store.listErr = errors.New("relation does not exist")
	s := testScanner(store)

	if _, err := s.ScanMembershipRenewals(context.Background(), "org-1"); err == nil {
		t.Fatal("a scan that cannot read candidates has nothing to report")
	}
}

func TestScan_ConcurrentRunsCreateOnce(t *testing.T) {
	store := newFakeScanStore()
	store.memberships = []domain.Membership{{
		ID:             "mem-1",
		OrganizationID: "org-1",
		MemberName:     "Dana",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}}
	s := testScanner(store)
	ctx := context.Background()

	// A manual re-trigger racing the scheduled run.
	var wg sync.WaitGroup
	createdTotal := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := s.ScanMembershipRenewals(ctx, "org-1")
			if err != nil {
				t.Errorf("concurrent run %d: %v", i, err)
				return
			}
			createdTotal[i] = result.Created
		}(i)
	}
	wg.Wait()

	if createdTotal[0]+createdTotal[1] != 1 {
		t.Errorf("exactly one run may create the item, got %d and %d", createdTotal[0], createdTotal[1])
	}
	if store.count() != 1 {
		t.Errorf("expected a single row, got %d", store.count())
	}
}

func TestDedupeKey_IsDeterministic(t *testing.T) {
	a := DedupeKey("membership", "renewal", "mem-42")
	b := DedupeKey("membership", "renewal", "mem-42")
	if a != b {
		t.Errorf("same inputs must produce the same key: %q vs %q", a, b)
	}
	if a != "membership:renewal:mem-42" {
		t.Errorf("unexpected key format: %q", a)
	}
}
