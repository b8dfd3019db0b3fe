package store

import (
	"context"
	"os"
	"reflect"
	"testing"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// testPostgres connects to the database named by TEST_DATABASE_URL and
// applies the migrations. Tests that need a live store skip without it.
func testPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return s
}

func TestUpdateRule_TriggerOnlyUpdateStaysInOrganization(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()

	victim, err := s.CreateRule(ctx, "org-a", domain.CreateRuleRequest{
		Name:          "Large Donation Alert",
		TriggerEvents: []string{"donation.created"},
	})
	if err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	// A caller in another organization patches only the trigger events;
	// with no column updates in the request, the join-table rewrite is the
	// only write, and it must still be blocked.
	updated, err := s.UpdateRule(ctx, "org-b", victim.ID,
		domain.UpdateRuleRequest{TriggerEvents: &[]string{"x.y"}})
	if err != nil {
		t.Fatalf("cross-org update: %v", err)
	}
	if updated != nil {
		t.Errorf("a foreign rule id must read as not found, got %+v", updated)
	}

	reloaded, err := s.GetRule(ctx, "org-a", victim.ID)
	if err != nil {
		t.Fatalf("reloading rule: %v", err)
	}
	if !reflect.DeepEqual(reloaded.TriggerEvents, []string{"donation.created"}) {
		t.Errorf("trigger events must be untouched, got %v", reloaded.TriggerEvents)
	}
}

func TestUpdateRule_TriggerOnlyUpdateBumpsTimestamp(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()

	rule, err := s.CreateRule(ctx, "org-a", domain.CreateRuleRequest{
		Name:          "Welcome New Member",
		TriggerEvents: []string{"member.created"},
	})
	if err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	updated, err := s.UpdateRule(ctx, "org-a", rule.ID,
		domain.UpdateRuleRequest{TriggerEvents: &[]string{"member.created", "member.imported"}})
	if err != nil {
		t.Fatalf("updating rule: %v", err)
	}
	if updated == nil {
		t.Fatal("expected the rule back")
	}

	if !reflect.DeepEqual(updated.TriggerEvents, []string{"member.created", "member.imported"}) {
		t.Errorf("trigger events not rewritten: %v", updated.TriggerEvents)
	}
	if !updated.UpdatedAt.After(rule.UpdatedAt) {
		t.Errorf("updated_at should move forward on a trigger rewrite: %v -> %v",
			rule.UpdatedAt, updated.UpdatedAt)
	}
}
