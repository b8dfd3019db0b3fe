package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/audit"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/engine"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/scanner"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/store"
)

// RouterDeps bundles everything the router hands to its handlers.
type RouterDeps struct {
	Store     *store.PostgresStore
	RuleCache *store.CachedRuleSource
	Engine    *engine.Engine
	Limiter   *engine.EmitLimiter
	EmitLimit int
	Scanner   *scanner.Scanner
	Recorder  *audit.Recorder
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	eventHandler := NewEventHandler(deps.Store, deps.Engine, deps.Limiter, deps.EmitLimit)
	ruleHandler := NewRuleHandler(deps.Store, deps.RuleCache, deps.Recorder)
	queueHandler := NewQueueHandler(deps.Store)
	workItemHandler := NewWorkItemHandler(deps.Store, deps.Recorder)
	scanHandler := NewScanHandler(deps.Scanner)
	donationHandler := NewDonationHandler(deps.Store, deps.Engine, deps.Recorder)
	auditHandler := NewAuditHandler(deps.Store)
	statsHandler := NewStatsHandler(deps.Store)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		// Everything below is tenant-scoped.
		r.Group(func(r chi.Router) {
			r.Use(requireOrganization)

			r.Route("/events", func(r chi.Router) {
				r.Post("/", eventHandler.Create)
				r.Get("/", eventHandler.List)
				r.Get("/{id}", eventHandler.Get)
			})

			r.Route("/rules", func(r chi.Router) {
				r.Post("/", ruleHandler.Create)
				r.Get("/", ruleHandler.List)
				r.Get("/{id}", ruleHandler.Get)
				r.Patch("/{id}", ruleHandler.Update)
			})

			r.Get("/queue", queueHandler.List)

			r.Route("/work-items", func(r chi.Router) {
				r.Get("/", workItemHandler.List)
				r.Post("/{id}/snooze", workItemHandler.Snooze)
				r.Post("/{id}/complete", workItemHandler.Complete)
			})

			r.Route("/scans", func(r chi.Router) {
				r.Post("/membership-renewals", scanHandler.MembershipRenewals)
				r.Post("/grant-reports", scanHandler.GrantReports)
			})

			r.Post("/donations", donationHandler.Create)
			r.Get("/audit", auditHandler.List)
			r.Get("/stats", statsHandler.Get)
		})
	})

	return r
}
