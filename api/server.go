/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/bills/*        Bill creation, queries, payments, reversals
  /api/settlements    Multi-bill settlement
  /api/wallet/*       Prepay wallet
  /api/waivers/*      Waiver workflow
  /api/import/*       Bulk reconciliation / onboarding
  /api/export/*       Workbook download
  /api/units          Master data read
  /api/audit          Audit trail

SECURITY NOTE:
  No authentication middleware. The service runs inside the office
  network; put it behind a reverse proxy before exposing it wider.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Bill routes
		r.Route("/bills", func(r chi.Router) {
			r.Get("/", h.ListBills)
			r.Post("/", h.CreateBill)
			r.Get("/outstanding", h.ListOutstanding)
			r.Get("/{id}", h.GetBill)
			r.Post("/{id}/payment", h.ApplyPayment)
			r.Post("/{id}/reverse", h.ReverseBill)
		})

		// Settlement routes
		r.Post("/settlements", h.Settle)

		// Wallet routes
		r.Route("/wallet/{unitID}", func(r chi.Router) {
			r.Get("/", h.GetWalletBalance)
			r.Get("/transactions", h.ListWalletTransactions)
			r.Post("/recharge", h.Recharge)
		})

		// Waiver routes
		r.Route("/waivers", func(r chi.Router) {
			r.Post("/", h.SubmitWaiver)
			r.Get("/pending", h.ListPendingWaivers)
			r.Post("/{id}/approve", h.ApproveWaiver)
			r.Post("/{id}/reject", h.RejectWaiver)
		})

		// Import / export routes
		r.Route("/import", func(r chi.Router) {
			r.Post("/reconciliation", h.ImportReconciliation)
			r.Post("/onboarding", h.ImportOnboarding)
			r.Post("/workbook", h.ImportWorkbook)
		})
		r.Get("/export/ledger.xlsx", h.ExportLedger)

		// Master data / audit routes
		r.Get("/units", h.ListUnits)
		r.Get("/audit", h.ListAudit)
	})

	return r
}
