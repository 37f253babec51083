// Package httpapi wires the HTTP surface of the trip ledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/tripledger/internal/ingest"
	"github.com/tinoosan/tripledger/internal/service/debt"
	"github.com/tinoosan/tripledger/internal/service/expense"
	"github.com/tinoosan/tripledger/internal/service/trip"
	"github.com/tinoosan/tripledger/internal/service/user"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	users     user.Service
	trips     trip.Service
	expenses  expense.Service
	debts     debt.Service
	store     Store
	extractor ingest.Extractor
	narrator  ingest.Summarizer
	log       *slog.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware. The extractor
// and narrator may be nil; their endpoints then return 503.
func New(store Store, extractor ingest.Extractor, narrator ingest.Summarizer, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if auth := authJWTFromEnv(); auth != nil {
		r.Use(auth)
	}

	s := &Server{
		users:     user.New(store, store),
		trips:     trip.New(store, store),
		expenses:  expense.New(store, store),
		debts:     debt.New(store),
		store:     store,
		extractor: extractor,
		narrator:  narrator,
		log:       logger,
		rt:        r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Users
	s.rt.With(s.validatePostUser()).Post("/v1/users", s.postUser)
	s.rt.Post("/v1/login", s.login)
	s.rt.Get("/v1/users/{id}", s.getUser)
	s.rt.Get("/v1/users", s.findUserByHandle)
	// Trips
	s.rt.With(s.validatePostTrip()).Post("/v1/trips", s.postTrip)
	s.rt.Get("/v1/trips", s.listTrips)
	s.rt.Get("/v1/trips/{id}", s.getTrip)
	s.rt.Get("/v1/trips/{id}/members", s.listMembers)
	s.rt.Post("/v1/trips/{id}/members", s.postMember)
	// Categories
	s.rt.Get("/v1/trips/{id}/categories", s.listCategories)
	s.rt.Post("/v1/trips/{id}/categories", s.postCategory)
	s.rt.Delete("/v1/categories/{id}", s.deleteCategory)
	s.rt.Get("/v1/trips/{id}/categories/totals", s.categoryTotals)
	// Expenses
	s.rt.With(s.validatePostExpense()).Post("/v1/expenses", s.postExpense)
	s.rt.Get("/v1/trips/{id}/expenses", s.listExpenses)
	s.rt.Get("/v1/expenses/{id}", s.getExpense)
	s.rt.Patch("/v1/expenses/{id}", s.patchExpense)
	s.rt.Delete("/v1/expenses/{id}", s.deleteExpense)
	s.rt.Put("/v1/expenses/{id}/splits", s.putSplits)
	s.rt.Post("/v1/split/preview", s.splitPreview)
	// Debts and summaries
	s.rt.Get("/v1/trips/{id}/debts", s.listDebts)
	s.rt.Get("/v1/trips/{id}/summary", s.getSummary)
	s.rt.Get("/v1/trips/{id}/summaries", s.listSummaries)
	// Ingestion boundary
	s.rt.Post("/v1/expenses/draft", s.postExpenseDraft)
	s.rt.Get("/v1/trips/{id}/narrative", s.getNarrative)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
