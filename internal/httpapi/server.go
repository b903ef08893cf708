// Package httpapi exposes the admin tag and shop endpoints over HTTP.
//
// The tag listing is gated: it answers 403 with a generic body unless the
// reserved gate record is active.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-market-gate/gate"
)

// Authorizer decides whether a gated operation may run.
type Authorizer interface {
	Authorize(ctx context.Context, op gate.Operation) error
}

// Server holds the handler dependencies.
type Server struct {
	tags   TagService
	shops  ShopService
	gate   Authorizer
	logger *slog.Logger
}

// NewServer builds a Server. A nil logger discards output.
func NewServer(tags TagService, shops ShopService, authz Authorizer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{tags: tags, shops: shops, gate: authz, logger: logger}
}

// Routes returns the router with every endpoint registered under
// /api/v1/dashboard/admin.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/dashboard/admin", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
			r.Delete("/delete", s.handleDestroyTags)
			r.Delete("/drop/all", s.handleDropAllTags)
			r.Delete("/truncate/db", s.handleTruncateTags)
			r.Post("/restore/all", s.handleRestoreAllTags)
			r.Get("/{id}", s.handleGetTag)
			r.Put("/{id}", s.handleUpdateTag)
		})
		r.Route("/shops", func(r chi.Router) {
			r.Get("/", s.handleListShops)
			r.Post("/", s.handleCreateShop)
			r.Get("/{id}", s.handleGetShop)
			r.Put("/{id}", s.handleUpdateShop)
			r.Delete("/{id}", s.handleDeleteShop)
			r.Post("/{id}/restore", s.handleRestoreShop)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
