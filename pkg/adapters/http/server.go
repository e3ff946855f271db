package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/entity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the read-only view of the OT engine served over HTTP.
type Engine interface {
	Entities(ctx context.Context) ([]int, error)
	Snapshot(ctx context.Context, entityID int) (*entity.Document, error)
	History(ctx context.Context, entityID int) ([]*domain.Operation, error)
}

// Server serves entity introspection.
type Server struct {
	Engine   Engine
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetrics exposes gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = gatherer
	}
}

// WithLogger sets the logger for request errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// EntityView is the body of GET /entities/{id}.
type EntityView struct {
	ID       int    `json:"id"`
	Revision int    `json:"revision"`
	Hash     string `json:"hash"`
	State    any    `json:"state"`
}

// OperationView is one entry of GET /entities/{id}/log.
type OperationView struct {
	ID               string `json:"id"`
	AgentID          string `json:"agent_id"`
	Revision         int    `json:"revision"`
	RevisionHash     string `json:"revision_hash"`
	Status           string `json:"status"`
	ResolvedConflict bool   `json:"resolved_conflict"`
	Propagate        bool   `json:"propagate"`
	Mutations        []any  `json:"mutations"`
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.Health)
	r.Get("/entities", s.ListEntities)
	r.Route("/entities/{id}", func(r chi.Router) {
		r.Get("/", s.GetEntity)
		r.Get("/log", s.GetLog)
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{"status": "ok"})
}

// ListEntities handles GET /entities.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Entities(r.Context())
	if err != nil {
		s.fail(w, r, "List entities failed", err, http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	s.writeJSON(w, r, map[string][]int{"entities": ids})
}

// GetEntity handles GET /entities/{id}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityID(w, r)
	if !ok {
		return
	}
	doc, err := s.Engine.Snapshot(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Snapshot failed", err, statusFor(err))
		return
	}
	s.writeJSON(w, r, EntityView{
		ID:       doc.ID(),
		Revision: doc.Revision(),
		Hash:     doc.State().Hash(),
		State:    doc.State().Get(),
	})
}

// GetLog handles GET /entities/{id}/log.
func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityID(w, r)
	if !ok {
		return
	}
	ops, err := s.Engine.History(r.Context(), id)
	if err != nil {
		s.fail(w, r, "History failed", err, statusFor(err))
		return
	}

	views := make([]OperationView, len(ops))
	for i, op := range ops {
		muts := op.Mutations()
		data := make([]any, len(muts))
		for j, m := range muts {
			data[j] = m.Data()
		}
		views[i] = OperationView{
			ID:               op.ID().String(),
			AgentID:          op.AgentID(),
			Revision:         op.Revision(),
			RevisionHash:     op.RevisionHash(),
			Status:           string(op.Status()),
			ResolvedConflict: op.IsResolvedConflict(),
			Propagate:        op.ShouldPropagate(),
			Mutations:        data,
		}
	}
	s.writeJSON(w, r, views)
}

func (s *Server) entityID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid entity id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSnapshotUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error, status int) {
	s.Logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "err", err)
	http.Error(w, msg+": "+err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.ErrorContext(r.Context(), "Response encode failed", "path", r.URL.Path, "err", err)
	}
}
