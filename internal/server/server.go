// Package server exposes the engine and candidate store over HTTP for the
// browser UI. Discovery errors surface as a single error payload; per-
// candidate enrichment failures never become HTTP errors — they live on
// the records the UI polls.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/engine"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/geo"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Options configures the HTTP server.
type Options struct {
	CORSOrigins []string
	// Notion sink; both must be set to enable POST /api/notion/push.
	NotionClient export.NotionPageCreator
	NotionLeadDB string
}

// Server wires the engine into a chi router.
type Server struct {
	engine *engine.Engine
	opts   Options
	router chi.Router
}

// New creates the HTTP server.
func New(e *engine.Engine, opts Options) *Server {
	s := &Server{engine: e, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthz)
		r.Post("/discover", s.handleDiscover)
		r.Post("/research", s.handleResearchAll)
		r.Get("/candidates", s.handleListCandidates)
		r.Post("/candidates/{id}/retry", s.handleRetry)
		r.Patch("/candidates/{id}/status", s.handleSetStatus)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Post("/notion/push", s.handleNotionPush)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type discoverRequest struct {
	Location     string `json:"location"`
	Area         string `json:"area,omitempty"` // "lat,lng,radius_km"
	BusinessType string `json:"business_type"`
	Count        string `json:"count,omitempty"` // number or "all"
	Source       string `json:"source,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Location == "" || req.BusinessType == "" {
		writeError(w, http.StatusBadRequest, "location and business_type are required")
		return
	}

	q := engine.Query{
		Location:     req.Location,
		BusinessType: req.BusinessType,
		Source:       engine.Source(req.Source),
	}

	if req.Area != "" {
		area, err := geo.ParseArea(req.Area)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Area = area
	}

	if req.Count != "" && !strings.EqualFold(req.Count, "all") {
		n, err := strconv.Atoi(req.Count)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "count must be a number or \"all\"")
			return
		}
		q.Count = n
	}

	result, err := s.engine.Discover(r.Context(), q)
	if err != nil {
		var de *engine.DiscoveryError
		if errors.As(err, &de) {
			// Partial results stay in the store; tell the UI both things.
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  de.Error(),
				"result": result,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResearchAll(w http.ResponseWriter, r *http.Request) {
	// Fire and let the UI poll candidate states; completions merge into
	// the store independently of this response.
	go func() {
		if err := s.engine.ResearchAll(detach(r)); err != nil {
			zap.L().Warn("research all stopped", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "researching"})
}

func (s *Server) handleListCandidates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": s.engine.Store().List(),
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.engine.Store().Get(id); !ok {
		writeError(w, http.StatusNotFound, "candidate not found")
		return
	}

	go func() {
		err := s.engine.Retry(detach(r), id)
		switch {
		case err == nil:
		case errors.Is(err, engine.ErrEnrichmentRejected):
			// An attempt is already in flight; coalesce silently.
		default:
			zap.L().Warn("retry failed to start", zap.String("candidate_id", id), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

type statusRequest struct {
	Status        string `json:"status"`
	EmailThreadID string `json:"email_thread_id,omitempty"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := model.Status(req.Status)
	if !model.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if !s.engine.Store().SetStatus(id, status) {
		writeError(w, http.StatusNotFound, "candidate not found")
		return
	}
	if req.EmailThreadID != "" {
		s.engine.Store().SetEmailThreadID(id, req.EmailThreadID)
	}

	c, _ := s.engine.Store().Get(id)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	if err := export.WriteCSV(w, s.engine.Store().List()); err != nil {
		zap.L().Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.xlsx"`)
	if err := export.WriteXLSX(w, s.engine.Store().List()); err != nil {
		zap.L().Error("xlsx export failed", zap.Error(err))
	}
}

func (s *Server) handleNotionPush(w http.ResponseWriter, r *http.Request) {
	if s.opts.NotionClient == nil || s.opts.NotionLeadDB == "" {
		writeError(w, http.StatusNotImplemented, "notion sink not configured")
		return
	}

	created, err := export.PushToNotion(r.Context(), s.opts.NotionClient, s.opts.NotionLeadDB, s.engine.Store().List())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   err.Error(),
			"created": created,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// detach keeps request-scoped values but survives the response being sent,
// for enrichment work that outlives the triggering request.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
