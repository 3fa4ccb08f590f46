package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vpcstats/app"
	"vpcstats/domain/core"
	"vpcstats/internal"
	apperrors "vpcstats/internal/errors"
	"vpcstats/ports"
)

// Server exposes the VPC engine over HTTP: one compute endpoint plus run
// retrieval. The repository, renderer and loader are optional collaborators.
type Server struct {
	router   *chi.Mux
	svc      *app.VPCService
	runs     ports.RunRepository
	renderer ports.Renderer
	loader   ports.DatasetLoader
	log      *internal.Logger
}

// NewServer wires the routes. A nil repository disables persistence, a nil
// renderer forces data-only responses, and a nil loader rejects requests
// that reference datasets by source.
func NewServer(svc *app.VPCService, runs ports.RunRepository, renderer ports.Renderer, loader ports.DatasetLoader, log *internal.Logger) *Server {
	if log == nil {
		log = internal.DefaultLogger
	}
	s := &Server{
		router:   chi.NewRouter(),
		svc:      svc,
		runs:     runs,
		renderer: renderer,
		loader:   loader,
		log:      log,
	}
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/vpc", s.handleCompute)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCompute runs one VPC computation over inline datasets. Data-only
// requests (or a server without a renderer) get the result table back;
// otherwise the configured renderer consumes it and only the run id returns.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.InvalidInput("request body is not valid JSON"))
		return
	}

	observed, err := req.Observed.toTable()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "observed dataset"))
		return
	}
	simulated, err := req.Simulated.toTable()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "simulated dataset"))
		return
	}

	if observed == nil && req.ObservedSource != "" {
		if s.loader == nil {
			s.writeError(w, http.StatusBadRequest, apperrors.InvalidInput("no dataset loader configured for observed_source"))
			return
		}
		observed, err = s.loader.LoadObserved(r.Context(), req.ObservedSource)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, apperrors.Wrap(err, "loading observed dataset"))
			return
		}
	}
	if simulated == nil && req.SimulatedSource != "" {
		if s.loader == nil {
			s.writeError(w, http.StatusBadRequest, apperrors.InvalidInput("no dataset loader configured for simulated_source"))
			return
		}
		simulated, err = s.loader.LoadSimulated(r.Context(), req.SimulatedSource)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, apperrors.Wrap(err, "loading simulated dataset"))
			return
		}
	}

	result, err := s.svc.Compute(r.Context(), observed, simulated, req.Config)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if s.runs != nil {
		if err := s.runs.Save(r.Context(), result); err != nil {
			s.log.Error("failed to persist run %s: %v", result.RunID, err)
		}
	}

	if req.Config.DataOnly || s.renderer == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if err := s.renderer.Render(r.Context(), result); err != nil {
		s.writeError(w, http.StatusBadGateway, apperrors.Wrap(err, "renderer failed"))
		return
	}
	writeJSON(w, http.StatusOK, ComputeResponse{RunID: result.RunID.String()})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusNotFound, apperrors.NotFound("run storage"))
		return
	}
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, apperrors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	results, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusNotFound, apperrors.NotFound("run storage"))
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.InvalidInput(err.Error()))
		return
	}
	result, err := s.runs.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeDomainError maps sentinel error classes to HTTP statuses: fatal
// configuration and column errors are client mistakes, missing runs are 404,
// everything else is internal.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case core.IsConfigurationError(err):
		s.writeError(w, http.StatusBadRequest, apperrors.New(apperrors.CodeConfigInvalid, err.Error()))
	case core.IsColumnNotFound(err):
		s.writeError(w, http.StatusBadRequest, apperrors.New(apperrors.CodeColumnNotFound, err.Error()))
	case core.IsRunNotFound(err):
		s.writeError(w, http.StatusNotFound, apperrors.New(apperrors.CodeNotFound, err.Error()))
	default:
		s.log.Error("compute failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, apperrors.Wrap(err, "computation failed"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Code: apperrors.GetCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
