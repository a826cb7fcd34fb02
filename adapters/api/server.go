// Package api exposes the run lifecycle and compliance views over HTTP.
// It is a thin adapter over the orchestration services; no execution
// logic lives here.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aigovern/app"
	"aigovern/domain/core"
	"aigovern/internal"
	"aigovern/internal/compliance"
	"aigovern/ports"
)

// Server handles HTTP requests for runs, results and compliance reports
type Server struct {
	runs     *app.RunService
	results  ports.ResultRepository
	mapper   *compliance.Mapper
	logger   *internal.Logger
	registry *app.Registry
}

// NewServer wires the HTTP surface over the orchestration core
func NewServer(runs *app.RunService, results ports.ResultRepository, mapper *compliance.Mapper, registry *app.Registry, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Server{runs: runs, results: results, mapper: mapper, registry: registry, logger: logger}
}

// Router builds the chi routing tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Post("/runs/{id}/cancel", s.handleCancelRun)
		r.Get("/runs/{id}/results", s.handleListResults)
		r.Get("/compliance/{id}", s.handleComplianceReport)
		r.Get("/tests", s.handleListTests)
	})
	return r
}

type createRunRequest struct {
	ModelAssetID   string         `json:"model_asset_id"`
	DatasetAssetID string         `json:"dataset_asset_id,omitempty"`
	PlanID         string         `json:"plan_id,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	modelID, err := core.ParseAssetID(req.ModelAssetID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "model_asset_id is required")
		return
	}

	var datasetID *core.AssetID
	if req.DatasetAssetID != "" {
		id := core.AssetID(req.DatasetAssetID)
		datasetID = &id
	}
	var planID *core.PlanID
	if req.PlanID != "" {
		id := core.PlanID(req.PlanID)
		planID = &id
	}

	testRun, err := s.runs.CreateRun(r.Context(), modelID, datasetID, planID, req.Parameters)
	if err != nil {
		if core.IsNotFoundError(err) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("create run: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}
	s.writeJSON(w, http.StatusCreated, testRun)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "id"))
	testRun, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("get run %s: %v", runID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	s.writeJSON(w, http.StatusOK, testRun)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "id"))
	err := s.runs.CancelRun(r.Context(), runID)
	if err != nil {
		switch {
		case core.IsNotFoundError(err):
			s.writeError(w, http.StatusNotFound, "run not found")
		case core.IsLifecycleError(err):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("cancel run %s: %v", runID, err)
			s.writeError(w, http.StatusInternalServerError, "failed to cancel run")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "id"))
	if _, err := s.runs.GetRun(r.Context(), runID); err != nil {
		if core.IsNotFoundError(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("load run %s: %v", runID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	results, err := s.results.ListResults(r.Context(), runID)
	if err != nil {
		s.logger.Error("list results for %s: %v", runID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID.String(),
		"results": results,
	})
}

func (s *Server) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "id"))
	report, err := s.mapper.Evaluate(r.Context(), runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("compliance report for %s: %v", runID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to build compliance report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tests": s.registry.RegisteredTests(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
