package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/export"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/research"
	"github.com/sells-group/casino-research/internal/scheduler"
	"github.com/sells-group/casino-research/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/offers/existing[?refresh=true]
func (s *Server) handleExistingOffers(w http.ResponseWriter, r *http.Request) {
	load := s.deps.Offers.Load
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		load = s.deps.Offers.Refresh
	}
	snap, err := load(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load existing offers", err)
		return
	}
	writeData(w, http.StatusOK, snap)
}

// POST /api/research
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req model.ResearchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}
	states, err := validateStates(req.States)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid states", err)
		return
	}
	req.States = states

	res, err := s.deps.Research.Execute(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "research failed", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func validateStates(raw []model.State) ([]model.State, error) {
	out := make([]model.State, 0, len(raw))
	for _, r := range raw {
		st, ok := model.ParseState(string(r))
		if !ok {
			return nil, eris.Errorf("unsupported state %q", r)
		}
		out = append(out, st)
	}
	return out, nil
}

// GET /api/research/latest
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latest(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, res)
}

// GET /api/research/latest.xlsx
func (s *Server) handleLatestXLSX(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latest(w, r)
	if !ok {
		return
	}
	f, err := export.BuildWorkbook(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="research-%s.xlsx"`, res.RunID))
	if err := f.Write(w); err != nil {
		// Headers are already sent.
		zap.L().Warn("write workbook", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (*model.ResearchResult, bool) {
	res, err := s.deps.Store.Latest(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no research results yet", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load latest result", err)
		return nil, false
	}
	return res, true
}

// GET /api/history[?limit=N]
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}
	entries, err := s.deps.Store.ListHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history", err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeData(w, http.StatusOK, entries)
}

// DELETE /api/history/{id}
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Store.DeleteHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "history entry not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete history entry", err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

// DELETE /api/history
func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset research data", err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"reset": true})
}

// GET /api/analytics
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Store.ListHistory(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}
	writeData(w, http.StatusOK, research.Analytics(entries))
}

// GET /api/scheduler/config
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.deps.Scheduler.Status())
}

// POST /api/scheduler/config
func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	var cfg scheduler.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.deps.Scheduler.Start(cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule", err)
		return
	}
	writeData(w, http.StatusOK, s.deps.Scheduler.Status())
}

// DELETE /api/scheduler/config
func (s *Server) handleSchedulerStop(w http.ResponseWriter, _ *http.Request) {
	s.deps.Scheduler.Stop()
	writeData(w, http.StatusOK, s.deps.Scheduler.Status())
}
