package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finawise/internal/aggregate"
	"finawise/internal/core"
)

// parseCriteria extracts report filter criteria from query parameters.
// Absent or malformed values mean "no constraint": the query must never fail
// because of a bad filter selection.
func parseCriteria(r *http.Request) aggregate.Criteria {
	q := r.URL.Query()
	crit := aggregate.Criteria{
		Region:     strings.TrimSpace(q.Get("region")),
		Commune:    strings.TrimSpace(q.Get("commune")),
		Gender:     strings.TrimSpace(q.Get("gender")),
		HealthTier: strings.TrimSpace(q.Get("healthTier")),
	}

	if v := strings.TrimSpace(q.Get("ageMin")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			crit.AgeMin = n
		}
	}
	if v := strings.TrimSpace(q.Get("ageMax")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			crit.AgeMax = n
		}
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			crit.DateFrom = t
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			crit.DateTo = t
		}
	}

	return crit
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.Overview(r.Context(), crit)
	})
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.MonthlyTrend(r.Context(), crit)
	})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.CategoryBreakdown(r.Context(), crit)
	})
}

func (s *Server) handleSubCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.SubCategoryBreakdown(r.Context(), crit)
	})
}

func (s *Server) handleCommuneBreakdown(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.CommuneBreakdown(r.Context(), crit)
	})
}

func (s *Server) handleRegionBreakdown(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.RegionBreakdown(r.Context(), crit)
	})
}

func (s *Server) handleHealthDistribution(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.HealthDistribution(r.Context(), crit)
	})
}

func (s *Server) handleAgeDistribution(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, func(crit aggregate.Criteria) any {
		return s.reports.AgeDistribution(r.Context(), crit)
	})
}

// serveReport runs a report through the response cache.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, compute func(aggregate.Criteria) any) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Path + "?" + r.URL.RawQuery
	if body, found := s.reportCache.Get(key); found {
		slog.DebugContext(r.Context(), "Report cache hit", "key", key)
		writeJSONBytes(w, http.StatusOK, body)
		return
	}

	result := compute(parseCriteria(r))
	body, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode report", "error", err, "url", r.URL.Path)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.reportCache.Set(key, body)
	writeJSONBytes(w, http.StatusOK, body)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	id, err := s.ingest.CreateTransaction(r.Context(), raw)
	if err != nil {
		slog.WarnContext(r.Context(), "Transaction rejected", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	s.reportCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	id, err := s.ingest.UpsertUser(r.Context(), raw)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save user"})
		return
	}

	s.reportCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (core.RawRecord, bool) {
	raw := core.RawRecord{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return nil, false
	}
	return raw, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, status, body)
}

func writeJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
