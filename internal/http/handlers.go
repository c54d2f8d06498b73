package http

import (
	"net/http"
)

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.Monthly(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleMonthlyFor(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.MonthlyFor(r.Context(), r.PathValue("month"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.Annual(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleAnnualFor(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.AnnualFor(r.Context(), r.PathValue("year"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAllTime(w http.ResponseWriter, r *http.Request) {
	perTalent, err := boolParam(r, "perTalent")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.reports.AllTime(r.Context(), perTalent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now, err := s.nowParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTalentBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	now, err := s.nowParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.reports.TalentBudget(r.Context(), id, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleManagerBudget answers an unknown manager with an empty rollup, not 404.
func (s *Server) handleManagerBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	now, err := s.nowParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.reports.ManagerBudget(r.Context(), id, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady loads a snapshot, so it fails while the store is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	version, err := s.reports.Version(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "snapshot": version})
}
