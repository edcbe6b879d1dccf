package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/codedaily/codedaily/internal/achievements"
	"github.com/codedaily/codedaily/internal/history"
	"github.com/codedaily/codedaily/internal/stats"
	"github.com/codedaily/codedaily/internal/streak"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// todayParam validates the optional ?today= override used to pin engine
// calculations to a reference date. Empty means the current UTC date.
func todayParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	today := r.URL.Query().Get("today")
	if today == "" {
		return "", true
	}
	if !datePattern.MatchString(today) {
		jsonError(w, "today must be YYYY-MM-DD", http.StatusBadRequest)
		return "", false
	}
	if _, err := time.Parse("2006-01-02", today); err != nil {
		jsonError(w, "invalid today date", http.StatusBadRequest)
		return "", false
	}
	return today, true
}

type statsResponse struct {
	Streak streak.Info `json:"streak"`
	Stats  stats.Stats `json:"stats"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	today, ok := todayParam(w, r)
	if !ok {
		return
	}

	events, err := s.db.GetCommitEvents(r.Context())
	if err != nil {
		jsonError(w, "failed to load activity", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, statsResponse{
		Streak: streak.Calculate(events, today),
		Stats:  stats.Calculate(events, today),
	})
}

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	today, ok := todayParam(w, r)
	if !ok {
		return
	}

	events, err := s.db.GetCommitEvents(r.Context())
	if err != nil {
		jsonError(w, "failed to load activity", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, streak.Calculate(events, today))
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	today, ok := todayParam(w, r)
	if !ok {
		return
	}
	days := parseQueryInt(r, "days", history.DefaultDays)
	if days < 1 || days > 366 {
		jsonError(w, "days must be between 1 and 366", http.StatusBadRequest)
		return
	}

	events, err := s.db.GetCommitEvents(r.Context())
	if err != nil {
		jsonError(w, "failed to load activity", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, history.Calculate(events, days, today))
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.db.GetUnlockedAchievements(r.Context())
	if err != nil {
		jsonError(w, "failed to load achievements", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"achievements": achievements.StatusView(unlocked),
	})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	today, ok := todayParam(w, r)
	if !ok {
		return
	}

	dash, err := s.tracker.BuildDashboard(r.Context(), today)
	if err != nil {
		jsonError(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, dash)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.tracker.Refresh(r.Context())
	if err != nil {
		jsonError(w, err.Error(), upstreamErrorStatus(err))
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
