package api

import (
	"encoding/json"
	"net/http"
)

type goalResponse struct {
	DailyGoal int `json:"daily_goal"`
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.tracker.DailyGoal(r.Context())
	if err != nil {
		jsonError(w, "failed to load goal", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, goalResponse{DailyGoal: goal})
}

type setGoalRequest struct {
	DailyGoal int `json:"daily_goal"`
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DailyGoal < 1 {
		jsonError(w, "daily_goal must be a positive integer", http.StatusBadRequest)
		return
	}

	if err := s.tracker.SetDailyGoal(r.Context(), req.DailyGoal); err != nil {
		jsonError(w, "failed to save goal", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, goalResponse{DailyGoal: req.DailyGoal})
}
