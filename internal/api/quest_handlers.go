package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/codedaily/codedaily/internal/models"
)

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	var status models.QuestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseQuestStatus(raw)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}
	limit := parseQueryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		jsonError(w, "limit must be between 1 and 100", http.StatusBadRequest)
		return
	}

	// Pending quests come back priority-ranked; other views keep creation order.
	var (
		quests []models.Quest
		err    error
	)
	if status == models.QuestPending || status == "" {
		quests, err = s.quests.GetPrioritizedQuests(r.Context(), models.QuestPending, limit)
	} else {
		quests, err = s.db.GetQuests(r.Context(), status, limit)
	}
	if err != nil {
		jsonError(w, "failed to load quests", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"quests": quests})
}

type createQuestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	var req createQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	q, err := s.quests.AddManualQuest(r.Context(), req.Title, req.Description)
	if err != nil {
		jsonError(w, "failed to create quest", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusCreated, q)
}

func (s *Server) handleQuestSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.quests.GetQuestSummary(r.Context())
	if err != nil {
		jsonError(w, "failed to load summary", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

func (s *Server) handleAcceptQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}

	q, err := s.quests.AcceptQuest(r.Context(), id)
	if err != nil {
		jsonError(w, "failed to accept quest", http.StatusInternalServerError)
		return
	}
	if q == nil {
		jsonError(w, "quest not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, q)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}

	q, err := s.quests.CompleteQuest(r.Context(), id)
	if err != nil {
		jsonError(w, "failed to complete quest", http.StatusInternalServerError)
		return
	}
	if q == nil {
		jsonError(w, "quest not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, q)
}

type skipQuestRequest struct {
	Action     string `json:"action"`
	SaveAsIdea bool   `json:"save_as_idea"`
}

func (s *Server) handleSkipQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}

	req := skipQuestRequest{Action: "skip"}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Action != "skip" && req.Action != "archive" {
		jsonError(w, `action must be "skip" or "archive"`, http.StatusBadRequest)
		return
	}

	res, err := s.quests.SkipQuest(r.Context(), id, req.Action, req.SaveAsIdea)
	if err != nil {
		jsonError(w, "failed to skip quest", http.StatusInternalServerError)
		return
	}
	if !res.Success {
		jsonError(w, res.Error, http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleEnhanceQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if !s.enhancer.IsConfigured() {
		jsonError(w, "AI enhancement is not configured", http.StatusInternalServerError)
		return
	}

	q, err := s.quests.EnhanceQuest(r.Context(), s.enhancer, id)
	if err != nil {
		jsonError(w, err.Error(), upstreamErrorStatus(err))
		return
	}
	if q == nil {
		jsonError(w, "quest not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, q)
}

type enhanceBatchRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleEnhanceBatch(w http.ResponseWriter, r *http.Request) {
	if !s.enhancer.IsConfigured() {
		jsonError(w, "AI enhancement is not configured", http.StatusInternalServerError)
		return
	}

	var req enhanceBatchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	res, err := s.quests.EnhanceBatch(r.Context(), s.enhancer, req.Limit)
	if err != nil {
		jsonError(w, err.Error(), upstreamErrorStatus(err))
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
