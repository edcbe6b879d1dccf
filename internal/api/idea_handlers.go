package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/codedaily/codedaily/internal/models"
)

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	var status models.IdeaStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseIdeaStatus(raw)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}

	ideas, err := s.db.GetIdeas(r.Context(), status)
	if err != nil {
		jsonError(w, "failed to load ideas", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"ideas": ideas})
}

type createIdeaRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	idea := models.Idea{Content: strings.TrimSpace(req.Content), Status: models.IdeaActive}
	if err := s.db.CreateIdea(r.Context(), &idea); err != nil {
		jsonError(w, "failed to create idea", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusCreated, idea)
}

func (s *Server) handlePromoteIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}

	q, err := s.quests.PromoteIdeaToQuest(r.Context(), id)
	if err != nil {
		jsonError(w, "failed to promote idea", http.StatusInternalServerError)
		return
	}
	if q == nil {
		jsonError(w, "idea not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, q)
}
