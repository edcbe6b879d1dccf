package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/codedaily/codedaily/internal/github"
	"github.com/codedaily/codedaily/internal/llm"
)

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parsePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	if raw == "" {
		jsonError(w, "id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseQueryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// upstreamErrorStatus maps source/provider failures to response codes:
// rate limits are 503 (retry later), missing configuration is 500, any
// other upstream failure is 502.
func upstreamErrorStatus(err error) int {
	switch {
	case errors.Is(err, github.ErrRateLimited), errors.Is(err, llm.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, github.ErrAuth), errors.Is(err, github.ErrNotFound):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
