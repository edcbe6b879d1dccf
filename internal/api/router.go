// Package api exposes the tracker over HTTP. Handlers are thin: they parse,
// delegate to the engines and services, and shape the response.
package api

import (
	"net/http"

	"github.com/codedaily/codedaily/internal/auth"
	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/quest"
	"github.com/codedaily/codedaily/internal/service"
)

type Server struct {
	db       database.DB
	authSvc  *auth.Service
	tracker  *service.Tracker
	syncer   *service.Syncer
	quests   *quest.Engine
	enhancer quest.Enhancer
	metrics  *httpMetrics
	mux      *http.ServeMux
}

func NewServer(db database.DB, authSvc *auth.Service, tracker *service.Tracker, syncer *service.Syncer, quests *quest.Engine, enhancer quest.Enhancer) *Server {
	s := &Server{
		db:       db,
		authSvc:  authSvc,
		tracker:  tracker,
		syncer:   syncer,
		quests:   quests,
		enhancer: enhancer,
		metrics:  getDefaultHTTPMetrics(),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := auth.Middleware(s.authSvc)(s.mux)
	handler = requestBodyLimitMiddleware(handler)
	handler = requestMetricsMiddleware(s.metrics, handler)
	handler = requestLoggingMiddleware(handler)
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metricsHandler(nil))

	// Auth
	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Activity
	s.mux.HandleFunc("GET /api/v1/stats", s.handleGetStats)
	s.mux.HandleFunc("GET /api/v1/streak", s.handleGetStreak)
	s.mux.HandleFunc("GET /api/v1/history", s.handleGetHistory)
	s.mux.HandleFunc("GET /api/v1/achievements", s.handleGetAchievements)
	s.mux.HandleFunc("GET /api/v1/dashboard", s.handleGetDashboard)
	s.mux.HandleFunc("POST /api/v1/refresh", s.requireAuth(s.handleRefresh))

	// Quests
	s.mux.HandleFunc("GET /api/v1/quests", s.handleListQuests)
	s.mux.HandleFunc("POST /api/v1/quests", s.requireAuth(s.handleCreateQuest))
	s.mux.HandleFunc("GET /api/v1/quests/summary", s.handleQuestSummary)
	s.mux.HandleFunc("POST /api/v1/quests/enhance", s.requireAuth(s.handleEnhanceBatch))
	s.mux.HandleFunc("POST /api/v1/quests/{id}/accept", s.requireAuth(s.handleAcceptQuest))
	s.mux.HandleFunc("POST /api/v1/quests/{id}/complete", s.requireAuth(s.handleCompleteQuest))
	s.mux.HandleFunc("POST /api/v1/quests/{id}/skip", s.requireAuth(s.handleSkipQuest))
	s.mux.HandleFunc("POST /api/v1/quests/{id}/enhance", s.requireAuth(s.handleEnhanceQuest))

	// Ideas
	s.mux.HandleFunc("GET /api/v1/ideas", s.handleListIdeas)
	s.mux.HandleFunc("POST /api/v1/ideas", s.requireAuth(s.handleCreateIdea))
	s.mux.HandleFunc("POST /api/v1/ideas/{id}/promote", s.requireAuth(s.handlePromoteIdea))

	// Sync
	s.mux.HandleFunc("POST /api/v1/sync/issues", s.requireAuth(s.handleSyncIssues))
	s.mux.HandleFunc("POST /api/v1/sync/todos", s.requireAuth(s.handleSyncTodos))
	s.mux.HandleFunc("POST /api/v1/sync/discover", s.requireAuth(s.handleSyncDiscover))

	// Settings
	s.mux.HandleFunc("GET /api/v1/settings/goal", s.handleGetGoal)
	s.mux.HandleFunc("PUT /api/v1/settings/goal", s.requireAuth(s.handleSetGoal))
}

// requireAuth guards mutating endpoints when auth is configured. With auth
// disabled the API stays open for single-user local use.
func (s *Server) requireAuth(fn http.HandlerFunc) http.HandlerFunc {
	return auth.Require(s.authSvc)(fn).ServeHTTP
}
