package api

import "net/http"

func (s *Server) handleSyncIssues(w http.ResponseWriter, r *http.Request) {
	res, err := s.syncer.SyncIssues(r.Context())
	if err != nil {
		jsonError(w, err.Error(), upstreamErrorStatus(err))
		return
	}
	s.metrics.recordSync("github_issues", res.Added, res.Skipped)
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleSyncTodos(w http.ResponseWriter, r *http.Request) {
	res, err := s.syncer.SyncTodos(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.recordSync("todo_scan", res.Added, res.Skipped)
	jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleSyncDiscover(w http.ResponseWriter, r *http.Request) {
	res, err := s.syncer.Discover(r.Context())
	if err != nil {
		jsonError(w, err.Error(), upstreamErrorStatus(err))
		return
	}
	s.metrics.recordSync("discover", res.Added, res.Skipped)
	jsonResponse(w, http.StatusOK, res)
}
