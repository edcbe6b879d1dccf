package models

import "encoding/json"

// Issue is the subset of a GitHub issues API record the sync path needs.
// PullRequest captures the raw pull_request marker: the issues endpoint
// returns pull requests too, distinguished only by that key's presence.
type Issue struct {
	Title       string          `json:"title"`
	HTMLURL     string          `json:"html_url"`
	Body        string          `json:"body"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the record carried a pull_request marker.
func (i Issue) IsPullRequest() bool {
	return len(i.PullRequest) > 0 && string(i.PullRequest) != "null"
}

// Repo is the subset of a GitHub repository record used by issue discovery.
type Repo struct {
	FullName string `json:"full_name"`
}
