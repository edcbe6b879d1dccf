package activity

import (
	"encoding/json"
	"strings"

	"github.com/codedaily/codedaily/internal/models"
)

// RawEvent mirrors the shape of a GitHub events API record. Payload fields
// other than size and commits are ignored.
type RawEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload RawPayload `json:"payload"`
}

// RawPayload carries the push details. Size distinguishes "absent" from
// "zero" via a pointer because the API omits it for some event kinds.
type RawPayload struct {
	Size    *int        `json:"size"`
	Commits []RawCommit `json:"commits"`
}

type RawCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// ParseCommitEvents converts raw activity records into canonical commit
// events. Only PushEvent records are kept; output order matches input order.
func ParseCommitEvents(events []RawEvent) []models.CommitEvent {
	var out []models.CommitEvent

	for _, ev := range events {
		if ev.Type != "PushEvent" {
			continue
		}

		date := "unknown"
		if ev.CreatedAt != "" {
			date = ev.CreatedAt
			if len(date) > 10 {
				date = date[:10]
			}
		}

		repo := ev.Repo.Name
		if repo == "" {
			repo = "unknown"
		}

		// Prefer the declared push size; fall back to the commit list
		// length; a push always represents at least one commit even when
		// the API omits details.
		count := 1
		switch {
		case ev.Payload.Size != nil:
			count = *ev.Payload.Size
		case len(ev.Payload.Commits) > 0:
			count = len(ev.Payload.Commits)
		}

		commits := make([]models.Commit, 0, len(ev.Payload.Commits))
		for _, c := range ev.Payload.Commits {
			sha := c.SHA
			if len(sha) > 7 {
				sha = sha[:7]
			}
			message, _, _ := strings.Cut(c.Message, "\n")
			commits = append(commits, models.Commit{SHA: sha, Message: message})
		}

		out = append(out, models.CommitEvent{
			Date:        date,
			Repo:        repo,
			Commits:     commits,
			CommitCount: count,
		})
	}

	return out
}

// ParseCommitEventsJSON decodes a raw events API response body and normalizes it.
func ParseCommitEventsJSON(data []byte) ([]models.CommitEvent, error) {
	var events []RawEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return ParseCommitEvents(events), nil
}
