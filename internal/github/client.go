// Package github is a minimal GitHub REST v3 client covering the endpoints
// the tracker needs: user event feeds, assigned issues, starred repositories,
// and good-first-issue search.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/codedaily/codedaily/internal/activity"
	"github.com/codedaily/codedaily/internal/models"
)

var (
	// ErrAuth signals a rejected or missing token.
	ErrAuth = errors.New("github authentication failed")
	// ErrNotFound signals an unknown user or repository.
	ErrNotFound = errors.New("github resource not found")
	// ErrRateLimited signals an exhausted rate-limit quota.
	ErrRateLimited = errors.New("github rate limit exceeded")
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	// maxEvents is GitHub's hard limit on the public events feed.
	maxEvents = 100
)

// Client talks to the GitHub REST API. The zero token is valid and runs
// unauthenticated against public endpoints at a reduced rate limit.
type Client struct {
	token      string
	username   string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, username string) *Client {
	return &Client{
		token:      token,
		username:   username,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. For tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// Username returns the account the client was configured for.
func (c *Client) Username() string { return c.username }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Accept-Encoding", "gzip")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimited
		}
		return ErrAuth
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	body := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("github gzip response: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

// ListUserEvents fetches the configured user's public event feed, newest
// first. GitHub serves at most 100 events regardless of paging.
func (c *Client) ListUserEvents(ctx context.Context) ([]activity.RawEvent, error) {
	if c.username == "" {
		return nil, fmt.Errorf("%w: username not configured", ErrAuth)
	}

	query := url.Values{"per_page": {fmt.Sprint(maxEvents)}}
	var events []activity.RawEvent
	if err := c.get(ctx, "/users/"+url.PathEscape(c.username)+"/events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListAssignedIssues fetches open issues assigned to the authenticated user
// across all repositories. Pull requests appear in the response and are left
// for the caller to filter.
func (c *Client) ListAssignedIssues(ctx context.Context) ([]models.Issue, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: token required for assigned issues", ErrAuth)
	}

	query := url.Values{
		"filter":   {"assigned"},
		"state":    {"open"},
		"per_page": {"50"},
	}
	var issues []models.Issue
	if err := c.get(ctx, "/issues", query, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ListStarredRepos fetches up to limit of the configured user's most recently
// starred repositories.
func (c *Client) ListStarredRepos(ctx context.Context, limit int) ([]models.Repo, error) {
	if c.username == "" {
		return nil, fmt.Errorf("%w: username not configured", ErrAuth)
	}
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	query := url.Values{
		"per_page": {fmt.Sprint(limit)},
		"sort":     {"created"},
	}
	var repos []models.Repo
	if err := c.get(ctx, "/users/"+url.PathEscape(c.username)+"/starred", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

type searchResponse struct {
	Items []models.Issue `json:"items"`
}

// SearchGoodFirstIssues searches a repository for open issues labeled
// "good first issue".
func (c *Client) SearchGoodFirstIssues(ctx context.Context, repoFullName string, limit int) ([]models.Issue, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	query := url.Values{
		"q":        {fmt.Sprintf(`repo:%s label:"good first issue" state:open`, repoFullName)},
		"per_page": {fmt.Sprint(limit)},
	}
	var result searchResponse
	if err := c.get(ctx, "/search/issues", query, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}
