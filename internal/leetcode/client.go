// Package leetcode implements the judge-service client: fetching a user's
// recent accepted submissions over the LeetCode GraphQL API.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MRegirouard/StreakCode/internal/kit"
)

const (
	defaultEndpoint = "https://leetcode.com/graphql"
	defaultLimit    = 20
)

const recentSubmissionsQuery = `query recentSubmissions($username: String!, $limit: Int!) {
  recentSubmissionList(username: $username, limit: $limit) {
    title
    titleSlug
    timestamp
    statusDisplay
    lang
  }
}`

type Config struct {
	Endpoint string
	Limit    int
	Timeout  time.Duration
}

// Client fetches submission history. It implements kit.SubmissionSource.
type Client struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client
}

func New(cfg Config, log *slog.Logger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: timeout}}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		RecentSubmissionList []struct {
			Title         string `json:"title"`
			TitleSlug     string `json:"titleSlug"`
			Timestamp     string `json:"timestamp"`
			StatusDisplay string `json:"statusDisplay"`
			Lang          string `json:"lang"`
		} `json:"recentSubmissionList"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// RecentAccepted returns the account's recent accepted submissions,
// newest first, as the judge reports them.
func (c *Client) RecentAccepted(ctx context.Context, account string) ([]kit.Submission, error) {
	body, err := json.Marshal(gqlRequest{
		Query: recentSubmissionsQuery,
		Variables: map[string]any{
			"username": account,
			"limit":    c.cfg.Limit,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leetcode fetch for %s: %w", account, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leetcode fetch for %s: status %d", account, resp.StatusCode)
	}

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("leetcode decode for %s: %w", account, err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("leetcode query for %s: %s", account, out.Errors[0].Message)
	}

	var subs []kit.Submission
	for _, r := range out.Data.RecentSubmissionList {
		if r.StatusDisplay != "Accepted" {
			continue
		}
		subs = append(subs, kit.Submission{
			ProblemID:  r.TitleSlug,
			Title:      r.Title,
			Lang:       r.Lang,
			AcceptedAt: parseTimestamp(r.Timestamp),
		})
	}
	return subs, nil
}

func parseTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
