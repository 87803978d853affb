// Package insight requests aggregate and per-item AI insights, with
// request deduplication, a bounded timeout, and a deterministic local
// fallback when the remote service is slow or down.
package insight

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

// Scope selects which slice of the CRM an aggregate insight covers.
type Scope struct {
	Days   int
	UserID string
	LeadID string
}

// Signature is the deduplication key: concurrent requests with equal
// signatures share one network call.
func (s Scope) Signature() string {
	return fmt.Sprintf("days=%d&user=%s&lead=%s", s.Days, s.UserID, s.LeadID)
}

// remoteInsights is the aggregate payload the AI service returns.
type remoteInsights struct {
	TotalActivities  int    `json:"total_activities"`
	ActiveActivities int    `json:"active_activities"`
	ActiveRate       int    `json:"active_rate"`
	Trend            string `json:"trend"`
	Summary          string `json:"summary"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type nextStepResponse struct {
	Suggestion string `json:"suggestion"`
}

type weeklyReportResponse struct {
	Report string `json:"report"`
}

// Client talks to the AI-insight service.
type Client struct {
	api *httpapi.Client
}

// NewClient creates a Client against the given base URL.
func NewClient(baseURL string, timeout time.Duration, signer httpapi.Signer) *Client {
	return &Client{api: httpapi.NewClient(baseURL, timeout, signer)}
}

// Ping checks that the service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.api.Get(ctx, "/", nil, nil, nil)
}

// Insights fetches the aggregate insight for a scope.
func (c *Client) Insights(ctx context.Context, scope Scope) (remoteInsights, error) {
	q := url.Values{}
	if scope.Days > 0 {
		q.Set("days", strconv.Itoa(scope.Days))
	}
	if scope.UserID != "" {
		q.Set("user_id", scope.UserID)
	}
	if scope.LeadID != "" {
		q.Set("lead_id", scope.LeadID)
	}
	var out remoteInsights
	if err := c.api.Get(ctx, "/ai/insights", q, nil, &out); err != nil {
		return remoteInsights{}, fmt.Errorf("ai insights: %w", err)
	}
	return out, nil
}

// SummarizeActivity asks the service to summarize one activity.
func (c *Client) SummarizeActivity(ctx context.Context, id string) (string, error) {
	var out summarizeResponse
	if err := c.api.Post(ctx, "/ai/summarize/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return "", fmt.Errorf("ai summarize %s: %w", id, err)
	}
	return out.Summary, nil
}

// SuggestNextStep asks the service for the next action on one activity.
func (c *Client) SuggestNextStep(ctx context.Context, id string) (string, error) {
	var out nextStepResponse
	if err := c.api.Post(ctx, "/ai/next-step/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return "", fmt.Errorf("ai next step %s: %w", id, err)
	}
	return out.Suggestion, nil
}

// WeeklyReport fetches the generated weekly report text.
func (c *Client) WeeklyReport(ctx context.Context) (string, error) {
	var out weeklyReportResponse
	if err := c.api.Get(ctx, "/ai/weekly-report", nil, nil, &out); err != nil {
		return "", fmt.Errorf("ai weekly report: %w", err)
	}
	return out.Report, nil
}
