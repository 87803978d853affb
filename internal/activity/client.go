package activity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

// Client talks to the activity service. The service is the single source
// of truth for ledger records; this client never invents state.
type Client struct {
	api *httpapi.Client
}

// NewClient creates a Client against the given base URL.
func NewClient(baseURL string, timeout time.Duration, signer httpapi.Signer) *Client {
	return &Client{api: httpapi.NewClient(baseURL, timeout, signer)}
}

// wireActivity is the loosely-shaped record the service returns. Older
// deployments emit different field names for the same values; normalize
// resolves them once, here at the boundary.
type wireActivity struct {
	ID           any    `json:"id"`
	UID          string `json:"uid"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	Outcome      string `json:"outcome"`
	LeadID       any    `json:"lead_id"`
	LinkedEntity string `json:"linked_entity_id"`
	BusinessName string `json:"business_name"`
	LeadName     string `json:"lead_name"`
	EntityName   string `json:"linked_entity_name"`
	Email        string `json:"email"`
	ContactEmail string `json:"contact_email"`
	LeadEmail    string `json:"lead_email"`
	AssignedTo   any    `json:"assigned_to"`
	CreatedAt    string `json:"created_at"`
}

// normalize maps a wire record onto the typed Activity. Field fallbacks are
// resolved in a fixed priority order:
//
//	id:         id > uid
//	lead id:    lead_id > linked_entity_id
//	lead name:  business_name > lead_name > linked_entity_name
//	lead email: email > contact_email > lead_email
//
// created_at accepts RFC 3339 with or without sub-second precision.
func (w wireActivity) normalize() Activity {
	a := Activity{
		Type:        w.Type,
		Title:       w.Title,
		Description: w.Description,
		Status:      Status(w.Status),
		Priority:    w.Priority,
		Outcome:     w.Outcome,
	}
	a.ID = firstNonEmpty(asString(w.ID), w.UID)
	a.LeadID = firstNonEmpty(asString(w.LeadID), w.LinkedEntity)
	a.LeadName = firstNonEmpty(w.BusinessName, w.LeadName, w.EntityName)
	a.LeadEmail = firstNonEmpty(w.Email, w.ContactEmail, w.LeadEmail)
	a.AssignedTo = asString(w.AssignedTo)
	if w.CreatedAt != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, w.CreatedAt); err == nil {
				a.CreatedAt = t
				break
			}
		}
	}
	return a
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// List fetches the full ledger in the service's canonical order.
func (c *Client) List(ctx context.Context) ([]Activity, error) {
	var wire []wireActivity
	if err := c.api.Get(ctx, "/activities", nil, nil, &wire); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]Activity, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// Get fetches a single activity by id.
func (c *Client) Get(ctx context.Context, id string) (Activity, error) {
	var w wireActivity
	if err := c.api.Get(ctx, "/activities/"+url.PathEscape(id), nil, nil, &w); err != nil {
		return Activity{}, fmt.Errorf("get activity %s: %w", id, err)
	}
	return w.normalize(), nil
}

// Create submits a new activity or task. The service may synthesize side
// effects (an auto follow-up task, for one); callers must refetch to see
// the real resulting ledger.
func (c *Client) Create(ctx context.Context, p CreatePayload) (Activity, error) {
	var w wireActivity
	if err := c.api.Post(ctx, "/activities", nil, p, &w); err != nil {
		return Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return w.normalize(), nil
}

// Update submits a partial update for an activity.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) (Activity, error) {
	var w wireActivity
	if err := c.api.Put(ctx, "/activities/"+url.PathEscape(id), nil, fields, &w); err != nil {
		return Activity{}, fmt.Errorf("update activity %s: %w", id, err)
	}
	return w.normalize(), nil
}

// Verify submits a verification for an activity.
func (c *Client) Verify(ctx context.Context, p VerifyPayload) (Activity, error) {
	var w wireActivity
	if err := c.api.Post(ctx, "/activities/verify", nil, p, &w); err != nil {
		return Activity{}, fmt.Errorf("verify activity: %w", err)
	}
	return w.normalize(), nil
}

// Summary fetches the server-computed overview.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	if err := c.api.Get(ctx, "/activities/summary/overview", nil, nil, &s); err != nil {
		return Summary{}, fmt.Errorf("activity summary: %w", err)
	}
	return s, nil
}
