package mailbox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

// Thread is one mail conversation with a lead.
type Thread struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Unread  bool   `json:"unread"`
	Starred bool   `json:"starred"`
}

// SendRequest is an outgoing mail message.
type SendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	ThreadID string `json:"threadId,omitempty"`
}

// Thread mark actions accepted by MarkThread.
const (
	MarkRead   = "read"
	MarkUnread = "unread"
	MarkStar   = "star"
	MarkUnstar = "unstar"
)

// Client talks to the mail-integration service. The signed-in user's
// identity rides along as an X-User-Email header plus query parameter on
// every call.
type Client struct {
	api       *httpapi.Client
	userEmail string
}

// NewClient creates a Client bound to one signed-in user identity.
func NewClient(baseURL, userEmail string, timeout time.Duration, signer httpapi.Signer) *Client {
	return &Client{
		api:       httpapi.NewClient(baseURL, timeout, signer),
		userEmail: userEmail,
	}
}

// UserEmail returns the identity this client is bound to.
func (c *Client) UserEmail() string { return c.userEmail }

func (c *Client) identity() (url.Values, http.Header) {
	q := url.Values{}
	h := http.Header{}
	if c.userEmail != "" {
		q.Set("user_email", c.userEmail)
		h.Set("X-User-Email", c.userEmail)
	}
	return q, h
}

// Status issues the lightweight integration check the capability cache
// probes with. A nil error means the mailbox integration is connected.
func (c *Client) Status(ctx context.Context) error {
	q, h := c.identity()
	return c.api.Get(ctx, "/integrations/gmail/status", q, h, nil)
}

// wireUnread tolerates the two count shapes older deployments emit:
// unread_count is preferred, count is the fallback, missing means zero.
type wireUnread struct {
	UnreadCount *int `json:"unread_count"`
	Count       *int `json:"count"`
}

func (w wireUnread) normalize() int {
	if w.UnreadCount != nil {
		return *w.UnreadCount
	}
	if w.Count != nil {
		return *w.Count
	}
	return 0
}

// UnreadCount fetches the unread message count for a lead's address.
func (c *Client) UnreadCount(ctx context.Context, leadEmail string) (int, error) {
	q, h := c.identity()
	var w wireUnread
	if err := c.api.Get(ctx, "/integrations/gmail/unread-count/"+url.PathEscape(leadEmail), q, h, &w); err != nil {
		return 0, fmt.Errorf("unread count for %s: %w", leadEmail, err)
	}
	return w.normalize(), nil
}

// Threads lists the mail threads exchanged with a lead's address.
func (c *Client) Threads(ctx context.Context, leadEmail string) ([]Thread, error) {
	q, h := c.identity()
	q.Set("lead_email", leadEmail)
	var threads []Thread
	if err := c.api.Get(ctx, "/integrations/gmail/threads", q, h, &threads); err != nil {
		return nil, fmt.Errorf("threads for %s: %w", leadEmail, err)
	}
	return threads, nil
}

// Send sends a message through the integration.
func (c *Client) Send(ctx context.Context, req SendRequest) error {
	_, h := c.identity()
	if err := c.api.Post(ctx, "/integrations/gmail/send", h, req, nil); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// MarkThread applies a read/star action to a thread.
func (c *Client) MarkThread(ctx context.Context, threadID, action string) error {
	_, h := c.identity()
	body := map[string]string{"threadId": threadID, "action": action}
	if err := c.api.Post(ctx, "/integrations/gmail/thread/mark", h, body, nil); err != nil {
		return fmt.Errorf("mark thread %s %s: %w", threadID, action, err)
	}
	return nil
}
