// Package activity holds the client-side activity/task ledger: the typed
// records, the two status-derived views, and the store that keeps them in
// sync with the activity service.
package activity

import (
	"strings"
	"time"
)

// Status is the backend-held lifecycle state of an activity or task.
type Status string

const (
	StatusPlanned   Status = "Planned"
	StatusPending   Status = "Pending"
	StatusOverdue   Status = "Overdue"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Open reports whether the status belongs to the open-work view.
func (s Status) Open() bool {
	switch s {
	case StatusPlanned, StatusPending, StatusOverdue:
		return true
	}
	return false
}

// History reports whether the status belongs to the history view.
// Every known status is exactly one of Open or History.
func (s Status) History() bool {
	switch s {
	case StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Activity is a single ledger record. Tasks and logged activities share
// this shape; the status alone decides which view a record lands in.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	LeadID      string    `json:"lead_id,omitempty"`
	LeadName    string    `json:"lead_name,omitempty"`
	LeadEmail   string    `json:"lead_email,omitempty"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows a ledger listing. All set fields must match; matching
// never re-sorts, backend ordering is preserved.
type Filter struct {
	Status   Status // exact status
	Priority string // exact priority, case-insensitive
	Type     string // substring of Type, case-insensitive
	Query    string // substring of Title, Description, or LeadName, case-insensitive
}

// Matches reports whether a passes every set field of the filter.
func (f Filter) Matches(a Activity) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(f.Priority, a.Priority) {
		return false
	}
	if f.Type != "" && !containsFold(a.Type, f.Type) {
		return false
	}
	if f.Query != "" {
		if !containsFold(a.Title, f.Query) &&
			!containsFold(a.Description, f.Query) &&
			!containsFold(a.LeadName, f.Query) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Partition splits a ledger listing into the open-work and history views.
// The two slices preserve input order and together cover the input exactly.
func Partition(list []Activity) (open, history []Activity) {
	for _, a := range list {
		if a.Status.History() {
			history = append(history, a)
		} else {
			open = append(open, a)
		}
	}
	return open, history
}

// Summary is the aggregate overview the activity service computes
// server-side.
type Summary struct {
	Total     int            `json:"total"`
	Open      int            `json:"open"`
	Completed int            `json:"completed"`
	Cancelled int            `json:"cancelled"`
	ByType    map[string]int `json:"by_type,omitempty"`
}

// CreatePayload is the request body for creating an activity or task.
type CreatePayload struct {
	LeadID        string         `json:"lead_id"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status,omitempty"`
	Priority      string         `json:"priority,omitempty"`
	Outcome       string         `json:"outcome,omitempty"`
	AssignedTo    string         `json:"assigned_to,omitempty"`
	SourceChannel string         `json:"source_channel,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// VerifyPayload is the request body for verifying an activity.
type VerifyPayload struct {
	ActivityID string         `json:"activity_id"`
	VerifiedBy string         `json:"verified_by,omitempty"`
	Note       string         `json:"note,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}
