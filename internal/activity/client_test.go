package activity

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeFieldFallbacks(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Activity
	}{
		{
			name: "preferred fields win",
			raw: `{"id": "a1", "uid": "u1", "lead_id": "l1", "linked_entity_id": "x1",
				"business_name": "Acme", "lead_name": "acme-alt", "email": "a@x.com",
				"contact_email": "b@x.com", "status": "Planned", "title": "t"}`,
			want: Activity{ID: "a1", LeadID: "l1", LeadName: "Acme", LeadEmail: "a@x.com", Status: StatusPlanned, Title: "t"},
		},
		{
			name: "fallback chain",
			raw: `{"uid": "u1", "linked_entity_id": "x1", "linked_entity_name": "Beta Corp",
				"lead_email": "c@x.com", "status": "Completed", "title": "t"}`,
			want: Activity{ID: "u1", LeadID: "x1", LeadName: "Beta Corp", LeadEmail: "c@x.com", Status: StatusCompleted, Title: "t"},
		},
		{
			name: "second email fallback",
			raw:  `{"id": "a2", "contact_email": "b@x.com", "lead_email": "c@x.com", "status": "Pending", "title": "t"}`,
			want: Activity{ID: "a2", LeadEmail: "b@x.com", Status: StatusPending, Title: "t"},
		},
		{
			name: "numeric ids",
			raw:  `{"id": 42, "lead_id": 7, "status": "Overdue", "title": "t"}`,
			want: Activity{ID: "42", LeadID: "7", Status: StatusOverdue, Title: "t"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var w wireActivity
			if err := json.Unmarshal([]byte(tc.raw), &w); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := w.normalize()
			got.CreatedAt = time.Time{}
			if got != tc.want {
				t.Errorf("normalize = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNormalizeCreatedAtLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{`{"created_at": "2026-08-29T10:30:00Z"}`, time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)},
		{`{"created_at": "2026-08-29T10:30:00.123456Z"}`, time.Date(2026, 8, 29, 10, 30, 0, 123456000, time.UTC)},
		{`{"created_at": "2026-08-29 10:30:00"}`, time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)},
		{`{"created_at": "garbage"}`, time.Time{}},
	}
	for _, tc := range cases {
		var w wireActivity
		if err := json.Unmarshal([]byte(tc.raw), &w); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got := w.normalize().CreatedAt; !got.Equal(tc.want) {
			t.Errorf("created_at %s → %v, want %v", tc.raw, got, tc.want)
		}
	}
}
