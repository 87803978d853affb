// Package feed publishes ledger mutation events to the CRM analytics
// stream. Publishing is best-effort: the mutation has already been
// accepted by the activity service by the time an event goes out.
package feed

import (
	"context"
	"time"
)

// Event kinds emitted by the ledger store.
const (
	KindActivityCreated   = "activity.created"
	KindActivityCompleted = "activity.completed"
	KindActivityVerified  = "activity.verified"
)

// Event is one ledger mutation.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ActivityID string    `json:"activity_id,omitempty"`
	LeadID     string    `json:"lead_id,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events to the stream.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// ChannelPublisher is an in-process Publisher backed by a Go channel,
// used in tests and when no brokers are configured.
type ChannelPublisher struct {
	ch chan Event
}

// NewChannelPublisher creates an in-process publisher.
func NewChannelPublisher() *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan Event, 100)}
}

// Publish pushes an event into the channel, dropping it when full.
func (p *ChannelPublisher) Publish(ctx context.Context, ev Event) error {
	select {
	case p.ch <- ev:
	default:
	}
	return nil
}

// Events returns the channel of published events.
func (p *ChannelPublisher) Events() <-chan Event { return p.ch }

// Close closes the channel.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
