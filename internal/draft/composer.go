package draft

import (
	"context"
	"fmt"

	"github.com/uplift-crm/upliftsync/internal/mailbox"
)

// Sender delivers a composed message. *mailbox.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, req mailbox.SendRequest) error
}

// Composer ties the draft lifecycle to the messaging collaborator: open
// pre-fills from the staged draft, every edit writes through, a
// successful send clears the draft.
type Composer struct {
	drafts *Store
	sender Sender
}

// NewComposer creates a Composer.
func NewComposer(drafts *Store, sender Sender) *Composer {
	return &Composer{drafts: drafts, sender: sender}
}

// Open returns the staged draft for the entity, "" when none exists.
func (c *Composer) Open(entityID string) (string, error) {
	return c.drafts.Load(entityID)
}

// Edit stages the current text for the entity.
func (c *Composer) Edit(entityID, body string) error {
	return c.drafts.Save(entityID, body)
}

// Send delivers the message and, only on success, clears the entity's
// draft. A failed send leaves the draft staged.
func (c *Composer) Send(ctx context.Context, entityID string, req mailbox.SendRequest) error {
	if err := c.sender.Send(ctx, req); err != nil {
		return err
	}
	if err := c.drafts.Clear(entityID); err != nil {
		return fmt.Errorf("sent but draft not cleared: %w", err)
	}
	return nil
}
