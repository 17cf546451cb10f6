package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
)

// Deliverer hands a single notification to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, n *domain.Notification) error
}

// Inbox persists notifications for later retrieval by the recipient.
type Inbox struct {
	repo repository.NotificationRepository
}

// NewInbox builds an inbox deliverer.
func NewInbox(repo repository.NotificationRepository) *Inbox {
	return &Inbox{repo: repo}
}

// Deliver stores n.
func (i *Inbox) Deliver(ctx context.Context, n *domain.Notification) error {
	return i.repo.Create(ctx, n)
}

// Chain delivers to a primary channel and then mirrors to the rest. Only the
// primary outcome is reported; mirror failures are logged.
type Chain struct {
	primary Deliverer
	mirrors []Deliverer
	logger  *zap.Logger
}

// NewChain builds a chain. Nil mirrors are skipped.
func NewChain(logger *zap.Logger, primary Deliverer, mirrors ...Deliverer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{primary: primary, logger: logger}
	for _, m := range mirrors {
		if m != nil {
			c.mirrors = append(c.mirrors, m)
		}
	}
	return c
}

// Deliver implements Deliverer.
func (c *Chain) Deliver(ctx context.Context, n *domain.Notification) error {
	if err := c.primary.Deliver(ctx, n); err != nil {
		return err
	}
	for _, m := range c.mirrors {
		if err := m.Deliver(ctx, n); err != nil {
			c.logger.Warn("notification mirror failed",
				zap.String("notification_id", n.ID),
				zap.String("recipient_id", n.RecipientID),
				zap.Error(err))
		}
	}
	return nil
}
