package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fblink88/appburguer-backend/internal/repository"
	pkgkafka "github.com/Fblink88/appburguer-backend/pkg/kafka"
)

// BadgeProjector consumes cart events and maintains the item-count badge
// projection, fanning each change out to in-process subscribers.
type BadgeProjector struct {
	badges   repository.BadgeRepository
	notifier *Notifier
	logger   *slog.Logger
}

// NewBadgeProjector creates a projector over the badge store and notifier.
func NewBadgeProjector(badges repository.BadgeRepository, notifier *Notifier, logger *slog.Logger) *BadgeProjector {
	return &BadgeProjector{
		badges:   badges,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle is the kafka consumer entry point for cart events.
func (p *BadgeProjector) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicCartChanged:
		return p.handleChanged(ctx, event)
	case TopicCartCleared:
		return p.handleCleared(ctx, event)
	default:
		p.logger.DebugContext(ctx, "ignoring unknown event type",
			slog.String("event_type", event.EventType),
		)
		return nil
	}
}

func (p *BadgeProjector) handleChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data CartChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal cart.changed data: %w", err)
	}

	if err := p.badges.SetBadge(ctx, data.CustomerRef, data.ItemCount); err != nil {
		return fmt.Errorf("project badge: %w", err)
	}

	p.notifier.Notify(CartChange{
		CustomerRef: data.CustomerRef,
		ItemCount:   data.ItemCount,
		Subtotal:    data.Subtotal,
	})

	return nil
}

func (p *BadgeProjector) handleCleared(ctx context.Context, event *pkgkafka.Event) error {
	var data CartClearedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal cart.cleared data: %w", err)
	}

	if err := p.badges.DeleteBadge(ctx, data.CustomerRef); err != nil {
		return fmt.Errorf("clear badge projection: %w", err)
	}

	p.notifier.Notify(CartChange{CustomerRef: data.CustomerRef})

	return nil
}
