package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	pkgkafka "github.com/Fblink88/appburguer-backend/pkg/kafka"
)

// Kafka topics for cart domain events.
var (
	TopicCartChanged = pkgkafka.Topic("cart", "changed")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from this service.
const SourceStorefront = "storefront"

// CartChangedData is the payload for a cart.changed event.
type CartChangedData struct {
	CustomerRef string         `json:"customer_ref"`
	Lines       []CartLineData `json:"lines"`
	ItemCount   int            `json:"item_count"`
	Subtotal    int64          `json:"subtotal"`
}

// CartLineData is the line payload within cart events.
type CartLineData struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CustomerRef string `json:"customer_ref"`
}

// Producer publishes cart domain events to Kafka. Publishing is best effort;
// callers log failures and continue rather than failing the cart operation.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for cart changes.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartChanged publishes a cart.changed event carrying the full new
// cart state. Consumers replace, not merge, their projections.
func (p *Producer) PublishCartChanged(ctx context.Context, cart *domain.Cart) error {
	lines := make([]CartLineData, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = CartLineData{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}

	data := CartChangedData{
		CustomerRef: cart.CustomerRef,
		Lines:       lines,
		ItemCount:   cart.ItemCount(),
		Subtotal:    cart.Subtotal(),
	}

	event, err := pkgkafka.NewEvent(TopicCartChanged, cart.CustomerRef, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartChanged, event); err != nil {
		return fmt.Errorf("publish cart.changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.changed event",
		slog.String("customer_ref", cart.CustomerRef),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, customerRef string) error {
	data := CartClearedData{CustomerRef: customerRef}

	event, err := pkgkafka.NewEvent(TopicCartCleared, customerRef, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("customer_ref", customerRef),
	)

	return nil
}
