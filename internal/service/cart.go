package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/event"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single line.
	MaxQuantityPerLine = 100
	// MaxLinesPerCart is the maximum number of distinct products in a cart.
	MaxLinesPerCart = 50
)

// AddItemInput holds the parameters for adding a product to the cart. The
// name, price, image, and description come from the menu the shopper saw and
// are snapshotted as-is.
type AddItemInput struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	ImageRef    string `json:"image_ref"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetCart retrieves the cart for a customer. Loading never fails the caller:
// an absent cart reads as empty, and a corrupt persisted cart is discarded
// and also reads as empty.
func (s *CartService) GetCart(ctx context.Context, customerRef string) (*domain.Cart, error) {
	if customerRef == "" {
		return nil, apperrors.InvalidInput("customer ref is required")
	}

	cart, err := s.repo.Get(ctx, customerRef)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return domain.NewCart(customerRef), nil
		case errors.Is(err, repository.ErrCorrupt):
			s.logger.WarnContext(ctx, "discarding corrupt cart",
				slog.String("customer_ref", customerRef),
				slog.String("error", err.Error()),
			)
			if delErr := s.repo.Delete(ctx, customerRef); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to delete corrupt cart",
					slog.String("customer_ref", customerRef),
					slog.String("error", delErr.Error()),
				)
			}
			return domain.NewCart(customerRef), nil
		default:
			return nil, fmt.Errorf("get cart: %w", err)
		}
	}

	return cart, nil
}

// AddItem adds a product to the cart. Adding a product already present merges
// by increasing its quantity; the snapshot fields are refreshed from the
// input so the cart shows what the shopper last saw.
func (s *CartService) AddItem(ctx context.Context, customerRef string, input AddItemInput) (*domain.Cart, error) {
	if input.ProductID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	cart, err := s.GetCart(ctx, customerRef)
	if err != nil {
		return nil, err
	}

	if i := cart.FindLineIndex(input.ProductID); i >= 0 {
		newQty := cart.Lines[i].Quantity + input.Quantity
		if newQty > MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
		}
		cart.Lines[i].Quantity = newQty
		cart.Lines[i].Name = input.Name
		cart.Lines[i].UnitPrice = input.UnitPrice
		cart.Lines[i].ImageRef = input.ImageRef
		cart.Lines[i].Description = input.Description
	} else {
		if len(cart.Lines) >= MaxLinesPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d products", MaxLinesPerCart))
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:   input.ProductID,
			Name:        input.Name,
			UnitPrice:   input.UnitPrice,
			ImageRef:    input.ImageRef,
			Description: input.Description,
			Quantity:    input.Quantity,
		})
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product added to cart",
		slog.String("customer_ref", customerRef),
		slog.Int64("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// SetQuantity sets the quantity of a line. Zero or negative removes the line;
// removing the last line removes the persisted cart entirely.
func (s *CartService) SetQuantity(ctx context.Context, customerRef string, productID int64, quantity int) (*domain.Cart, error) {
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	cart, err := s.GetCart(ctx, customerRef)
	if err != nil {
		return nil, err
	}

	i := cart.FindLineIndex(productID)
	if i < 0 {
		return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
	}

	if quantity <= 0 {
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
	} else {
		cart.Lines[i].Quantity = quantity
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line quantity set",
		slog.String("customer_ref", customerRef),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes one product line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, customerRef string, productID int64) (*domain.Cart, error) {
	if productID <= 0 {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.GetCart(ctx, customerRef)
	if err != nil {
		return nil, err
	}

	i := cart.FindLineIndex(productID)
	if i < 0 {
		return nil, apperrors.NotFound("cart line", fmt.Sprintf("%d", productID))
	}
	cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line removed",
		slog.String("customer_ref", customerRef),
		slog.Int64("product_id", productID),
	)

	return cart, nil
}

// ClearCart empties the cart and removes its persisted representation.
func (s *CartService) ClearCart(ctx context.Context, customerRef string) error {
	if customerRef == "" {
		return apperrors.InvalidInput("customer ref is required")
	}

	if err := s.repo.Delete(ctx, customerRef); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, customerRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("customer_ref", customerRef),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared", slog.String("customer_ref", customerRef))
	return nil
}

// save persists the cart and publishes the change. Publishing is best effort;
// a broker outage must not lose the shopper's cart edit.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	if cart.IsEmpty() {
		if err := s.producer.PublishCartCleared(ctx, cart.CustomerRef); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("customer_ref", cart.CustomerRef),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if err := s.producer.PublishCartChanged(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.changed event",
			slog.String("customer_ref", cart.CustomerRef),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
