package domain

import "time"

// CartLine is one product in the cart. Name, price, image, and description
// are a snapshot captured when the product was added; they are not re-read
// from the catalog afterwards.
type CartLine struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unit_price"`
	ImageRef    string `json:"image_ref,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
}

// LineSubtotal returns unit price times quantity for this line.
func (l CartLine) LineSubtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is the in-progress order for one customer. Lines are keyed by
// product ID; the same product never appears twice.
type Cart struct {
	CustomerRef string     `json:"customer_ref"`
	Lines       []CartLine `json:"lines"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart for the given customer.
func NewCart(customerRef string) *Cart {
	return &Cart{
		CustomerRef: customerRef,
		Lines:       []CartLine{},
		UpdatedAt:   time.Now().UTC(),
	}
}

// Subtotal is the exact integer sum of unit price times quantity over all
// lines. Recomputed on every call; carts are bounded by human order sizes.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLineIndex returns the index of the line for the given product, or -1.
func (c *Cart) FindLineIndex(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
