package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a catalog entry as served by the resto API.
type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"is_available"`
}

// NewMenuItem builds a MenuItem, rejecting records that cannot be priced.
func NewMenuItem(id, name, category string, price decimal.Decimal, available bool) (MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MenuItem{}, fmt.Errorf("menu item %q: name is required", id)
	}
	if price.IsNegative() {
		return MenuItem{}, fmt.Errorf("menu item %q: price cannot be negative", name)
	}

	return MenuItem{
		ID:        id,
		Name:      name,
		Category:  strings.TrimSpace(category),
		Price:     price,
		Available: available,
	}, nil
}

// Line is the shape shared by cart and order lines.
type Line struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// IsBlank reports whether no item has been chosen for the line.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Name) == ""
}

// CartLine is a tentative selection held by a Cart.
type CartLine struct {
	Line
}

// NewCartLine starts a cart line for item with quantity 1.
func NewCartLine(item MenuItem) CartLine {
	return CartLine{Line: Line{
		ItemID:   item.ID,
		Name:     item.Name,
		Category: item.Category,
		Price:    item.Price,
		Quantity: 1,
	}}
}

// OrderLine is a line owned by a Builder.
type OrderLine struct {
	Line
}

func blankOrderLine() OrderLine {
	return OrderLine{Line: Line{Quantity: 1, Price: decimal.Zero}}
}

// AdditionalPayment is a free-form charge outside the catalog, e.g. a packaging fee.
type AdditionalPayment struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Counts reports whether the payment takes part in totals.
func (p AdditionalPayment) Counts() bool {
	return strings.TrimSpace(p.Description) != "" && p.Amount.IsPositive()
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeOut  OrderType = "take-out"
	OrderTypeDelivery OrderType = "delivery"
)

// ParseOrderType accepts the three order types the resto API knows.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(s))) {
	case OrderTypeDineIn:
		return OrderTypeDineIn, nil
	case OrderTypeTakeOut:
		return OrderTypeTakeOut, nil
	case OrderTypeDelivery:
		return OrderTypeDelivery, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, s)
}

const (
	DefaultCreatedBy     = "Unknown"
	DefaultPaymentMethod = "Cash"
)

// Order is both the submission payload and, once ID and CreatedAt are set,
// the persisted result. It is never mutated after Snapshot.
type Order struct {
	ID                 string              `json:"id,omitempty"`
	OrderType          OrderType           `json:"order_type"`
	Lines              []OrderLine         `json:"lines"`
	AdditionalPayments []AdditionalPayment `json:"additional_payments"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	AdditionalTotal    decimal.Decimal     `json:"additional_total"`
	Total              decimal.Decimal     `json:"total"`
	CreatedBy          string              `json:"created_by"`
	PaymentMethod      string              `json:"payment_method"`
	CreatedAt          time.Time           `json:"created_at"`

	// IdempotencyKey identifies one submission attempt to the resto API. It
	// is reused when the same snapshot is sent again.
	IdempotencyKey string `json:"-"`
}

// Persisted reports whether the resto API has assigned an identity.
func (o Order) Persisted() bool {
	return o.ID != "" || !o.CreatedAt.IsZero()
}

func (o Order) clone() Order {
	c := o
	c.Lines = append([]OrderLine(nil), o.Lines...)
	c.AdditionalPayments = append([]AdditionalPayment(nil), o.AdditionalPayments...)
	return c
}
