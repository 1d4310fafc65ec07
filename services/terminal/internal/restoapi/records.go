package restoapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
)

// menuItemRecord is a GET /items entry. The resto API is Mongo backed and
// sends _id; id is accepted as well.
type menuItemRecord struct {
	MongoID     string          `json:"_id"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"isAvailable"`
}

func (r menuItemRecord) toMenuItem() checkout.MenuItem {
	return checkout.MenuItem{
		ID:        firstNonEmpty(r.MongoID, r.ID),
		Name:      r.Name,
		Category:  r.Category,
		Price:     r.Price,
		Available: r.IsAvailable,
	}
}

type orderItemRequest struct {
	ItemID   string      `json:"itemId"`
	Name     string      `json:"name"`
	Category string      `json:"category,omitempty"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type additionalPaymentRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

// createOrderRequest is the POST /orders body. Amounts go out as JSON
// numbers written from the decimal text, so no float conversion happens.
type createOrderRequest struct {
	OrderType          string                     `json:"orderType"`
	Items              []orderItemRequest         `json:"items"`
	AdditionalPayments []additionalPaymentRequest `json:"additionalPayments"`
	Subtotal           json.Number                `json:"subtotal"`
	AdditionalTotal    json.Number                `json:"additionalTotal"`
	Total              json.Number                `json:"total"`
	PaymentMethod      string                     `json:"paymentMethod"`
	CreatedBy          string                     `json:"createdBy"`
}

func newCreateOrderRequest(o checkout.Order) createOrderRequest {
	req := createOrderRequest{
		OrderType:          string(o.OrderType),
		Items:              make([]orderItemRequest, 0, len(o.Lines)),
		AdditionalPayments: make([]additionalPaymentRequest, 0, len(o.AdditionalPayments)),
		Subtotal:           number(o.Subtotal),
		AdditionalTotal:    number(o.AdditionalTotal),
		Total:              number(o.Total),
		PaymentMethod:      o.PaymentMethod,
		CreatedBy:          o.CreatedBy,
	}
	for _, l := range o.Lines {
		req.Items = append(req.Items, orderItemRequest{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Category: l.Category,
			Price:    number(l.Price),
			Quantity: l.Quantity,
		})
	}
	for _, p := range o.AdditionalPayments {
		req.AdditionalPayments = append(req.AdditionalPayments, additionalPaymentRequest{
			Description: p.Description,
			Amount:      number(p.Amount),
		})
	}
	return req
}

type orderItemRecord struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type additionalPaymentRecord struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// orderRecord is a persisted order as the resto API returns it. Older
// records carry totalAmount instead of total.
type orderRecord struct {
	MongoID            string                    `json:"_id"`
	ID                 string                    `json:"id"`
	OrderID            string                    `json:"orderId"`
	OrderType          string                    `json:"orderType"`
	Items              []orderItemRecord         `json:"items"`
	AdditionalPayments []additionalPaymentRecord `json:"additionalPayments"`
	Subtotal           decimal.Decimal           `json:"subtotal"`
	AdditionalTotal    decimal.Decimal           `json:"additionalTotal"`
	Total              decimal.NullDecimal       `json:"total"`
	TotalAmount        decimal.NullDecimal       `json:"totalAmount"`
	PaymentMethod      string                    `json:"paymentMethod"`
	CreatedBy          string                    `json:"createdBy"`
	CreatedAt          *time.Time                `json:"createdAt"`
}

func (r orderRecord) toOrder() checkout.Order {
	o := checkout.Order{
		ID:              firstNonEmpty(r.MongoID, r.ID, r.OrderID),
		OrderType:       checkout.OrderType(r.OrderType),
		Subtotal:        r.Subtotal,
		AdditionalTotal: r.AdditionalTotal,
		PaymentMethod:   r.PaymentMethod,
		CreatedBy:       r.CreatedBy,
	}
	switch {
	case r.Total.Valid:
		o.Total = r.Total.Decimal
	case r.TotalAmount.Valid:
		o.Total = r.TotalAmount.Decimal
	}
	if r.CreatedAt != nil {
		o.CreatedAt = *r.CreatedAt
	}
	for _, it := range r.Items {
		o.Lines = append(o.Lines, checkout.OrderLine{Line: checkout.Line{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Category: it.Category,
			Price:    it.Price,
			Quantity: it.Quantity,
		}})
	}
	for _, p := range r.AdditionalPayments {
		o.AdditionalPayments = append(o.AdditionalPayments, checkout.AdditionalPayment{
			Description: p.Description,
			Amount:      p.Amount,
		})
	}
	return o
}

// orderIdentity reads only the id of a response that does not decode as
// an orderRecord.
type orderIdentity struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
}

func (r orderIdentity) value() string {
	return firstNonEmpty(r.MongoID, r.ID, r.OrderID)
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
