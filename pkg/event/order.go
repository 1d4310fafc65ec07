package event

import "time"

const (
	// OrdersPlacedTopic carries one message per order the resto API accepted.
	OrdersPlacedTopic = "orders.placed"
	EventOrderPlaced  = "order.placed"
)

// OrderPlacedEvent is published by the terminal after a successful checkout.
// Amounts are decimal strings so consumers never see float rounding.
type OrderPlacedEvent struct {
	EventType       string            `json:"event_type"`
	OccurredAt      time.Time         `json:"occurred_at"`
	OrderID         string            `json:"order_id"`
	SessionID       string            `json:"session_id"`
	OrderType       string            `json:"order_type"`
	CreatedBy       string            `json:"created_by"`
	PaymentMethod   string            `json:"payment_method"`
	Items           []OrderPlacedItem `json:"items"`
	Subtotal        string            `json:"subtotal"`
	AdditionalTotal string            `json:"additional_total"`
	Total           string            `json:"total"`
}

type OrderPlacedItem struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}
