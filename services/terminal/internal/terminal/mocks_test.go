package terminal

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/appetiteclub/pos/services/terminal/internal/audit"
	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
)

// MockResto stands in for the resto API client.
type MockResto struct {
	mu              sync.Mutex
	orderCalls      int
	ListItemsFunc   func(ctx context.Context) ([]checkout.MenuItem, error)
	CreateOrderFunc func(ctx context.Context, order checkout.Order) (checkout.Order, error)
	ListOrdersFunc  func(ctx context.Context) ([]checkout.Order, error)
}

func NewMockResto() *MockResto {
	return &MockResto{}
}

func (m *MockResto) ListItems(ctx context.Context) ([]checkout.MenuItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx)
	}
	return testMenu(), nil
}

func (m *MockResto) CreateOrder(ctx context.Context, order checkout.Order) (checkout.Order, error) {
	m.mu.Lock()
	m.orderCalls++
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	order.ID = "srv-1"
	order.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return order, nil
}

func (m *MockResto) ListOrders(ctx context.Context) ([]checkout.Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx)
	}
	return nil, nil
}

func (m *MockResto) OrderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderCalls
}

type MockAuditLister struct {
	ListBySessionFunc func(ctx context.Context, sessionID string) ([]audit.Entry, error)
}

func (m *MockAuditLister) ListBySession(ctx context.Context, sessionID string) ([]audit.Entry, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func testMenu() []checkout.MenuItem {
	return []checkout.MenuItem{
		{ID: "i-coffee", Name: "Coffee", Category: "Drinks", Price: decimal.NewFromInt(50), Available: true},
		{ID: "i-tea", Name: "Tea", Category: "Drinks", Price: decimal.NewFromInt(30), Available: true},
		{ID: "i-soup", Name: "Soup", Category: "Mains", Price: decimal.NewFromInt(120), Available: false},
	}
}
