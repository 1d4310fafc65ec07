package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm/events"
	"github.com/shopspring/decimal"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
	Published   []PublishedMessage
}

type PublishedMessage struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.Published = append(m.Published, PublishedMessage{Topic: topic, Data: msg})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

// MockSubscriber is a mock implementation of events.Subscriber for testing
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// MockGateway counts calls so tests can assert that nothing reached the network.
type MockGateway struct {
	mu              sync.Mutex
	calls           int
	CreateOrderFunc func(ctx context.Context, order Order) (Order, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) CreateOrder(ctx context.Context, order Order) (Order, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	persisted := order
	persisted.ID = "order-1"
	persisted.CreatedAt = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return persisted, nil
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCatalogSource is a mock implementation of CatalogSource for testing
type MockCatalogSource struct {
	ListItemsFunc func(ctx context.Context) ([]MenuItem, error)
}

func (m *MockCatalogSource) ListItems(ctx context.Context) ([]MenuItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx)
	}
	return testMenu(), nil
}

type MockAuditor struct {
	mu       sync.Mutex
	Attempts []SubmissionAttempt
}

func (m *MockAuditor) RecordSubmission(ctx context.Context, attempt SubmissionAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, attempt)
}

type MockObserver struct {
	Outcomes []string
}

func (m *MockObserver) ObserveSubmission(outcome string, elapsed time.Duration) {
	m.Outcomes = append(m.Outcomes, outcome)
}

type MockCatalogObserver struct {
	mu     sync.Mutex
	Loads  []int
	Errors []error
}

func (m *MockCatalogObserver) ObserveCatalogLoad(items int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads = append(m.Loads, items)
	m.Errors = append(m.Errors, err)
}

type MockOrderLister struct {
	ListOrdersFunc func(ctx context.Context) ([]Order, error)
}

func (m *MockOrderLister) ListOrders(ctx context.Context) ([]Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx)
	}
	return nil, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testMenu() []MenuItem {
	return []MenuItem{
		{ID: "i-coffee", Name: "Coffee", Category: "Drinks", Price: dec("50"), Available: true},
		{ID: "i-tea", Name: "Tea", Category: "Drinks", Price: dec("30"), Available: true},
		{ID: "i-cake", Name: "Cheesecake", Category: "Desserts", Price: dec("75.50"), Available: true},
		{ID: "i-soup", Name: "Soup of the day", Category: "Mains", Price: dec("120"), Available: false},
	}
}

// newTestCatalog returns a catalog already holding testMenu.
func newTestCatalog() *Catalog {
	c := NewCatalog(&MockCatalogSource{}, nil)
	c.Replace(testMenu())
	return c
}

func itemNamed(name string) MenuItem {
	for _, it := range testMenu() {
		if it.Name == name {
			return it
		}
	}
	return MenuItem{}
}
