package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the checkout state of a Session.
type Phase string

const (
	PhaseComposing  Phase = "composing"
	PhaseSubmitting Phase = "submitting"
	PhasePlaced     Phase = "placed"
)

// Session is one cashier's checkout: a cart, a builder and the last placed
// order. All access goes through its methods, which serialize on mu. The
// network call in PlaceOrder runs without the lock so the cashier can keep
// editing; those edits are not part of the in-flight snapshot.
type Session struct {
	ID        uuid.UUID
	Cashier   string
	CreatedAt time.Time

	mu        sync.Mutex
	phase     Phase
	cart      *Cart
	builder   *Builder
	submitter *Submitter
	lastOrder *Order
	lastError error

	// submitKey is the idempotency key of the current snapshot. Edits drop
	// it unless the last attempt ended with an unknown outcome, in which
	// case the server may already hold the order under that key.
	submitKey string
	keyPinned bool
}

func NewSession(cashier string, resolver ItemResolver, submitter *Submitter) *Session {
	return &Session{
		ID:        uuid.New(),
		Cashier:   cashier,
		CreatedAt: time.Now(),
		phase:     PhaseComposing,
		cart:      NewCart(),
		builder:   NewBuilder(resolver),
		submitter: submitter,
	}
}

// Edit runs fn with exclusive access to the cart and builder.
func (s *Session) Edit(fn func(cart *Cart, builder *Builder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.keyPinned {
		s.submitKey = ""
	}
	return fn(s.cart, s.builder)
}

// PlaceOrder snapshots the builder and submits it. Validation failures never
// reach the network. A remote failure returns the session to composing with
// the cart and builder untouched, edits made meanwhile included; success
// resets the builder, clears the cart and keeps the persisted order for the
// receipt. Edits made while the submission was pending are discarded by
// that reset.
//
// Every attempt on an unchanged snapshot carries the same idempotency key.
// After ErrOutcomeUnknown the key is kept until the order is placed or
// NewOrder is called.
func (s *Session) PlaceOrder(ctx context.Context, orderType OrderType, paymentMethod string) (Order, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseSubmitting:
		s.mu.Unlock()
		return Order{}, ErrSubmissionInFlight
	case PhasePlaced:
		s.mu.Unlock()
		return Order{}, ErrOrderPlaced
	}

	payload, err := s.builder.Snapshot(orderType, s.Cashier, paymentMethod)
	if err != nil {
		s.lastError = err
		s.mu.Unlock()
		return Order{}, err
	}
	if s.submitKey == "" {
		s.submitKey = uuid.NewString()
	}
	payload.IdempotencyKey = s.submitKey
	s.phase = PhaseSubmitting
	s.lastError = nil
	s.mu.Unlock()

	placed, err := s.submit(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseComposing
		s.lastError = err
		if errors.Is(err, ErrOutcomeUnknown) {
			s.submitKey = payload.IdempotencyKey
			s.keyPinned = true
		}
		return Order{}, err
	}

	s.submitKey = ""
	s.keyPinned = false
	s.lastOrder = &placed
	s.builder.Reset()
	s.cart.Clear()
	s.phase = PhasePlaced
	return placed, nil
}

func (s *Session) submit(ctx context.Context, payload Order) (Order, error) {
	if s.submitter == nil {
		return Order{}, NewRemoteError(ErrNetwork, 0, "submitter not configured", nil)
	}
	return s.submitter.Submit(ctx, s.ID.String(), payload)
}

// NewOrder leaves the placed state and starts composing from a clean builder.
func (s *Session) NewOrder() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSubmitting {
		return ErrSubmissionInFlight
	}
	s.phase = PhaseComposing
	s.lastOrder = nil
	s.lastError = nil
	s.submitKey = ""
	s.keyPinned = false
	s.builder.Reset()
	return nil
}

// LastOrder returns the order placed in this session, if any.
func (s *Session) LastOrder() (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastOrder == nil {
		return Order{}, ErrNoReceipt
	}
	return s.lastOrder.clone(), nil
}

// View is a consistent read of the session for presentation.
type View struct {
	ID         string              `json:"id"`
	Cashier    string              `json:"cashier"`
	Phase      Phase               `json:"phase"`
	Cart       []CartLine          `json:"cart"`
	CartTotal  string              `json:"cart_total"`
	Lines      []OrderLine         `json:"lines"`
	Payments   []AdditionalPayment `json:"payments"`
	Totals     Totals              `json:"totals"`
	Validation ValidationErrors    `json:"validation"`
	LastError  string              `json:"last_error,omitempty"`
	OrderID    string              `json:"order_id,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.ID.String(),
		Cashier:    s.Cashier,
		Phase:      s.phase,
		Cart:       s.cart.Lines(),
		CartTotal:  s.cart.Total().StringFixed(2),
		Lines:      s.builder.Lines(),
		Payments:   s.builder.Payments(),
		Totals:     s.builder.Totals(),
		Validation: s.builder.Validate(),
	}
	if s.lastError != nil {
		v.LastError = s.lastError.Error()
	}
	if s.lastOrder != nil {
		v.OrderID = s.lastOrder.ID
	}
	return v
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
