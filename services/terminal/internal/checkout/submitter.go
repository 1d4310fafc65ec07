package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/pos/pkg/event"
)

// OrderGateway creates orders on the resto API. CreateOrder must return a
// *RemoteError (matching ErrAuth, ErrNetwork, ErrServer or ErrOutcomeUnknown)
// on failure. It sends order.IdempotencyKey when set.
type OrderGateway interface {
	CreateOrder(ctx context.Context, order Order) (Order, error)
}

// Auditor records the outcome of each submission attempt.
type Auditor interface {
	RecordSubmission(ctx context.Context, attempt SubmissionAttempt)
}

// SubmissionAttempt is what the Submitter reports to its Auditor.
type SubmissionAttempt struct {
	SessionID string
	Order     Order
	Outcome   string
	Error     string
	Duration  time.Duration
}

// SubmitObserver receives submission outcomes for metrics.
type SubmitObserver interface {
	ObserveSubmission(outcome string, elapsed time.Duration)
}

type SubmitterDeps struct {
	Gateway   OrderGateway
	Publisher events.Publisher
	Auditor   Auditor
	Observer  SubmitObserver
}

// Submitter sends snapshots to the resto API. It holds no per-order state;
// the in-flight guard belongs to the caller (see Session).
type Submitter struct {
	gateway   OrderGateway
	publisher events.Publisher
	auditor   Auditor
	observer  SubmitObserver
	logger    aqm.Logger
	now       func() time.Time
}

func NewSubmitter(deps SubmitterDeps, logger aqm.Logger) *Submitter {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Submitter{
		gateway:   deps.Gateway,
		publisher: deps.Publisher,
		auditor:   deps.Auditor,
		observer:  deps.Observer,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit calls the order endpoint once. On success the server-assigned id
// and timestamp are merged into order; every other field keeps the value
// that was submitted.
func (s *Submitter) Submit(ctx context.Context, sessionID string, order Order) (Order, error) {
	if s.gateway == nil {
		return Order{}, NewRemoteError(ErrNetwork, 0, "order gateway not configured", nil)
	}

	payload := order.clone()
	start := s.now()
	persisted, err := s.gateway.CreateOrder(ctx, payload)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.report(ctx, sessionID, payload, err, elapsed)
		s.logger.Error("order submission failed",
			"session_id", sessionID,
			"kind", ErrorKind(err),
			"retryable", Retryable(err),
			"error", err,
		)
		return Order{}, err
	}

	placed := mergePersisted(payload, persisted, s.now())
	s.report(ctx, sessionID, placed, nil, elapsed)
	s.publishPlaced(ctx, sessionID, placed)
	s.logger.Info("order placed",
		"session_id", sessionID,
		"order_id", placed.ID,
		"total", placed.Total.StringFixed(2),
	)
	return placed, nil
}

// mergePersisted takes only the identity from the server. A response the
// client could not read still yields a placed order, stamped with now.
func mergePersisted(submitted, persisted Order, now time.Time) Order {
	placed := submitted.clone()
	placed.ID = persisted.ID
	placed.CreatedAt = persisted.CreatedAt
	if placed.CreatedAt.IsZero() {
		placed.CreatedAt = now
	}
	return placed
}

func (s *Submitter) report(ctx context.Context, sessionID string, order Order, err error, elapsed time.Duration) {
	outcome := ErrorKind(err)
	if s.observer != nil {
		s.observer.ObserveSubmission(outcome, elapsed)
	}
	if s.auditor == nil {
		return
	}
	attempt := SubmissionAttempt{
		SessionID: sessionID,
		Order:     order,
		Outcome:   outcome,
		Duration:  elapsed,
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	s.auditor.RecordSubmission(ctx, attempt)
}

func (s *Submitter) publishPlaced(ctx context.Context, sessionID string, order Order) {
	if s.publisher == nil {
		return
	}

	evt := event.OrderPlacedEvent{
		EventType:       event.EventOrderPlaced,
		OccurredAt:      s.now().UTC(),
		OrderID:         order.ID,
		SessionID:       sessionID,
		OrderType:       string(order.OrderType),
		CreatedBy:       order.CreatedBy,
		PaymentMethod:   order.PaymentMethod,
		Subtotal:        order.Subtotal.String(),
		AdditionalTotal: order.AdditionalTotal.String(),
		Total:           order.Total.String(),
	}
	for _, l := range order.Lines {
		evt.Items = append(evt.Items, event.OrderPlacedItem{
			MenuItemID: l.ItemID,
			Name:       l.Name,
			Category:   l.Category,
			Quantity:   l.Quantity,
			UnitPrice:  l.Price.String(),
		})
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("cannot encode order placed event", "order_id", order.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, event.OrdersPlacedTopic, msg); err != nil {
		s.logger.Error("cannot publish order placed event", "order_id", order.ID, "error", err)
	}
}
