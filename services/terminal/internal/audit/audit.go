package audit

import (
	"context"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
)

// Entry is one audited checkout action.
type Entry struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	Cashier    string    `json:"cashier" bson:"cashier"`
	Action     string    `json:"action" bson:"action"`
	OrderID    string    `json:"order_id,omitempty" bson:"order_id,omitempty"`
	OrderType  string    `json:"order_type,omitempty" bson:"order_type,omitempty"`
	Total      string    `json:"total,omitempty" bson:"total,omitempty"`
	Outcome    string    `json:"outcome" bson:"outcome"`
	Success    bool      `json:"success" bson:"success"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMS int64     `json:"duration_ms" bson:"duration_ms"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

const ActionSubmitOrder = "submit-order"

// Store persists entries. The Mongo implementation lives in internal/mongo.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
}

// Logger writes every checkout submission to the service log and, when a
// store is configured, to the audit collection.
type Logger struct {
	store  Store
	logger aqm.Logger
	now    func() time.Time
}

func NewLogger(store Store, logger aqm.Logger) *Logger {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Logger{store: store, logger: logger, now: time.Now}
}

// Log records entry. Store failures are logged and otherwise ignored.
func (a *Logger) Log(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = a.now()
	}

	a.logger.Info("audit",
		"session_id", entry.SessionID,
		"cashier", entry.Cashier,
		"action", entry.Action,
		"order_id", entry.OrderID,
		"outcome", entry.Outcome,
		"success", entry.Success,
		"timestamp", entry.Timestamp.Format(time.RFC3339),
		"error", entry.Error,
	)

	if a.store == nil {
		return
	}
	if err := a.store.Insert(ctx, entry); err != nil {
		a.logger.Error("cannot store audit entry", "action", entry.Action, "error", err)
	}
}

// RecordSubmission audits one call to the order endpoint.
func (a *Logger) RecordSubmission(ctx context.Context, attempt checkout.SubmissionAttempt) {
	a.Log(ctx, Entry{
		SessionID:  attempt.SessionID,
		Cashier:    attempt.Order.CreatedBy,
		Action:     ActionSubmitOrder,
		OrderID:    attempt.Order.ID,
		OrderType:  string(attempt.Order.OrderType),
		Total:      attempt.Order.Total.StringFixed(2),
		Outcome:    attempt.Outcome,
		Success:    attempt.Error == "",
		Error:      attempt.Error,
		DurationMS: attempt.Duration.Milliseconds(),
	})
}
