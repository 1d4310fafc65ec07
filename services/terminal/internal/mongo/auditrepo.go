package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/pos/services/terminal/internal/audit"
)

const auditCollection = "checkout_audit"

var errNotConnected = errors.New("audit store not connected")

// AuditRepo stores checkout audit entries. It resolves the collection lazily
// because the connection is only opened when the service starts.
type AuditRepo struct {
	base *BaseRepo
}

func NewAuditRepo(base *BaseRepo) *AuditRepo {
	return &AuditRepo{base: base}
}

func (r *AuditRepo) collection() (*mongo.Collection, error) {
	if r.base == nil || r.base.GetDatabase() == nil {
		return nil, errNotConnected
	}
	return r.base.GetDatabase().Collection(auditCollection), nil
}

func (r *AuditRepo) Insert(ctx context.Context, entry audit.Entry) error {
	coll, err := r.collection()
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("cannot insert audit entry: %w", err)
	}
	return nil
}

// ListBySession returns the entries of one terminal session, newest first.
func (r *AuditRepo) ListBySession(ctx context.Context, sessionID string) ([]audit.Entry, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := coll.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var result []audit.Entry
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode audit entries: %w", err)
	}
	return result, nil
}
