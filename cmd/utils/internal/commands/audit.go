package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

type outcomeStat struct {
	Outcome string    `bson:"_id"`
	Count   int64     `bson:"count"`
	Last    time.Time `bson:"last"`
}

// AuditStats prints how many submissions ended in each outcome.
func AuditStats(ctx context.Context, config *aqm.Config, logger aqm.Logger, out io.Writer) error {
	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$outcome",
			"count": bson.M{"$sum": 1},
			"last":  bson.M{"$max": "$timestamp"},
		}},
		bson.M{"$sort": bson.M{"count": -1}},
	}
	cursor, err := db.Collection(auditCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []outcomeStat
	if err := cursor.All(ctx, &stats); err != nil {
		return fmt.Errorf("decode audit stats: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTCOME\tCOUNT\tLAST")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Outcome, s.Count, s.Last.Format(time.RFC3339))
	}
	return tw.Flush()
}

// PurgeAudit deletes entries older than audit.retention.
func PurgeAudit(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	retention, err := time.ParseDuration(config.GetStringOrDef("audit.retention", "720h"))
	if err != nil {
		return fmt.Errorf("invalid audit.retention: %w", err)
	}
	if retention <= 0 {
		return fmt.Errorf("audit.retention must be positive")
	}

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	cutoff := time.Now().Add(-retention)
	result, err := db.Collection(auditCollection).DeleteMany(ctx, bson.M{
		"timestamp": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return fmt.Errorf("delete audit entries: %w", err)
	}

	logger.Info("Audit entries purged", "deleted", result.DeletedCount, "before", cutoff.Format(time.RFC3339))
	return nil
}
