package audit

import (
	"context"
	"fmt"
	"time"

	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// document is the BSON shape of one intake attempt.
type document struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	Outcome       string    `bson:"outcome"`
	Amount        string    `bson:"amount"`
	Currency      string    `bson:"currency"`
	ReceivedAt    time.Time `bson:"received_at"`
}

// MongoAuditLog records every intake attempt, including duplicates, in a
// Mongo collection. It is best-effort: the gateway logs and ignores failures.
type MongoAuditLog struct {
	collection *mongo.Collection
}

func NewMongoAuditLog(client *mongo.Client, dbName string) *MongoAuditLog {
	collection := client.Database(dbName).Collection("intake_audit")
	return &MongoAuditLog{collection: collection}
}

func (m *MongoAuditLog) Record(ctx context.Context, entry interfaces.AuditEntry) error {
	doc := document{
		ID:            entry.ID,
		TransactionID: entry.TransactionID,
		Outcome:       entry.Outcome,
		Amount:        entry.Amount,
		Currency:      entry.Currency,
		ReceivedAt:    entry.ReceivedAt,
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

var _ interfaces.AuditLog = (*MongoAuditLog)(nil)
