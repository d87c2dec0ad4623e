package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petropulse-loyalty-ledger/internal/domain/loyalty"
)

const (
	// LedgerCollectionName is the name of the loyalty ledger collection in MongoDB
	LedgerCollectionName = "loyalty_ledger_entries"
)

// TxRunner runs fn inside a MongoDB transaction. The ctx handed to fn carries the session.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerRepository implements the loyalty.Repository interface for MongoDB
type LedgerRepository struct {
	collection *mongo.Collection
	tx         TxRunner
	logger     *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		collection: db.Collection(LedgerCollectionName),
		logger:     logger,
	}
}

var _ loyalty.Repository = (*LedgerRepository)(nil)

// UseTransactions makes PersistLedger write each ledger inside a transaction
func (r *LedgerRepository) UseTransactions(runner TxRunner) {
	r.tx = runner
}

// EnsureIndexes creates the ledger-order index and the uniqueness indexes.
// A customer's sequence numbers are unique, so concurrent writers of the same
// position collide instead of both landing.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "date", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetName("customer_ledger_order"),
		},
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetName("customer_sequence_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetName("entry_id_unique").SetUnique(true),
		},
	}

	names, err := r.collection.Indexes().CreateMany(ctx, models)
	if err != nil {
		r.logger.Error("Failed to create ledger indexes", "error", err)
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	r.logger.Info("Ledger indexes ensured", "indexes", names)
	return nil
}

// PersistLedger writes a customer's whole ledger in one ordered bulk insert.
// Returns ErrLedgerExists if the customer already has entries. A failed write
// leaves no entries behind: it is rolled back when transactions are enabled,
// and otherwise the inserted prefix is removed.
func (r *LedgerRepository) PersistLedger(ctx context.Context, customerID uuid.UUID, entries []loyalty.Entry) error {
	for i := range entries {
		if entries[i].CustomerID != customerID {
			return fmt.Errorf("entry %s belongs to customer %s, not %s", entries[i].ID, entries[i].CustomerID, customerID)
		}
	}

	if r.tx != nil {
		return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
			return r.insertLedger(ctx, customerID, entries, false)
		})
	}
	return r.insertLedger(ctx, customerID, entries, true)
}

func (r *LedgerRepository) insertLedger(ctx context.Context, customerID uuid.UUID, entries []loyalty.Entry, compensate bool) error {
	existing, err := r.CountByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if existing > 0 {
		return loyalty.ErrLedgerExists{CustomerID: customerID}
	}

	if len(entries) == 0 {
		return nil
	}

	documents := make([]interface{}, len(entries))
	for i := range entries {
		documents[i] = entries[i]
	}

	_, err = r.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	// Every ledger starts at sequence 0, so a racing writer stops on its
	// first document and has nothing to undo.
	if mongo.IsDuplicateKeyError(err) {
		r.logger.Info("Ledger written concurrently", "customer_id", customerID.String())
		return loyalty.ErrLedgerExists{CustomerID: customerID}
	}

	r.logger.Error("Failed to persist ledger",
		"customer_id", customerID.String(),
		"entries", len(entries),
		"error", err)

	if compensate {
		if derr := r.discardEntries(ctx, entries); derr != nil {
			return fmt.Errorf("failed to persist ledger: %w; removing partial ledger: %w", err, derr)
		}
	}
	return fmt.Errorf("failed to persist ledger: %w", err)
}

// discardEntries deletes whatever part of entries an interrupted bulk insert stored
func (r *LedgerRepository) discardEntries(ctx context.Context, entries []loyalty.Entry) error {
	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}

	result, err := r.collection.DeleteMany(context.WithoutCancel(ctx), bson.M{"entry_id": bson.M{"$in": ids}})
	if err != nil {
		r.logger.Error("Failed to remove partial ledger",
			"customer_id", entries[0].CustomerID.String(),
			"error", err)
		return err
	}

	r.logger.Warn("Removed partial ledger",
		"customer_id", entries[0].CustomerID.String(),
		"removed", result.DeletedCount)
	return nil
}

// Append adds a single entry to a customer's ledger. Losing a race for the
// entry's sequence yields ErrLedgerChanged.
func (r *LedgerRepository) Append(ctx context.Context, entry *loyalty.Entry) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: sequence %d for customer %s: %w", loyalty.ErrLedgerChanged, entry.Sequence, entry.CustomerID, err)
		}
		r.logger.Error("Failed to append ledger entry",
			"customer_id", entry.CustomerID.String(),
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByCustomerID returns the customer's entries sorted by date, then sequence
func (r *LedgerRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]loyalty.Entry, error) {
	filter := bson.M{"customer_id": customerID}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "sequence", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []loyalty.Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// CountByCustomerID counts the ledger entries stored for a customer
func (r *LedgerRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		r.logger.Error("Failed to count ledger entries",
			"customer_id", customerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}
