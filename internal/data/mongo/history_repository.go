package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spacepoints-ledger/internal/domain/history"
)

const (
	// HistoryCollectionName is the name of the history collection in MongoDB
	HistoryCollectionName = "point_history"
)

// HistoryRepository implements the history.Repository interface for MongoDB.
// The collection is append-only: entries are inserted exactly once and
// never updated or removed.
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository and
// ensures the unique index backing entry deduplication exists.
func NewHistoryRepository(ctx context.Context, logger *slog.Logger, db *mongo.Database) (history.Repository, error) {
	r := &HistoryRepository{
		db:     db,
		logger: logger,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ensureIndexes creates the collection indexes. The unique index on
// entry_id is what makes Create a safe target for outbox republishes;
// the user/space index backs the per-user history reads.
func (r *HistoryRepository) ensureIndexes(ctx context.Context) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "space_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "reference_id", Value: 1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create history collection indexes", "error", err)
		return fmt.Errorf("failed to create history collection indexes: %w", err)
	}
	return nil
}

// Create stores a new history entry. Returns ErrDuplicateEntry if an
// entry with the same ID already exists; the unique index enforces this
// even for concurrent republishes, so the outbox poller can retry safely.
func (r *HistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return history.ErrDuplicateEntry{ID: entry.ID}
		}
		r.logger.Error("Failed to create history entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	return nil
}

// GetByID retrieves a history entry by its ID.
// Returns ErrEntryNotFound if no entry exists.
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"entry_id": id}
	var entry history.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, history.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get history entry",
			"entry_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	return &entry, nil
}

// GetByReferenceID retrieves all entries sharing a reference ID, so both
// legs of a transfer come back as one logical event
func (r *HistoryRepository) GetByReferenceID(ctx context.Context, referenceID uuid.UUID) ([]*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"reference_id": referenceID}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries by reference",
			"reference_id", referenceID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get history entries by reference: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*history.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries",
			"reference_id", referenceID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}

// GetByUser retrieves paginated history entries for a user within a space.
// Results are sorted by creation time in descending order (newest first).
func (r *HistoryRepository) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"user_id": userID, "space_id": spaceID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries",
			"user_id", userID.String(),
			"space_id", spaceID,
			"error", err)
		return nil, fmt.Errorf("failed to get history entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*history.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries",
			"user_id", userID.String(),
			"space_id", spaceID,
			"error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}

// CountByUser counts the total number of entries for a user within a space
func (r *HistoryRepository) CountByUser(ctx context.Context, userID uuid.UUID, spaceID int64) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"user_id": userID, "space_id": spaceID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count history entries",
			"user_id", userID.String(),
			"space_id", spaceID,
			"error", err)
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated history entries within the specified
// time window. Results are sorted newest first.
func (r *HistoryRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*history.Entry, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get history entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*history.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}
