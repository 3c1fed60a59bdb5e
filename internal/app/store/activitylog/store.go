// internal/app/store/activitylog/store.go
package activitylog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"context"
	"time"

	"github.com/dalemusser/stratafolio/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueryFilter defines filters for querying activity entries.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	Username  string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages the append-only account activity log.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity log Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_log")}
}

// EnsureIndexes creates indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Query by user
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activity_user"),
		},
		// Query by action
		{
			Keys:    bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activity_action"),
		},
		// Time-based queries
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activity_created"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an activity entry. Entries are never updated or deleted
// by the application.
func (s *Store) Log(ctx context.Context, entry models.ActivityEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}

	if filter.UserID != nil {
		query["user_id"] = filter.UserID
	}
	if filter.Username != "" {
		query["username"] = filter.Username
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}

	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["created_at"] = timeQuery
	}

	return query
}

// Query retrieves activity entries matching the given filter,
// newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]models.ActivityEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.ActivityEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByFilter returns the count of entries matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// GetByUser retrieves recent activity entries for a specific user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.ActivityEntry, error) {
	return s.Query(ctx, QueryFilter{
		UserID: &userID,
		Limit:  limit,
	})
}

// GetRecent retrieves the most recent activity entries.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]models.ActivityEntry, error) {
	return s.Query(ctx, QueryFilter{
		Limit: limit,
	})
}

// GetFailedLogins retrieves recent failed login attempts.
func (s *Store) GetFailedLogins(ctx context.Context, since time.Time, limit int64) ([]models.ActivityEntry, error) {
	return s.Query(ctx, QueryFilter{
		Action:    models.ActionFailedLogin,
		StartTime: &since,
		Limit:     limit,
	})
}
