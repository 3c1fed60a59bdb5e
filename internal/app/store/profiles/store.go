// internal/app/store/profiles/store.go
package profiles

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/stratafolio/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateProfile is returned when attempting to create a second
// profile for the same user.
var ErrDuplicateProfile = errors.New("a profile for this user already exists")

// Store manages user profile records. Each user has at most one
// profile, enforced by a unique index on user_id.
type Store struct {
	c *mongo.Collection
}

// New creates a new profile Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// GetByID loads a profile by its ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID loads the profile owned by the given user.
// Returns mongo.ErrNoDocuments if the user has no profile.
func (s *Store) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserIDs loads the profiles for multiple users keyed by user ID.
// Users without profiles are simply absent from the result.
func (s *Store) GetByUserIDs(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Profile
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	byUser := make(map[primitive.ObjectID]models.Profile, len(list))
	for _, p := range list {
		byUser[p.UserID] = p
	}
	return byUser, nil
}

// Create inserts a new profile for the given user.
// Returns ErrDuplicateProfile if the user already has one.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.ID = primitive.NewObjectID()
	p.HomeAddress = strings.TrimSpace(p.HomeAddress)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)

	if p.Location != nil {
		if err := p.Location.Validate(); err != nil {
			return models.Profile{}, err
		}
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Profile{}, ErrDuplicateProfile
		}
		return models.Profile{}, err
	}
	return p, nil
}

// EnsureForUser creates an empty profile for the user if none exists.
// Concurrent calls are safe: the unique index makes the insert race
// resolve to a single profile.
func (s *Store) EnsureForUser(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	existing, err := s.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	created, err := s.Create(ctx, models.Profile{UserID: userID})
	if err == ErrDuplicateProfile {
		return s.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Touch bumps the profile's updated_at without changing any fields.
// Called when the owning user record changes.
func (s *Store) Touch(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"updated_at": time.Now()}})
	return err
}

// UpdateInput holds the optional fields for updating a profile.
// Nil means "don't update this field". SetLocation distinguishes
// "leave the location alone" from "set it to Location" (which may be
// nil to clear it).
type UpdateInput struct {
	HomeAddress *string
	PhoneNumber *string
	Location    *models.GeoPoint
	SetLocation bool
}

// UpdateByUserID applies the non-nil fields of input to the user's profile.
func (s *Store) UpdateByUserID(ctx context.Context, userID primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}
	unset := bson.M{}

	if input.HomeAddress != nil {
		set["home_address"] = strings.TrimSpace(*input.HomeAddress)
	}
	if input.PhoneNumber != nil {
		set["phone_number"] = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.SetLocation {
		if input.Location != nil {
			if err := input.Location.Validate(); err != nil {
				return err
			}
			set["location"] = input.Location
		} else {
			unset["location"] = ""
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByUserID deletes the user's profile.
// Returns the number of documents deleted (0 or 1).
func (s *Store) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Find returns profiles matching the given filter with optional find options.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Profile, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Profile
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Count returns the number of profiles matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// ListWithLocations returns the profiles that carry a location,
// optionally restricted to the given user IDs (nil means all users).
func (s *Store) ListWithLocations(ctx context.Context, userIDs []primitive.ObjectID) ([]models.Profile, error) {
	filter := bson.M{"location": bson.M{"$exists": true, "$ne": nil}}
	if userIDs != nil {
		filter["user_id"] = bson.M{"$in": userIDs}
	}
	return s.Find(ctx, filter)
}
