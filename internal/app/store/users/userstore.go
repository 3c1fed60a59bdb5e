// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/stratafolio/internal/app/system/normalize"
	"github.com/dalemusser/stratafolio/internal/app/system/status"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads multiple users by their ObjectIDs.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByUsername looks up a user by case/diacritic-insensitive username.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	folded := text.Fold(username)
	if err := s.c.FindOne(ctx, bson.M{"username_ci": folded}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	// ErrDuplicateUsername is returned when attempting to create a user with a username that already exists.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	errBadRole           = errors.New("invalid role")
	errBadStatus         = errors.New(`status must be "active"|"disabled"`)
)

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)

	if u.Email != "" {
		u.Email = normalize.Email(u.Email)
	}

	if u.Status == "" {
		u.Status = status.Active
	}

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, err
	}
	return u, nil
}

// Delete deletes a user by ID.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UsernameExistsForOther checks if a username already exists for a user other than the given ID.
func (s *Store) UsernameExistsForOther(ctx context.Context, username string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"username_ci": text.Fold(username),
		"_id":         bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// CountActiveSuperusers returns the number of users with role=superuser and status=active.
func (s *Store) CountActiveSuperusers(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"role":   models.RoleSuperuser,
		"status": status.Active,
	})
}

// Find returns users matching the given filter with optional find options.
// The caller is responsible for building the filter and options (pagination, sorting, projection).
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of users matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// UpdatePassword updates a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	set := bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// ExistsByUsername checks if a user with the given username exists.
func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{
		"username_ci": text.Fold(username),
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAll returns all users sorted by username.
func (s *Store) ListAll(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.M{"username_ci": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateInput holds the optional fields for updating a user.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	Username     *string
	Email        *string
	FirstName    *string
	LastName     *string
	Role         *string
	Status       *string
	PasswordHash *string
}

// UpdateFromInput updates a user using optional fields.
// Only non-nil fields in input are updated.
// Returns ErrDuplicateUsername if the username already exists for another user.
func (s *Store) UpdateFromInput(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{
		"updated_at": time.Now(),
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		set["username"] = username
		set["username_ci"] = text.Fold(username)
	}
	if input.Email != nil {
		set["email"] = normalize.Email(*input.Email)
	}
	if input.FirstName != nil {
		set["first_name"] = normalize.Name(*input.FirstName)
	}
	if input.LastName != nil {
		set["last_name"] = normalize.Name(*input.LastName)
	}
	if input.Role != nil {
		if !models.IsValidRole(*input.Role) {
			return errBadRole
		}
		set["role"] = *input.Role
	}
	if input.Status != nil {
		if !status.IsValid(*input.Status) {
			return errBadStatus
		}
		set["status"] = *input.Status
	}
	if input.PasswordHash != nil {
		set["password_hash"] = *input.PasswordHash
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// IsValidationError reports whether err came from role/status validation,
// so callers can map it to a user-facing message instead of a 500.
func IsValidationError(err error) bool {
	return errors.Is(err, errBadRole) || errors.Is(err, errBadStatus)
}
