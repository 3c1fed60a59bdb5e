package userstore

import (
	"testing"

	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/stratafolio/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Username:  "testuser",
		Email:     "test@example.com",
		FirstName: "Test",
		LastName:  "User",
		Role:      "staff",
	}

	created, err := store.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Verify ID was assigned
	if created.ID.IsZero() {
		t.Error("Create() did not assign ID")
	}

	// Verify timestamps were set
	if created.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
	if created.UpdatedAt.IsZero() {
		t.Error("Create() did not set UpdatedAt")
	}

	// Verify status defaulted to active
	if created.Status != "active" {
		t.Errorf("Create() Status = %q, want %q", created.Status, "active")
	}

	// Verify normalization
	if created.UsernameCI == "" {
		t.Error("Create() did not set UsernameCI")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := models.User{
		Username: "badrole",
		Role:     "invalid_role",
	}

	_, err := store.Create(ctx, user)
	if err == nil {
		t.Error("Create() with invalid role should return error")
	}
}

func TestStore_Create_DuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user1 := models.User{
		Username: "duplicate",
		Role:     "staff",
	}

	_, err := store.Create(ctx, user1)
	if err != nil {
		t.Fatalf("Create() first user error = %v", err)
	}

	// Same username with different case should still collide
	user2 := models.User{
		Username: "DUPLICATE",
		Role:     "staff",
	}

	_, err = store.Create(ctx, user2)
	if err != ErrDuplicateUsername {
		t.Errorf("Create() duplicate error = %v, want %v", err, ErrDuplicateUsername)
	}
}

func TestStore_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:  "getbyid",
		FirstName: "Get",
		LastName:  "ById",
		Role:      "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("GetByID() ID = %v, want %v", found.ID, created.ID)
	}
	if found.Username != created.Username {
		t.Errorf("GetByID() Username = %q, want %q", found.Username, created.Username)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	nonExistentID := primitive.NewObjectID()
	_, err := store.GetByID(ctx, nonExistentID)
	if err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_GetByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "getbyname",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Exact case
	found, err := store.GetByUsername(ctx, "getbyname")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("GetByUsername() ID = %v, want %v", found.ID, created.ID)
	}

	// Different case - should still work due to folding
	found2, err := store.GetByUsername(ctx, "GETBYNAME")
	if err != nil {
		t.Fatalf("GetByUsername() case-insensitive error = %v", err)
	}
	if found2.ID != created.ID {
		t.Errorf("GetByUsername() case-insensitive ID = %v, want %v", found2.ID, created.ID)
	}

	// Non-existent
	_, err = store.GetByUsername(ctx, "nonexistent")
	if err != mongo.ErrNoDocuments {
		t.Errorf("GetByUsername() non-existent error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "deleteuser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Delete() count = %d, want 1", count)
	}

	_, err = store.GetByID(ctx, created.ID)
	if err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() after delete error = %v, want %v", err, mongo.ErrNoDocuments)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	count, err := store.Delete(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Delete() non-existent count = %d, want 0", count)
	}
}

func TestStore_CountActiveSuperusers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Initially should be 0
	count, err := store.CountActiveSuperusers(ctx)
	if err != nil {
		t.Fatalf("CountActiveSuperusers() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountActiveSuperusers() initial = %d, want 0", count)
	}

	// Staff should not be counted
	_, err = store.Create(ctx, models.User{
		Username: "staffmember",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = store.Create(ctx, models.User{
		Username: "rootuser",
		Role:     "superuser",
		Status:   "active",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err = store.CountActiveSuperusers(ctx)
	if err != nil {
		t.Fatalf("CountActiveSuperusers() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountActiveSuperusers() after create = %d, want 1", count)
	}
}

func TestStore_ExistsByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Should not exist initially
	exists, err := store.ExistsByUsername(ctx, "existsuser")
	if err != nil {
		t.Fatalf("ExistsByUsername() error = %v", err)
	}
	if exists {
		t.Error("ExistsByUsername() should return false for non-existent user")
	}

	_, err = store.Create(ctx, models.User{
		Username: "existsuser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	exists, err = store.ExistsByUsername(ctx, "existsuser")
	if err != nil {
		t.Fatalf("ExistsByUsername() error = %v", err)
	}
	if !exists {
		t.Error("ExistsByUsername() should return true for existing user")
	}
}

func TestStore_UsernameExistsForOther(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user1, err := store.Create(ctx, models.User{
		Username: "firstuser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Checking a user's own username should return false
	exists, err := store.UsernameExistsForOther(ctx, "firstuser", user1.ID)
	if err != nil {
		t.Fatalf("UsernameExistsForOther() error = %v", err)
	}
	if exists {
		t.Error("UsernameExistsForOther() should return false when checking same user")
	}

	user2, err := store.Create(ctx, models.User{
		Username: "seconduser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() second user error = %v", err)
	}

	// user1's username checked against user2 should return true
	exists, err = store.UsernameExistsForOther(ctx, "firstuser", user2.ID)
	if err != nil {
		t.Fatalf("UsernameExistsForOther() error = %v", err)
	}
	if !exists {
		t.Error("UsernameExistsForOther() should return true when another user has the username")
	}
}

func TestStore_UpdateFromInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:  "updateinput",
		FirstName: "Original",
		Role:      "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Update with partial input
	newFirst := "Updated"
	err = store.UpdateFromInput(ctx, created.ID, UpdateInput{
		FirstName: &newFirst,
	})
	if err != nil {
		t.Fatalf("UpdateFromInput() error = %v", err)
	}

	// Verify only FirstName changed
	updated, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if updated.FirstName != newFirst {
		t.Errorf("UpdateFromInput() FirstName = %q, want %q", updated.FirstName, newFirst)
	}
	if updated.Username != "updateinput" {
		t.Errorf("UpdateFromInput() changed Username unexpectedly")
	}
}

func TestStore_UpdateFromInput_AllFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "updateall",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newUsername := "renamed"
	newEmail := "renamed@example.com"
	newFirst := "New"
	newLast := "Name"
	newRole := "superuser"
	newStatus := "disabled"
	newHash := "new_password_hash"

	err = store.UpdateFromInput(ctx, created.ID, UpdateInput{
		Username:     &newUsername,
		Email:        &newEmail,
		FirstName:    &newFirst,
		LastName:     &newLast,
		Role:         &newRole,
		Status:       &newStatus,
		PasswordHash: &newHash,
	})
	if err != nil {
		t.Fatalf("UpdateFromInput() error = %v", err)
	}

	updated, _ := store.GetByID(ctx, created.ID)
	if updated.Username != newUsername {
		t.Errorf("UpdateFromInput() Username = %q, want %q", updated.Username, newUsername)
	}
	if updated.Email != newEmail {
		t.Errorf("UpdateFromInput() Email = %q, want %q", updated.Email, newEmail)
	}
	if updated.Role != newRole {
		t.Errorf("UpdateFromInput() Role = %q, want %q", updated.Role, newRole)
	}
	if updated.Status != newStatus {
		t.Errorf("UpdateFromInput() Status = %q, want %q", updated.Status, newStatus)
	}
	if updated.PasswordHash != newHash {
		t.Error("UpdateFromInput() did not set PasswordHash")
	}
}

func TestStore_UpdateFromInput_DuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store.Create(ctx, models.User{
		Username: "takenname",
		Role:     "staff",
	})

	user2, _ := store.Create(ctx, models.User{
		Username: "othername",
		Role:     "staff",
	})

	dup := "takenname"
	err := store.UpdateFromInput(ctx, user2.ID, UpdateInput{
		Username: &dup,
	})
	if err != ErrDuplicateUsername {
		t.Errorf("UpdateFromInput() duplicate error = %v, want %v", err, ErrDuplicateUsername)
	}
}

func TestStore_UpdateFromInput_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, models.User{
		Username: "rolecheck",
		Role:     "staff",
	})

	badRole := "wizard"
	err := store.UpdateFromInput(ctx, created.ID, UpdateInput{
		Role: &badRole,
	})
	if err == nil {
		t.Error("UpdateFromInput() with invalid role should return error")
	}
	if !IsValidationError(err) {
		t.Errorf("IsValidationError(%v) = false, want true", err)
	}
}

func TestStore_UpdatePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:     "passworduser",
		Role:         "staff",
		PasswordHash: "initial_hash",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newHash := "new_secure_hash"
	err = store.UpdatePassword(ctx, created.ID, newHash)
	if err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	updated, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.PasswordHash != newHash {
		t.Error("UpdatePassword() did not set new hash")
	}
}

func TestStore_ListAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Initially empty
	users, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListAll() initially = %d users, want 0", len(users))
	}

	_, err = store.Create(ctx, models.User{
		Username: "zebra",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() first user error = %v", err)
	}

	_, err = store.Create(ctx, models.User{
		Username: "apple",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() second user error = %v", err)
	}

	// List all - should be sorted by username
	users, err = store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListAll() = %d users, want 2", len(users))
	}
	if users[0].Username != "apple" {
		t.Errorf("ListAll() first user = %q, want %q (sorted)", users[0].Username, "apple")
	}
}

func TestStore_Find(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{
		Username: "activeuser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() first user error = %v", err)
	}

	created2, err := store.Create(ctx, models.User{
		Username: "disableduser",
		Role:     "staff",
	})
	if err != nil {
		t.Fatalf("Create() second user error = %v", err)
	}

	disabled := "disabled"
	if err := store.UpdateFromInput(ctx, created2.ID, UpdateInput{Status: &disabled}); err != nil {
		t.Fatalf("UpdateFromInput() error = %v", err)
	}

	// Find all
	users, err := store.Find(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Find() all error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Find() all = %d, want 2", len(users))
	}

	// Find active only
	activeUsers, err := store.Find(ctx, bson.M{"status": "active"})
	if err != nil {
		t.Fatalf("Find() active error = %v", err)
	}
	if len(activeUsers) != 1 {
		t.Errorf("Find() active = %d, want 1", len(activeUsers))
	}
}

func TestStore_Count(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	count, err := store.Count(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() initial = %d, want 0", count)
	}

	_, err = store.Create(ctx, models.User{Username: "countone", Role: "staff"})
	if err != nil {
		t.Fatalf("Create() first user error = %v", err)
	}
	_, err = store.Create(ctx, models.User{Username: "counttwo", Role: "staff"})
	if err != nil {
		t.Fatalf("Create() second user error = %v", err)
	}

	count, err = store.Count(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestStore_GetByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Empty IDs should return nil
	users, err := store.GetByIDs(ctx, []primitive.ObjectID{})
	if err != nil {
		t.Fatalf("GetByIDs() empty error = %v", err)
	}
	if users != nil {
		t.Error("GetByIDs() empty should return nil")
	}

	user1, _ := store.Create(ctx, models.User{Username: "idsone", Role: "staff"})
	user2, _ := store.Create(ctx, models.User{Username: "idstwo", Role: "staff"})
	store.Create(ctx, models.User{Username: "idsthree", Role: "staff"})

	users, err = store.GetByIDs(ctx, []primitive.ObjectID{user1.ID, user2.ID})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("GetByIDs() = %d users, want 2", len(users))
	}

	users, err = store.GetByIDs(ctx, []primitive.ObjectID{primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("GetByIDs() non-existent error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("GetByIDs() non-existent = %d users, want 0", len(users))
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	logger := zap.NewNop()
	fetcher := NewFetcher(db, logger)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username:  "fetchuser",
		FirstName: "Fetch",
		LastName:  "User",
		Role:      "superuser",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sessionUser := fetcher.FetchUser(ctx, created.ID.Hex())
	if sessionUser == nil {
		t.Fatal("FetchUser() returned nil for existing user")
	}

	if sessionUser.ID != created.ID.Hex() {
		t.Errorf("FetchUser() ID = %q, want %q", sessionUser.ID, created.ID.Hex())
	}
	if sessionUser.Name != "Fetch User" {
		t.Errorf("FetchUser() Name = %q, want %q", sessionUser.Name, "Fetch User")
	}
	if sessionUser.Username != "fetchuser" {
		t.Errorf("FetchUser() Username = %q, want %q", sessionUser.Username, "fetchuser")
	}
	if sessionUser.Role != "superuser" {
		t.Errorf("FetchUser() Role = %q, want %q", sessionUser.Role, "superuser")
	}
}

func TestFetcher_FetchUser_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	fetcher := NewFetcher(db, logger)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sessionUser := fetcher.FetchUser(ctx, "invalid-id")
	if sessionUser != nil {
		t.Error("FetchUser() invalid ID should return nil")
	}
}

func TestFetcher_FetchUser_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	fetcher := NewFetcher(db, logger)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sessionUser := fetcher.FetchUser(ctx, primitive.NewObjectID().Hex())
	if sessionUser != nil {
		t.Error("FetchUser() non-existent user should return nil")
	}
}

func TestFetcher_FetchUser_Disabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	logger := zap.NewNop()
	fetcher := NewFetcher(db, logger)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, models.User{
		Username: "disableduser",
		Role:     "staff",
	})

	// Disable the user directly in the database
	db.Collection("users").UpdateOne(ctx, bson.M{"_id": created.ID}, bson.M{
		"$set": bson.M{"status": "disabled"},
	})

	sessionUser := fetcher.FetchUser(ctx, created.ID.Hex())
	if sessionUser != nil {
		t.Error("FetchUser() disabled user should return nil")
	}
}
