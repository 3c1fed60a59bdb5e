package seeding

import (
	"testing"

	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/authutil"
	"github.com/dalemusser/stratafolio/internal/app/system/status"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/stratafolio/internal/testutil"
	"go.uber.org/zap"
)

func TestSeedAll_CreatesSuperuser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := Config{AdminUsername: "admin", AdminPassword: "S33dPassw0rd!", AdminEmail: "admin@example.com"}
	if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}

	u, err := userstore.New(db).GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if u.Role != models.RoleSuperuser {
		t.Errorf("Role = %q, want %q", u.Role, models.RoleSuperuser)
	}
	if u.Status != status.Active {
		t.Errorf("Status = %q, want %q", u.Status, status.Active)
	}
	if !authutil.CheckPassword("S33dPassw0rd!", u.PasswordHash) {
		t.Error("seeded password hash does not verify")
	}
}

func TestSeedAll_CreatesProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := Config{AdminUsername: "admin", AdminPassword: "S33dPassw0rd!", AdminEmail: "admin@example.com"}
	if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}

	u, err := userstore.New(db).GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	p, err := profiles.New(db).GetByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v, seeded superuser should have a profile", err)
	}
	if p.UserID != u.ID {
		t.Errorf("profile UserID = %v, want %v", p.UserID, u.ID)
	}
}

func TestSeedAll_SkipsWhenSuperuserExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, err := authutil.HashPassword("ExistingPass1!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if _, err := userstore.New(db).Create(ctx, models.User{
		Username:     "boss",
		PasswordHash: hash,
		Role:         models.RoleSuperuser,
		Status:       status.Active,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cfg := Config{AdminUsername: "admin", AdminPassword: "S33dPassw0rd!", AdminEmail: "admin@example.com"}
	if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}

	exists, err := userstore.New(db).ExistsByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("ExistsByUsername() error = %v", err)
	}
	if exists {
		t.Error("SeedAll() created a second superuser")
	}
}

func TestSeedAll_SkipsWithoutCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := SeedAll(ctx, db, Config{}, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}

	count, err := userstore.New(db).CountActiveSuperusers(ctx)
	if err != nil {
		t.Fatalf("CountActiveSuperusers() error = %v", err)
	}
	if count != 0 {
		t.Errorf("superuser count = %d, want 0", count)
	}
}

func TestSeedAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := Config{AdminUsername: "admin", AdminPassword: "S33dPassw0rd!", AdminEmail: "admin@example.com"}
	for i := 0; i < 2; i++ {
		if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
			t.Fatalf("SeedAll() run %d error = %v", i+1, err)
		}
	}

	count, err := userstore.New(db).CountActiveSuperusers(ctx)
	if err != nil {
		t.Fatalf("CountActiveSuperusers() error = %v", err)
	}
	if count != 1 {
		t.Errorf("superuser count after two runs = %d, want 1", count)
	}
}
