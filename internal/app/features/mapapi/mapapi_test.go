package mapapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/stratafolio/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, db *mongo.Database) *Handler {
	t.Helper()
	return NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())
}

func seedUser(t *testing.T, db *mongo.Database, username, role string, loc *models.GeoPoint) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, err := userstore.New(db).Create(ctx, models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  username,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := profiles.New(db).Create(ctx, models.Profile{
		UserID:      user.ID,
		HomeAddress: "1 First St",
		Location:    loc,
	}); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return user
}

func asUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.FullName(), Username: u.Username, Role: u.Role}
}

func getLocations(h *Handler, target string, user *testutil.TestUser) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		req = testutil.WithUser(req, *user)
	}
	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, req)
	return rec
}

func decodeCollection(t *testing.T, rec *httptest.ResponseRecorder) FeatureCollection {
	t.Helper()
	var fc FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode collection: %v (%s)", err, rec.Body.String())
	}
	return fc
}

func TestLocations_Anonymous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	rec := getLocations(h, "/locations", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestLocations_SuperuserSeesAllMapped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	super := seedUser(t, db, "boss", models.RoleSuperuser, models.NewGeoPoint(38.9, -92.3))
	seedUser(t, db, "alice", models.RoleStaff, models.NewGeoPoint(40.7, -74.0))
	seedUser(t, db, "carol", models.RoleStaff, nil)

	u := asUser(super)
	rec := getLocations(h, "/locations", &u)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	fc := decodeCollection(t, rec)
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2 (unmapped profile omitted)", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.Type != "Feature" || f.Geometry == nil {
			t.Errorf("malformed feature: %+v", f)
		}
		if f.Properties.Username == "" || f.Properties.UserID == "" {
			t.Errorf("missing properties: %+v", f.Properties)
		}
	}
}

func TestLocations_StaffScopedToSelf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	staff := seedUser(t, db, "alice", models.RoleStaff, models.NewGeoPoint(40.7, -74.0))
	other := seedUser(t, db, "carol", models.RoleStaff, models.NewGeoPoint(34.0, -118.2))

	u := asUser(staff)
	rec := getLocations(h, "/locations", &u)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	fc := decodeCollection(t, rec)
	if len(fc.Features) != 1 || fc.Features[0].Properties.Username != "alice" {
		t.Fatalf("features = %+v", fc.Features)
	}

	t.Run("out of scope user_id falls back to own set", func(t *testing.T) {
		rec := getLocations(h, "/locations?user_id="+other.ID.Hex(), &u)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		fc := decodeCollection(t, rec)
		if len(fc.Features) != 1 || fc.Features[0].Properties.Username != "alice" {
			t.Errorf("features = %+v", fc.Features)
		}
	})
}

func TestLocations_UserIDFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	super := seedUser(t, db, "boss", models.RoleSuperuser, models.NewGeoPoint(38.9, -92.3))
	staff := seedUser(t, db, "alice", models.RoleStaff, models.NewGeoPoint(40.7, -74.0))

	u := asUser(super)

	t.Run("narrows to one user", func(t *testing.T) {
		rec := getLocations(h, "/locations?user_id="+staff.ID.Hex(), &u)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		fc := decodeCollection(t, rec)
		if len(fc.Features) != 1 || fc.Features[0].Properties.Username != "alice" {
			t.Errorf("features = %+v", fc.Features)
		}
	})

	t.Run("malformed id falls back to scoped set", func(t *testing.T) {
		rec := getLocations(h, "/locations?user_id=garbage", &u)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		fc := decodeCollection(t, rec)
		if len(fc.Features) != 2 {
			t.Errorf("features = %d, want 2", len(fc.Features))
		}
	})
}

func TestLocations_GeometryOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	super := seedUser(t, db, "boss", models.RoleSuperuser, models.NewGeoPoint(34.0522, -118.2437))

	u := asUser(super)
	rec := getLocations(h, "/locations", &u)
	fc := decodeCollection(t, rec)
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	geom := fc.Features[0].Geometry
	if geom.Lng() != -118.2437 || geom.Lat() != 34.0522 {
		t.Errorf("coordinates = [%v, %v], want [lng, lat] order", geom.Lng(), geom.Lat())
	}
}
