// internal/app/system/authz/scopes.go
package authz

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
)

// ProfileScope returns the Mongo filter limiting profile queries to the
// records the requester may see. Superusers see everything, staff only
// their own profile. ok is false when the request carries no valid user.
func ProfileScope(r *http.Request) (bson.M, bool) {
	role, _, userID, ok := UserCtx(r)
	if !ok {
		return nil, false
	}
	if role == "superuser" {
		return bson.M{}, true
	}
	return bson.M{"user_id": userID}, true
}

// UserScope returns the Mongo filter limiting user queries to the records
// the requester may see.
func UserScope(r *http.Request) (bson.M, bool) {
	role, _, userID, ok := UserCtx(r)
	if !ok {
		return nil, false
	}
	if role == "superuser" {
		return bson.M{}, true
	}
	return bson.M{"_id": userID}, true
}

// ActivityScope returns the Mongo filter limiting activity log queries to
// the rows the requester may see. Staff only see their own rows.
func ActivityScope(r *http.Request) (bson.M, bool) {
	role, _, userID, ok := UserCtx(r)
	if !ok {
		return nil, false
	}
	if role == "superuser" {
		return bson.M{}, true
	}
	return bson.M{"user_id": userID}, true
}
