// internal/app/features/profileapi/serializer.go
package profileapi

import (
	"time"

	"github.com/dalemusser/stratafolio/internal/domain/models"
)

// ProfileRecord is the JSON shape of a profile. Username and email come
// from the linked user record and are read only.
type ProfileRecord struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	HomeAddress string           `json:"home_address"`
	PhoneNumber string           `json:"phone_number"`
	Location    *models.GeoPoint `json:"location"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewProfileRecord flattens a profile and its linked user into the
// JSON record.
func NewProfileRecord(p models.Profile, u *models.User) ProfileRecord {
	rec := ProfileRecord{
		ID:          p.ID.Hex(),
		HomeAddress: p.HomeAddress,
		PhoneNumber: p.PhoneNumber,
		Location:    p.Location,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if u != nil {
		rec.Username = u.Username
		rec.Email = u.Email
	}
	return rec
}

// ProfileInput is the writable subset of a profile. All fields are
// optional so the same shape serves PATCH and POST. The location can
// arrive either as a structured GeoJSON point or as separate latitude
// and longitude numbers.
type ProfileInput struct {
	UserID      string           `json:"user_id,omitempty"` // create only
	HomeAddress *string          `json:"home_address"`
	PhoneNumber *string          `json:"phone_number"`
	Location    *models.GeoPoint `json:"location"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
}

// ResolveLocation applies the both-or-neither policy to the input's
// location fields. A structured point wins when present. Otherwise both
// numeric fields set the point, both absent clears it, and exactly one
// is treated as absent (no change). The returned set flag reports
// whether the stored location should change at all.
func (in ProfileInput) ResolveLocation() (point *models.GeoPoint, set bool, err error) {
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return nil, false, err
		}
		return in.Location, true, nil
	}
	if in.Latitude != nil && in.Longitude != nil {
		p := models.NewGeoPoint(*in.Latitude, *in.Longitude)
		if err := p.Validate(); err != nil {
			return nil, false, err
		}
		return p, true, nil
	}
	if in.Latitude == nil && in.Longitude == nil {
		return nil, true, nil
	}
	return nil, false, nil
}
