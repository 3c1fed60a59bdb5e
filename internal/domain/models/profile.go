// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile holds per-user contact and location details. Every user has
// exactly one profile; it is created automatically when the user is
// created and its UserID never changes afterwards.
type Profile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	HomeAddress string             `bson:"home_address,omitempty" json:"home_address,omitempty"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Location    *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasLocation reports whether the profile carries a usable point.
func (p *Profile) HasLocation() bool {
	return p.Location != nil && len(p.Location.Coordinates) == 2
}
