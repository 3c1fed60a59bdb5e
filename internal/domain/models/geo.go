// internal/domain/models/geo.go
package models

import (
	"encoding/json"
	"fmt"
)

// GeoPoint is a single geographic location stored as a GeoJSON Point.
// Coordinates are ordered longitude, latitude per RFC 7946, both in
// BSON (2dsphere-compatible) and in JSON.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"` // always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a Point from a latitude/longitude pair.
func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lat returns the latitude (second coordinate).
func (p *GeoPoint) Lat() float64 {
	if p == nil || len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Lng returns the longitude (first coordinate).
func (p *GeoPoint) Lng() float64 {
	if p == nil || len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Validate checks the point is a well-formed GeoJSON Point with
// coordinates inside the WGS 84 ranges.
func (p *GeoPoint) Validate() error {
	if p.Type != "Point" {
		return fmt.Errorf("geo point type must be \"Point\", got %q", p.Type)
	}
	if len(p.Coordinates) != 2 {
		return fmt.Errorf("geo point must have exactly 2 coordinates, got %d", len(p.Coordinates))
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	return nil
}

// UnmarshalJSON decodes a GeoJSON Point and rejects malformed input
// so bad coordinates never reach storage.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	type alias GeoPoint
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = GeoPoint(a)
	return p.Validate()
}
