package models

import (
	"encoding/json"
	"time"
)

// Station status values. The stations table carries a CHECK constraint
// restricting the column to exactly these two strings.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// ValidStatus reports whether s is one of the allowed station statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}

// Location is the geographic position of a station. Both coordinates are
// required together; a station never has only one of them.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Station represents a charging station record. Coordinates are stored as flat
// columns but serialized as a nested location object, which is the shape the
// frontend consumes.
type Station struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Latitude      float64   `db:"latitude" json:"-"`
	Longitude     float64   `db:"longitude" json:"-"`
	Status        string    `db:"status" json:"status"`
	PowerOutput   float64   `db:"power_output" json:"powerOutput"`
	ConnectorType string    `db:"connector_type" json:"connectorType"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// MarshalJSON nests the flat coordinate columns under a "location" key.
func (s Station) MarshalJSON() ([]byte, error) {
	type alias Station
	return json.Marshal(struct {
		alias
		Location Location `json:"location"`
	}{
		alias:    alias(s),
		Location: Location{Latitude: s.Latitude, Longitude: s.Longitude},
	})
}
