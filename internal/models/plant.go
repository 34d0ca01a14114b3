// Package models provides data model definitions for PlantCare Core.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// NewUUID generates a fresh UUID v4.
func NewUUID() UUID {
	return UUID(uuid.New().String())
}

// ParseUUID validates s as a UUID v4.
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	if id.Version() != 4 {
		return "", fmt.Errorf("expected UUID v4, got v%d", id.Version())
	}
	return UUID(id.String()), nil
}

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Plant represents one tracked houseplant.
type Plant struct {
	ID                UUID      `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Species           string    `db:"species" json:"species"`
	LastWatered       time.Time `db:"last_watered" json:"lastWatered"`
	WateringFrequency int       `db:"watering_frequency" json:"wateringFrequency"`
	Notes             string    `db:"notes" json:"notes"`
	Photo             []byte    `db:"photo" json:"photo,omitempty"`
	PhotoType         string    `db:"photo_type" json:"photoType,omitempty"`
	CreatedAt         int64     `db:"created_at" json:"createdAt,omitempty"`
	UpdatedAt         int64     `db:"updated_at" json:"updatedAt,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (p *Plant) Touch() {
	p.UpdatedAt = time.Now().Unix()
}

// PlantFields is the mutable part of a Plant, used to add and update records.
//
// On update a nil LastWatered or nil Photo leaves the stored value alone.
// ClearPhoto drops the stored photo; a non-nil Photo still replaces it.
// On add a nil LastWatered means the plant was watered at creation time.
type PlantFields struct {
	Name              string
	Species           string
	WateringFrequency int
	Notes             string
	LastWatered       *time.Time
	Photo             []byte
	PhotoType         string
	ClearPhoto        bool
}

// NewPlant builds a record with a fresh ID from fields. now stamps the
// creation time and stands in for a missing LastWatered.
func NewPlant(fields PlantFields, now time.Time) Plant {
	p := Plant{
		ID:        NewUUID(),
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
	}
	p.LastWatered = now.UTC()
	p.Apply(fields)
	return p
}

// Apply copies fields onto p. The ID never changes.
func (p *Plant) Apply(fields PlantFields) {
	p.Name = fields.Name
	p.Species = fields.Species
	p.WateringFrequency = fields.WateringFrequency
	p.Notes = fields.Notes
	if fields.LastWatered != nil {
		p.LastWatered = fields.LastWatered.UTC()
	}
	if fields.ClearPhoto {
		p.Photo = nil
		p.PhotoType = ""
	}
	if fields.Photo != nil {
		p.Photo = fields.Photo
		p.PhotoType = fields.PhotoType
	}
}

// Fields returns the mutable part of p.
func (p Plant) Fields() PlantFields {
	lastWatered := p.LastWatered
	return PlantFields{
		Name:              p.Name,
		Species:           p.Species,
		WateringFrequency: p.WateringFrequency,
		Notes:             p.Notes,
		LastWatered:       &lastWatered,
		Photo:             p.Photo,
		PhotoType:         p.PhotoType,
	}
}

// DuplicateID reports the first ID that occurs more than once in plants.
func DuplicateID(plants []Plant) (UUID, bool) {
	seen := make(map[UUID]struct{}, len(plants))
	for _, p := range plants {
		if _, ok := seen[p.ID]; ok {
			return p.ID, true
		}
		seen[p.ID] = struct{}{}
	}
	return "", false
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (p Plant) Clone() Plant {
	if p.Photo != nil {
		p.Photo = append([]byte(nil), p.Photo...)
	}
	return p
}
