// Package validation gates user input before it reaches a plant store.
package validation

import (
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// Field names reported with validation errors.
const (
	FieldName              = "name"
	FieldSpecies           = "species"
	FieldWateringFrequency = "wateringFrequency"
)

// Form is the raw text a user submits from the detail screen.
type Form struct {
	Name              string     `json:"name"`
	Species           string     `json:"species"`
	WateringFrequency string     `json:"wateringFrequency"`
	Notes             string     `json:"notes"`
	LastWatered       *time.Time `json:"lastWatered,omitempty"`
	Photo             []byte     `json:"photo,omitempty"`
	// RemovePhoto drops the stored photo on edit unless Photo replaces it.
	RemovePhoto       bool       `json:"removePhoto,omitempty"`
}

// FormFromPlant pre-fills a form for editing an existing plant.
func FormFromPlant(p models.Plant) Form {
	return Form{
		Name:              p.Name,
		Species:           p.Species,
		WateringFrequency: strconv.Itoa(p.WateringFrequency),
		Notes:             p.Notes,
	}
}

// Validate checks form and returns the fields to store. Checks run in form
// order and the first failure wins; nothing is returned alongside an error.
func Validate(form Form) (models.PlantFields, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return models.PlantFields{}, apperrors.NewField(apperrors.ErrEmptyField, FieldName,
			"Please enter a plant name.")
	}

	species := strings.TrimSpace(form.Species)
	if species == "" {
		return models.PlantFields{}, apperrors.NewField(apperrors.ErrEmptyField, FieldSpecies,
			"Please enter a species name.")
	}

	frequency, err := ParseFrequency(form.WateringFrequency)
	if err != nil {
		return models.PlantFields{}, err
	}

	fields := models.PlantFields{
		Name:              name,
		Species:           species,
		WateringFrequency: frequency,
		Notes:             form.Notes,
		LastWatered:       form.LastWatered,
		ClearPhoto:        form.RemovePhoto,
	}
	if len(form.Photo) > 0 {
		fields.Photo = form.Photo
		fields.PhotoType = PhotoType(form.Photo)
	}
	return fields, nil
}

// ParseFrequency reads a watering frequency in days from user text.
func ParseFrequency(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, apperrors.NewField(apperrors.ErrInvalidNumber, FieldWateringFrequency,
			"Please enter a valid watering frequency (whole number of days).")
	}
	if n < 0 {
		return 0, apperrors.NewField(apperrors.ErrNegativeValue, FieldWateringFrequency,
			"Watering frequency cannot be negative.")
	}
	return n, nil
}

// PhotoType sniffs the MIME type of a photo blob. The blob itself is stored
// untouched.
func PhotoType(photo []byte) string {
	return mimetype.Detect(photo).String()
}
