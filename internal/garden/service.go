// Package garden is the application service behind every plant screen.
package garden

import (
	"context"
	"time"

	"golang.org/x/text/language"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store"
	"github.com/kimhsiao/plantcare/backend/internal/validation"
	"github.com/kimhsiao/plantcare/backend/internal/watering"
)

// Options configures a Service. Zero values are usable.
type Options struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Language selects watering labels. Defaults to English.
	Language language.Tag
	// Logger defaults to logging.Get().
	Logger *logging.Logger
}

// Service reads and changes the plant collection. It keeps no copy of the
// collection; every call goes to the store.
type Service struct {
	store store.PlantStore
	now   func() time.Time
	lang  language.Tag
	log   *logging.Logger
}

// NewService creates a Service on s.
func NewService(s store.PlantStore, opts Options) *Service {
	svc := &Service{
		store: s,
		now:   opts.Clock,
		lang:  opts.Language,
		log:   opts.Logger,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.lang == language.Und {
		svc.lang = language.English
	}
	if svc.log == nil {
		svc.log = logging.Get()
	}
	svc.log = svc.log.With("garden")
	if _, _, confidence := language.NewMatcher(watering.Languages()).Match(svc.lang); confidence == language.No {
		svc.log.Warn("No watering labels for language, falling back to English", map[string]interface{}{
			"language": svc.lang.String(),
		})
	}
	return svc
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Language returns the label language.
func (s *Service) Language() language.Tag {
	return s.lang
}

// SamplePlants returns the starter collection, all watered at now.
func SamplePlants(now time.Time) []models.Plant {
	samples := []models.PlantFields{
		{Name: "Kevin", Species: "Money Tree", WateringFrequency: 14, Notes: "Likes direct light"},
		{Name: "Jake", Species: "Snake Plant", WateringFrequency: 7, Notes: "Very low maintenance"},
		{Name: "Diefenbaker", Species: "Dieffenbachia", WateringFrequency: 7, Notes: "Water when soil is dry"},
	}
	plants := make([]models.Plant, len(samples))
	for i, f := range samples {
		plants[i] = models.NewPlant(f, now)
	}
	return plants
}

// Seed stores the sample plants when the store is empty and reports whether
// it did.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	plants, err := s.store.List(ctx)
	if err != nil {
		return false, err
	}
	if len(plants) > 0 {
		return false, nil
	}
	samples := SamplePlants(s.now())
	if err := s.store.ReplaceAll(ctx, samples); err != nil {
		return false, err
	}
	s.log.Info("Seeded sample plants", map[string]interface{}{"count": len(samples)})
	return true, nil
}

// Plants returns the stored collection in store order. When the store
// cannot be read the sample plants are returned, unsaved, together with
// the STORE_IO_FAILURE error so callers can keep going.
func (s *Service) Plants(ctx context.Context) ([]models.Plant, error) {
	plants, err := s.store.List(ctx)
	if err == nil {
		return plants, nil
	}
	if apperrors.Is(err, apperrors.ErrStoreIO) {
		s.log.Warn("Plant store unreadable, showing sample plants", map[string]interface{}{
			"error": err.Error(),
		})
		return SamplePlants(s.now()), err
	}
	return nil, err
}

// Get returns one plant.
func (s *Service) Get(ctx context.Context, id models.UUID) (models.Plant, error) {
	return s.store.Get(ctx, id)
}

// Rows evaluates every plant in store order for the list view.
func (s *Service) Rows(ctx context.Context) ([]watering.Entry, error) {
	plants, err := s.Plants(ctx)
	if plants == nil {
		return nil, err
	}
	return watering.Rows(plants, s.now(), s.lang), err
}

// Schedule returns every plant ordered most urgent first.
func (s *Service) Schedule(ctx context.Context) ([]watering.Entry, error) {
	plants, err := s.Plants(ctx)
	if plants == nil {
		return nil, err
	}
	return watering.Schedule(plants, s.now(), s.lang), err
}

// Create validates form and stores a new plant. Without a LastWatered the
// plant counts as watered now.
func (s *Service) Create(ctx context.Context, form validation.Form) (models.Plant, error) {
	fields, err := validation.Validate(form)
	if err != nil {
		return models.Plant{}, err
	}
	if fields.LastWatered == nil {
		now := s.now()
		fields.LastWatered = &now
	}

	p, err := s.store.Add(ctx, fields)
	if err != nil {
		s.log.Error("Failed to add plant", err, map[string]interface{}{"name": fields.Name})
		return models.Plant{}, err
	}
	s.log.Info("Plant added", map[string]interface{}{"id": p.ID.String(), "name": p.Name})
	return p, nil
}

// Edit validates form and applies it to plant id. The ID never changes.
func (s *Service) Edit(ctx context.Context, id models.UUID, form validation.Form) (models.Plant, error) {
	fields, err := validation.Validate(form)
	if err != nil {
		return models.Plant{}, err
	}

	p, err := s.store.Update(ctx, id, fields)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			s.log.Error("Failed to update plant", err, map[string]interface{}{"id": id.String()})
		}
		return models.Plant{}, err
	}
	s.log.Info("Plant updated", map[string]interface{}{"id": id.String()})
	return p, nil
}

// MarkWatered records that plant id was watered now.
func (s *Service) MarkWatered(ctx context.Context, id models.UUID) (models.Plant, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Plant{}, err
	}

	fields := p.Fields()
	now := s.now()
	fields.LastWatered = &now

	p, err = s.store.Update(ctx, id, fields)
	if err != nil {
		return models.Plant{}, err
	}
	s.log.Info("Plant watered", map[string]interface{}{"id": id.String()})
	return p, nil
}

// Delete removes plant id. Deleting an unknown plant is not an error.
func (s *Service) Delete(ctx context.Context, id models.UUID) error {
	err := s.store.Delete(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("Delete of unknown plant ignored", map[string]interface{}{"id": id.String()})
		return nil
	}
	if err != nil {
		s.log.Error("Failed to delete plant", err, map[string]interface{}{"id": id.String()})
		return err
	}
	s.log.Info("Plant deleted", map[string]interface{}{"id": id.String()})
	return nil
}
