// Package storetest holds the behaviour every plant store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// PlantStore is the method set under test. It matches store.PlantStore;
// backends import this package from their tests, so it cannot import store.
type PlantStore interface {
	List(ctx context.Context) ([]models.Plant, error)
	Get(ctx context.Context, id models.UUID) (models.Plant, error)
	Add(ctx context.Context, fields models.PlantFields) (models.Plant, error)
	Update(ctx context.Context, id models.UUID, fields models.PlantFields) (models.Plant, error)
	Delete(ctx context.Context, id models.UUID) error
	ReplaceAll(ctx context.Context, plants []models.Plant) error
}

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) PlantStore

func wateredAt(t time.Time) *time.Time { return &t }

// Fields returns valid fields for a plant called name.
func Fields(name string) models.PlantFields {
	return models.PlantFields{
		Name:              name,
		Species:           "Snake Plant",
		WateringFrequency: 7,
		Notes:             "Very low maintenance",
		LastWatered:       wateredAt(time.Date(2026, 10, 10, 8, 15, 30, 123456789, time.UTC)),
	}
}

// Run exercises the shared contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyList", func(t *testing.T) {
		s := newStore(t)
		plants, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, plants)
	})

	t.Run("AddAssignsID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.Add(ctx, Fields("Kevin"))
		require.NoError(t, err)
		b, err := s.Add(ctx, Fields("Jake"))
		require.NoError(t, err)

		_, err = models.ParseUUID(a.ID.String())
		assert.NoError(t, err, "ID should be a UUID v4")
		assert.NotEqual(t, a.ID, b.ID)
		assert.NotZero(t, a.CreatedAt)
		assert.Equal(t, "Kevin", a.Name)

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("AddDefaultsLastWatered", func(t *testing.T) {
		s := newStore(t)
		fields := Fields("Kevin")
		fields.LastWatered = nil

		before := time.Now().Add(-time.Second)
		p, err := s.Add(context.Background(), fields)
		require.NoError(t, err)
		assert.True(t, p.LastWatered.After(before), "LastWatered should default to now")
	})

	t.Run("ListKeepsInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		names := []string{"Kevin", "Jake", "Diefenbaker", "Aloe"}
		for _, n := range names {
			_, err := s.Add(ctx, Fields(n))
			require.NoError(t, err)
		}

		plants, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, plants, len(names))
		for i, p := range plants {
			assert.Equal(t, names[i], p.Name)
		}
	})

	t.Run("Update", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, err := s.Add(ctx, Fields("Kevin"))
		require.NoError(t, err)

		fields := Fields("Kevin II")
		fields.WateringFrequency = 3
		fields.LastWatered = nil
		updated, err := s.Update(ctx, p.ID, fields)
		require.NoError(t, err)

		assert.Equal(t, p.ID, updated.ID)
		assert.Equal(t, "Kevin II", updated.Name)
		assert.Equal(t, 3, updated.WateringFrequency)
		assert.True(t, updated.LastWatered.Equal(p.LastWatered), "nil LastWatered keeps stored value")

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("UpdatePhotoPassThrough", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		fields := Fields("Kevin")
		fields.Photo = []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
		fields.PhotoType = "image/jpeg"
		p, err := s.Add(ctx, fields)
		require.NoError(t, err)

		noPhoto := Fields("Kevin")
		noPhoto.Photo = nil
		updated, err := s.Update(ctx, p.ID, noPhoto)
		require.NoError(t, err)
		assert.Equal(t, fields.Photo, updated.Photo, "nil photo keeps stored blob")
		assert.Equal(t, "image/jpeg", updated.PhotoType)
	})

	t.Run("UpdateClearsPhoto", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		fields := Fields("Kevin")
		fields.Photo = []byte("\x89PNG\r\n\x1a\nrest")
		fields.PhotoType = "image/png"
		p, err := s.Add(ctx, fields)
		require.NoError(t, err)

		cleared := Fields("Kevin")
		cleared.ClearPhoto = true
		updated, err := s.Update(ctx, p.ID, cleared)
		require.NoError(t, err)
		assert.Nil(t, updated.Photo)
		assert.Empty(t, updated.PhotoType)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Photo)
		assert.Empty(t, got.PhotoType)
	})

	t.Run("DatesOutsideNanosecondRange", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		want := []models.Plant{
			{
				ID: models.NewUUID(), Name: "Kevin", Species: "Money Tree",
				LastWatered:       time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
				WateringFrequency: 14, CreatedAt: 1700000000, UpdatedAt: 1700000000,
			},
			{
				ID: models.NewUUID(), Name: "Jake", Species: "Snake Plant",
				LastWatered:       time.Date(1677, 12, 31, 23, 59, 59, 999999999, time.UTC),
				WateringFrequency: 7, CreatedAt: 1700000000, UpdatedAt: 1700000000,
			},
			{
				ID: models.NewUUID(), Name: "Diefenbaker", Species: "Dieffenbachia",
				LastWatered:       time.Date(2300, 6, 15, 12, 0, 0, 1, time.UTC),
				WateringFrequency: 7, CreatedAt: 1700000000, UpdatedAt: 1700000000,
			},
		}
		require.NoError(t, s.ReplaceAll(ctx, want))

		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.True(t, want[i].LastWatered.Equal(got[i].LastWatered),
				"%s: stored %v, loaded %v", want[i].Name, want[i].LastWatered, got[i].LastWatered)
		}

		old := Fields("Aloe")
		watered := time.Date(1650, 3, 1, 0, 0, 0, 0, time.UTC)
		old.LastWatered = &watered
		p, err := s.Add(ctx, old)
		require.NoError(t, err)
		loaded, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, loaded.LastWatered.Equal(watered), "loaded %v", loaded.LastWatered)
	})

	t.Run("ReplaceAllRejectsDuplicateIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		kept, err := s.Add(ctx, Fields("Kevin"))
		require.NoError(t, err)

		dup := models.NewUUID()
		err = s.ReplaceAll(ctx, []models.Plant{
			{ID: dup, Name: "a", Species: "b", WateringFrequency: 1, CreatedAt: 1, UpdatedAt: 1},
			{ID: dup, Name: "c", Species: "d", WateringFrequency: 1, CreatedAt: 1, UpdatedAt: 1},
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalid), "got %v", err)

		plants, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, plants, 1)
		assert.Equal(t, kept.ID, plants[0].ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		missing := models.NewUUID()

		_, err := s.Get(ctx, missing)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "Get: %v", err)

		_, err = s.Update(ctx, missing, Fields("x"))
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "Update: %v", err)

		err = s.Delete(ctx, missing)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "Delete: %v", err)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a, err := s.Add(ctx, Fields("Kevin"))
		require.NoError(t, err)
		b, err := s.Add(ctx, Fields("Jake"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, a.ID))

		plants, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, plants, 1)
		assert.Equal(t, b.ID, plants[0].ID)

		err = s.Delete(ctx, a.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("ReplaceAllRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Add(ctx, Fields("to be replaced"))
		require.NoError(t, err)

		want := []models.Plant{
			{
				ID: models.NewUUID(), Name: "Kevin", Species: "Money Tree",
				LastWatered:       time.Date(2026, 9, 30, 21, 4, 5, 987654321, time.UTC),
				WateringFrequency: 14, Notes: "Likes direct light",
				CreatedAt: 1700000000, UpdatedAt: 1700000500,
			},
			{
				ID: models.NewUUID(), Name: "Jake", Species: "Snake Plant",
				LastWatered:       time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
				WateringFrequency: 0, Notes: "",
				Photo: []byte("\x89PNG\r\n\x1a\nrest"), PhotoType: "image/png",
				CreatedAt: 1700000100, UpdatedAt: 1700000100,
			},
			{
				ID: models.NewUUID(), Name: "Diefenbaker", Species: "Dieffenbachia",
				WateringFrequency: 7, Notes: "Water when soil is dry\nand ünïcödé",
				CreatedAt: 1700000200, UpdatedAt: 1700000200,
			},
		}

		require.NoError(t, s.ReplaceAll(ctx, want))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("ReplaceAllEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Add(ctx, Fields("Kevin"))
		require.NoError(t, err)

		require.NoError(t, s.ReplaceAll(ctx, nil))

		plants, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, plants)
	})
}
