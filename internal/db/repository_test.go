// Package db provides unit tests for plant repository operations.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store/storetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRepository_contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.PlantStore {
		return setupTestStore(t)
	})
}

// TestRepository_lastWateredNullable verifies a zero timestamp is stored as NULL.
func TestRepository_lastWateredNullable(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := models.NewUUID()
	require.NoError(t, s.ReplaceAll(ctx, []models.Plant{{
		ID: id, Name: "Kevin", Species: "Money Tree", WateringFrequency: 14,
		CreatedAt: 1, UpdatedAt: 1,
	}}))

	var isNull bool
	err := s.db.QueryRow("SELECT last_watered IS NULL FROM plants WHERE id = ?", id).Scan(&isNull)
	require.NoError(t, err)
	assert.True(t, isNull)

	p, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.LastWatered.IsZero())
}

// TestRepository_lastWateredColumns verifies dates before 1678 are stored as
// seconds plus nanoseconds and read back unchanged.
func TestRepository_lastWateredColumns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	watered := time.Date(1600, 1, 1, 0, 0, 0, 250, time.UTC)
	id := models.NewUUID()
	require.NoError(t, s.ReplaceAll(ctx, []models.Plant{{
		ID: id, Name: "Kevin", Species: "Money Tree", WateringFrequency: 14,
		LastWatered: watered, CreatedAt: 1, UpdatedAt: 1,
	}}))

	var seconds, nanos int64
	err := s.db.QueryRow("SELECT last_watered, last_watered_nanos FROM plants WHERE id = ?", id).Scan(&seconds, &nanos)
	require.NoError(t, err)
	assert.Equal(t, watered.Unix(), seconds)
	assert.Equal(t, int64(250), nanos)

	p, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.LastWatered.Equal(watered), "loaded %v", p.LastWatered)
}

// TestRepository_schemaRejectsNegativeFrequency verifies the CHECK constraint.
func TestRepository_schemaRejectsNegativeFrequency(t *testing.T) {
	s := setupTestStore(t)

	fields := storetest.Fields("Kevin")
	fields.WateringFrequency = -1
	_, err := s.Add(context.Background(), fields)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreIO), "got %v", err)
}

// TestRepository_replaceAllIsAtomic verifies a failed bulk save keeps old data.
func TestRepository_replaceAllIsAtomic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	kept, err := s.Add(ctx, storetest.Fields("Kevin"))
	require.NoError(t, err)

	// The second row violates the frequency CHECK after the first is inserted.
	err = s.ReplaceAll(ctx, []models.Plant{
		{ID: models.NewUUID(), Name: "a", Species: "b", WateringFrequency: 1, CreatedAt: 1, UpdatedAt: 1},
		{ID: models.NewUUID(), Name: "c", Species: "d", WateringFrequency: -1, CreatedAt: 1, UpdatedAt: 1},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreIO))

	plants, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, kept.ID, plants[0].ID)
}

// TestRepository_updateTouches verifies UpdatedAt moves and CreatedAt stays.
func TestRepository_updateTouches(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := models.NewUUID()
	require.NoError(t, s.ReplaceAll(ctx, []models.Plant{{
		ID: id, Name: "Jake", Species: "Snake Plant", WateringFrequency: 7,
		LastWatered: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt:   1000, UpdatedAt: 1000,
	}}))

	updated, err := s.Update(ctx, id, storetest.Fields("Jake"))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, int64(1000))
}

// TestRepository_closedDatabase verifies I/O failures map to STORE_IO_FAILURE.
func TestRepository_closedDatabase(t *testing.T) {
	s, err := OpenMemoryStore()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.List(context.Background())
	assert.Equal(t, apperrors.ErrStoreIO, apperrors.CodeOf(err))
}

// TestOpenStore_persists verifies records survive reopening the data directory.
func TestOpenStore_persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenStore(dir)
	require.NoError(t, err)
	p, err := s.Add(ctx, storetest.Fields("Diefenbaker"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
