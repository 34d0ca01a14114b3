// Package store defines the plant persistence contract and opens the
// configured backend.
package store

import (
	"context"
	"fmt"

	"github.com/kimhsiao/plantcare/backend/internal/config"
	"github.com/kimhsiao/plantcare/backend/internal/db"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store/jsonfile"
	"github.com/kimhsiao/plantcare/backend/internal/store/redisstore"
)

// PlantStore persists the plant collection.
//
// List returns plants in insertion order. Get, Update and Delete report
// NOT_FOUND for unknown ids. Any read or write failure is STORE_IO_FAILURE.
type PlantStore interface {
	List(ctx context.Context) ([]models.Plant, error)
	Get(ctx context.Context, id models.UUID) (models.Plant, error)
	Add(ctx context.Context, fields models.PlantFields) (models.Plant, error)
	Update(ctx context.Context, id models.UUID, fields models.PlantFields) (models.Plant, error)
	Delete(ctx context.Context, id models.UUID) error
	// ReplaceAll swaps the whole collection, keeping ids and order.
	ReplaceAll(ctx context.Context, plants []models.Plant) error
	Close() error
}

var (
	_ PlantStore = (*db.Store)(nil)
	_ PlantStore = (*jsonfile.Store)(nil)
	_ PlantStore = (*redisstore.Store)(nil)
)

// Open returns the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg config.Config) (PlantStore, error) {
	var (
		s   PlantStore
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err = db.OpenStore(cfg.DataDir)
	case config.BackendJSON:
		s, err = jsonfile.Open(cfg.DataDir)
	case config.BackendRedis:
		r := cfg.Store.Redis
		s, err = redisstore.Dial(ctx, r.Addr, r.DB, r.Prefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
