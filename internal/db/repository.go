package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// last_watered holds unix seconds and last_watered_nanos the remainder, so
// every date a time.Time can hold survives the round trip.
const plantColumns = `id, name, species, last_watered, last_watered_nanos, watering_frequency, notes,
	photo, photo_type, created_at, updated_at`

// Repository provides plant CRUD on a migrated SQLite database.
type Repository struct {
	db *sql.DB

	// Prepared statements are created on first use and reused.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	// Another goroutine may have won the race; keep theirs.
	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlant(row rowScanner) (models.Plant, error) {
	var p models.Plant
	var lastWatered, lastWateredNanos sql.NullInt64
	var photoType sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Species, &lastWatered, &lastWateredNanos, &p.WateringFrequency, &p.Notes,
		&p.Photo, &photoType, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Plant{}, err
	}
	if lastWatered.Valid {
		p.LastWatered = time.Unix(lastWatered.Int64, lastWateredNanos.Int64).UTC()
	}
	if photoType.Valid {
		p.PhotoType = photoType.String
	}
	if len(p.Photo) == 0 {
		p.Photo = nil
	}
	return p, nil
}

// plantArgs returns the column values of p in plantColumns order.
func plantArgs(p models.Plant) []interface{} {
	var lastWatered sql.NullInt64
	var lastWateredNanos int64
	if !p.LastWatered.IsZero() {
		lastWatered = sql.NullInt64{Int64: p.LastWatered.Unix(), Valid: true}
		lastWateredNanos = int64(p.LastWatered.Nanosecond())
	}
	var photo interface{}
	if len(p.Photo) > 0 {
		photo = p.Photo
	}
	var photoType sql.NullString
	if p.PhotoType != "" {
		photoType = sql.NullString{String: p.PhotoType, Valid: true}
	}
	return []interface{}{p.ID, p.Name, p.Species, lastWatered, lastWateredNanos, p.WateringFrequency, p.Notes,
		photo, photoType, p.CreatedAt, p.UpdatedAt}
}

const insertPlant = `INSERT INTO plants (` + plantColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// List returns every plant in insertion order.
func (r *Repository) List(ctx context.Context) ([]models.Plant, error) {
	stmt, err := r.PrepareStmt(ctx, `SELECT `+plantColumns+` FROM plants ORDER BY rowid`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to list plants", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to list plants", err)
	}
	defer rows.Close()

	plants := []models.Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to read plant row", err)
		}
		plants = append(plants, p)
	}
	// Check for errors that occurred during iteration
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to list plants", err)
	}
	return plants, nil
}

// Get retrieves a plant by ID.
func (r *Repository) Get(ctx context.Context, id models.UUID) (models.Plant, error) {
	stmt, err := r.PrepareStmt(ctx, `SELECT `+plantColumns+` FROM plants WHERE id = ?`)
	if err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to get plant", err)
	}

	p, err := scanPlant(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plant{}, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("plant %s not found", id))
	}
	if err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to get plant", err)
	}
	return p, nil
}

// Add creates a plant with a fresh ID.
func (r *Repository) Add(ctx context.Context, fields models.PlantFields) (models.Plant, error) {
	p := models.NewPlant(fields, time.Now())
	if _, err := r.db.ExecContext(ctx, insertPlant, plantArgs(p)...); err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to add plant", err)
	}
	return p, nil
}

// Update applies fields to an existing plant.
func (r *Repository) Update(ctx context.Context, id models.UUID, fields models.PlantFields) (models.Plant, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to begin update", err)
	}
	defer tx.Rollback()

	p, err := scanPlant(tx.QueryRowContext(ctx, `SELECT `+plantColumns+` FROM plants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plant{}, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("plant %s not found", id))
	}
	if err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to load plant for update", err)
	}

	p.Apply(fields)
	p.Touch()

	query := `
	UPDATE plants
	SET name = ?, species = ?, last_watered = ?, last_watered_nanos = ?, watering_frequency = ?, notes = ?,
		photo = ?, photo_type = ?, created_at = ?, updated_at = ?
	WHERE id = ?
	`
	args := append(plantArgs(p)[1:], p.ID)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to update plant", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Plant{}, apperrors.Wrap(apperrors.ErrStoreIO, "failed to commit update", err)
	}
	return p, nil
}

// Delete removes a plant.
func (r *Repository) Delete(ctx context.Context, id models.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to delete plant", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to delete plant", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("plant %s not found", id))
	}
	return nil
}

// ReplaceAll swaps the whole collection for plants in one transaction,
// keeping their order and IDs.
func (r *Repository) ReplaceAll(ctx context.Context, plants []models.Plant) error {
	if id, ok := models.DuplicateID(plants); ok {
		return apperrors.NewField(apperrors.ErrInvalid, "id", fmt.Sprintf("duplicate plant id %s", id))
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to begin replace", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plants`); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to clear plants", err)
	}
	for _, p := range plants {
		if _, err := tx.ExecContext(ctx, insertPlant, plantArgs(p)...); err != nil {
			return apperrors.Wrap(apperrors.ErrStoreIO, fmt.Sprintf("failed to insert plant %s", p.ID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to commit replace", err)
	}
	return nil
}
