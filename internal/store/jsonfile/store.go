// Package jsonfile keeps the plant collection in a single JSON document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// FileName is the document created inside the data directory.
const FileName = "plants.json"

// Store reads the document on every call and rewrites it after every
// mutation. Writes go to a temp file that replaces the document, so a
// crash leaves either the old or the new collection on disk.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store for dataDir/plants.json, creating dataDir if needed.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to create data directory", err)
	}
	return New(filepath.Join(dataDir, FileName)), nil
}

// New returns a store for the document at path. The file need not exist.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// read loads the collection. A missing or empty file is an empty collection.
func (s *Store) read() ([]models.Plant, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Plant{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to read plant file", err)
	}
	plants := []models.Plant{}
	if len(data) == 0 {
		return plants, nil
	}
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to decode plant file", err)
	}
	return plants, nil
}

func (s *Store) write(plants []models.Plant) error {
	if plants == nil {
		plants = []models.Plant{}
	}
	data, err := json.MarshalIndent(plants, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to encode plants", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".plants-*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to write plant file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to sync plant file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to close plant file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to replace plant file", err)
	}
	return nil
}

func indexOf(plants []models.Plant, id models.UUID) int {
	for i := range plants {
		if plants[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id models.UUID) error {
	return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("plant %s not found", id))
}

// List returns every plant in document order.
func (s *Store) List(ctx context.Context) ([]models.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get retrieves a plant by ID.
func (s *Store) Get(ctx context.Context, id models.UUID) (models.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plants, err := s.read()
	if err != nil {
		return models.Plant{}, err
	}
	i := indexOf(plants, id)
	if i < 0 {
		return models.Plant{}, notFound(id)
	}
	return plants[i], nil
}

// Add appends a plant with a fresh ID.
func (s *Store) Add(ctx context.Context, fields models.PlantFields) (models.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plants, err := s.read()
	if err != nil {
		return models.Plant{}, err
	}
	p := models.NewPlant(fields, time.Now())
	if err := s.write(append(plants, p)); err != nil {
		return models.Plant{}, err
	}
	return p, nil
}

// Update applies fields to an existing plant.
func (s *Store) Update(ctx context.Context, id models.UUID, fields models.PlantFields) (models.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plants, err := s.read()
	if err != nil {
		return models.Plant{}, err
	}
	i := indexOf(plants, id)
	if i < 0 {
		return models.Plant{}, notFound(id)
	}
	plants[i].Apply(fields)
	plants[i].Touch()
	if err := s.write(plants); err != nil {
		return models.Plant{}, err
	}
	return plants[i], nil
}

// Delete removes a plant.
func (s *Store) Delete(ctx context.Context, id models.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plants, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(plants, id)
	if i < 0 {
		return notFound(id)
	}
	return s.write(append(plants[:i], plants[i+1:]...))
}

// ReplaceAll overwrites the document with plants. IDs must be unique.
func (s *Store) ReplaceAll(ctx context.Context, plants []models.Plant) error {
	if id, ok := models.DuplicateID(plants); ok {
		return apperrors.NewField(apperrors.ErrInvalid, "id", fmt.Sprintf("duplicate plant id %s", id))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(plants)
}

// Close is a no-op; nothing is held open between calls.
func (s *Store) Close() error {
	return nil
}
