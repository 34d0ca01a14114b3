package db

import (
	"fmt"
)

// Store is a Repository that owns its database handle.
type Store struct {
	*Repository
	db *DB
}

// OpenStore opens the database in dataDir, applies pending migrations and
// returns a ready plant store.
func OpenStore(dataDir string) (*Store, error) {
	database, err := Open(dataDir)
	if err != nil {
		return nil, err
	}
	return newStore(database)
}

// OpenMemoryStore returns a migrated store backed by an in-memory database.
func OpenMemoryStore() (*Store, error) {
	database, err := OpenPath(":memory:")
	if err != nil {
		return nil, err
	}
	return newStore(database)
}

func newStore(database *DB) (*Store, error) {
	if err := Migrate(database.DB); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{Repository: NewRepository(database.DB), db: database}, nil
}

// Close releases prepared statements and the database connection.
func (s *Store) Close() error {
	stmtErr := s.Repository.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return stmtErr
}
