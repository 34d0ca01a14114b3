// Package redisstore keeps plants in Redis: one JSON value per plant plus a
// list of ids that preserves insertion order.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// Store provides plant persistence in Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Store on client. Keys are namespaced under prefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "plantcare"
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, fmt.Sprintf("failed to reach redis at %s", addr), err)
	}
	return New(client, prefix), nil
}

func (s *Store) plantKey(id models.UUID) string {
	return fmt.Sprintf("%s:plant:%s", s.prefix, id)
}

func (s *Store) listKey() string {
	return s.prefix + ":plants"
}

func ioError(msg string, err error) error {
	return apperrors.Wrap(apperrors.ErrStoreIO, msg, err)
}

func notFound(id models.UUID) error {
	return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("plant %s not found", id))
}

func decode(data string) (models.Plant, error) {
	var p models.Plant
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.Plant{}, ioError("failed to decode plant", err)
	}
	return p, nil
}

// List returns every plant in insertion order.
func (s *Store) List(ctx context.Context) ([]models.Plant, error) {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, ioError("failed to list plant ids", err)
	}
	plants := make([]models.Plant, 0, len(ids))
	if len(ids) == 0 {
		return plants, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.plantKey(models.UUID(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, ioError("failed to load plants", err)
	}

	for _, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			// id left behind by an interrupted delete
			continue
		}
		if err != nil {
			return nil, ioError("failed to load plant", err)
		}
		p, err := decode(data)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, nil
}

// Get retrieves a plant by ID.
func (s *Store) Get(ctx context.Context, id models.UUID) (models.Plant, error) {
	data, err := s.client.Get(ctx, s.plantKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Plant{}, notFound(id)
	}
	if err != nil {
		return models.Plant{}, ioError("failed to get plant", err)
	}
	return decode(data)
}

// Add creates a plant with a fresh ID.
func (s *Store) Add(ctx context.Context, fields models.PlantFields) (models.Plant, error) {
	p := models.NewPlant(fields, time.Now())
	data, err := json.Marshal(p)
	if err != nil {
		return models.Plant{}, ioError("failed to encode plant", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.plantKey(p.ID), data, 0)
		pipe.RPush(ctx, s.listKey(), string(p.ID))
		return nil
	})
	if err != nil {
		return models.Plant{}, ioError("failed to add plant", err)
	}
	return p, nil
}

// Update applies fields to an existing plant.
func (s *Store) Update(ctx context.Context, id models.UUID, fields models.PlantFields) (models.Plant, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return models.Plant{}, err
	}
	p.Apply(fields)
	p.Touch()

	data, err := json.Marshal(p)
	if err != nil {
		return models.Plant{}, ioError("failed to encode plant", err)
	}
	// SET XX so a concurrent delete is not undone.
	ok, err := s.client.SetXX(ctx, s.plantKey(id), data, 0).Result()
	if err != nil {
		return models.Plant{}, ioError("failed to update plant", err)
	}
	if !ok {
		return models.Plant{}, notFound(id)
	}
	return p, nil
}

// Delete removes a plant.
func (s *Store) Delete(ctx context.Context, id models.UUID) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.plantKey(id))
		pipe.LRem(ctx, s.listKey(), 0, string(id))
		return nil
	})
	if err != nil {
		return ioError("failed to delete plant", err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

// ReplaceAll swaps the whole collection for plants in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, plants []models.Plant) error {
	if id, ok := models.DuplicateID(plants); ok {
		return apperrors.NewField(apperrors.ErrInvalid, "id", fmt.Sprintf("duplicate plant id %s", id))
	}
	old, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return ioError("failed to list plant ids", err)
	}

	encoded := make([][]byte, len(plants))
	for i, p := range plants {
		if encoded[i], err = json.Marshal(p); err != nil {
			return ioError(fmt.Sprintf("failed to encode plant %s", p.ID), err)
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, 0, len(old)+1)
		keys = append(keys, s.listKey())
		for _, id := range old {
			keys = append(keys, s.plantKey(models.UUID(id)))
		}
		pipe.Del(ctx, keys...)
		for i, p := range plants {
			pipe.Set(ctx, s.plantKey(p.ID), encoded[i], 0)
			pipe.RPush(ctx, s.listKey(), string(p.ID))
		}
		return nil
	})
	if err != nil {
		return ioError("failed to replace plants", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
