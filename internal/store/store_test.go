package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/plantcare/backend/internal/config"
	"github.com/kimhsiao/plantcare/backend/internal/db"
	"github.com/kimhsiao/plantcare/backend/internal/store/jsonfile"
	"github.com/kimhsiao/plantcare/backend/internal/store/storetest"
)

func TestOpen_backends(t *testing.T) {
	tests := []struct {
		backend string
		file    string
	}{
		{config.BackendSQLite, db.FileName},
		{config.BackendJSON, jsonfile.FileName},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.Store.Backend = tt.backend

			s, err := Open(context.Background(), cfg)
			require.NoError(t, err)
			defer s.Close()

			_, err = s.Add(context.Background(), storetest.Fields("Kevin"))
			require.NoError(t, err)

			_, err = os.Stat(filepath.Join(cfg.DataDir, tt.file))
			assert.NoError(t, err)
		})
	}
}

func TestOpen_redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = addr
	cfg.Store.Redis.Prefix = "plantcare-open-test"

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(context.Background(), nil))
	assert.NoError(t, s.Close())
}

func TestOpen_unknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "mongo"

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
