// Package main tests for the PlantCare CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig writes a config pointing at a fresh data directory.
func testConfig(t *testing.T, backend string, seed bool) string {
	t.Helper()
	for _, k := range []string{"PLANTCARE_DATA_DIR", "PLANTCARE_STORE", "PLANTCARE_LOG_LEVEL", "PLANTCARE_LOCALE"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	body := "data_dir: " + filepath.Join(dir, "data") + "\n" +
		"store:\n  backend: " + backend + "\n" +
		"log:\n  level: error\n"
	if !seed {
		body += "seed_samples: false\n"
	}
	path := filepath.Join(dir, "plantcare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "PlantCare Core v"+Version+"\n", out)
}

func TestList_seedsSamples(t *testing.T) {
	cfg := testConfig(t, "sqlite", true)

	out, err := run(t, "-c", cfg, "list")
	require.NoError(t, err)
	for _, name := range []string{"Kevin", "Jake", "Diefenbaker"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Water in 14 days")
}

func TestAddWaterDelete(t *testing.T) {
	for _, backend := range []string{"sqlite", "json"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend, false)
			lastWatered := time.Now().AddDate(0, 0, -5).Format(time.DateOnly)

			out, err := run(t, "-c", cfg, "add", "--name", "Fern", "--species", "Boston Fern",
				"--every", "3", "--last-watered", lastWatered)
			require.NoError(t, err)
			assert.Contains(t, out, "Water today!")
			m := idPattern.FindStringSubmatch(out)
			require.Len(t, m, 2, out)
			id := m[1]

			out, err = run(t, "-c", cfg, "add", "--name", "Cactus", "--species", "Saguaro", "--every", "30")
			require.NoError(t, err)
			assert.Contains(t, out, "Water in 30 days")

			out, err = run(t, "-c", cfg, "schedule")
			require.NoError(t, err)
			assert.Less(t, strings.Index(out, "Fern"), strings.Index(out, "Cactus"))
			assert.Contains(t, out, "drop")

			out, err = run(t, "-c", cfg, "water", id)
			require.NoError(t, err)
			assert.Contains(t, out, "Water in 3 days")

			out, err = run(t, "-c", cfg, "delete", id)
			require.NoError(t, err)
			assert.Contains(t, out, "Deleted "+id)

			out, err = run(t, "-c", cfg, "list")
			require.NoError(t, err)
			assert.NotContains(t, out, "Fern")
		})
	}
}

func TestEdit(t *testing.T) {
	for _, backend := range []string{"sqlite", "json"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend, false)

			out, err := run(t, "-c", cfg, "add", "--name", "Fern", "--species", "Boston Fern",
				"--every", "7", "--notes", "mist weekly")
			require.NoError(t, err)
			m := idPattern.FindStringSubmatch(out)
			require.Len(t, m, 2, out)
			id := m[1]

			out, err = run(t, "-c", cfg, "edit", id, "--every", "3")
			require.NoError(t, err)
			assert.Contains(t, out, "Updated Fern")
			assert.Contains(t, out, "Water in 3 days")

			// Unset flags keep the stored values
			out, err = run(t, "-c", cfg, "edit", id, "--name", "Sword Fern")
			require.NoError(t, err)
			assert.Contains(t, out, "Updated Sword Fern")
			assert.Contains(t, out, "Water in 3 days")

			out, err = run(t, "-c", cfg, "edit", id, "--last-watered", "1600-01-01")
			require.NoError(t, err)
			assert.Contains(t, out, "Water today!")

			out, err = run(t, "-c", cfg, "list")
			require.NoError(t, err)
			assert.Contains(t, out, "Sword Fern")
			assert.Contains(t, out, "Boston Fern")
			assert.Contains(t, out, "Water today!")

			_, err = run(t, "-c", cfg, "edit", id, "--every", "-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "negative")

			_, err = run(t, "-c", cfg, "edit", "0b3d6c26-4a3e-4f4c-9a2f-3f1f5c0b8e11", "--every", "2")
			require.Error(t, err)

			_, err = run(t, "-c", cfg, "edit", id, "--last-watered", "yesterday")
			require.Error(t, err)
		})
	}
}

func TestAdd_validation(t *testing.T) {
	cfg := testConfig(t, "sqlite", false)

	_, err := run(t, "-c", cfg, "add", "--name", "Fern", "--species", "Boston Fern", "--every=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEGATIVE_VALUE")

	_, err = run(t, "-c", cfg, "add", "--name", "", "--species", "Boston Fern", "--every", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMPTY_FIELD")

	_, err = run(t, "-c", cfg, "add", "--name", "Fern", "--species", "Boston Fern", "--every", "2",
		"--last-watered", "yesterday")
	assert.Error(t, err)
}

func TestWater_badID(t *testing.T) {
	cfg := testConfig(t, "sqlite", false)

	_, err := run(t, "-c", cfg, "water", "not-an-id")
	assert.Error(t, err)

	_, err = run(t, "-c", cfg, "water")
	assert.Error(t, err, "id argument is required")
}

func TestExportImport(t *testing.T) {
	src := testConfig(t, "sqlite", true)
	archive := filepath.Join(t.TempDir(), "plants.tar.gz")

	out, err := run(t, "-c", src, "export", "-o", archive, "-p", "long-enough")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 plants")
	assert.Contains(t, out, "encrypted: true")

	dst := testConfig(t, "json", false)
	_, err = run(t, "-c", dst, "import", archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_PASSWORD")

	out, err = run(t, "-c", dst, "import", archive, "-p", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "Imported 3 plants, skipped 0\n", out)

	out, err = run(t, "-c", dst, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Diefenbaker")
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: mongo\n"), 0o600))

	_, err := run(t, "-c", path, "list")
	assert.Error(t, err)
}
