// Package backup exports the plant collection to a portable archive and
// merges archives back in.
package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kimhsiao/plantcare/backend/internal/backup/crypto"
	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store"
)

// Archive entry names.
const (
	ManifestFile = "manifest.json"
	PlantsFile   = "plants.json"

	// FormatVersion is written to every manifest.
	FormatVersion = "1.0"

	// maxEntrySize bounds a single decompressed archive entry.
	maxEntrySize = 256 << 20
)

// Config holds export configuration.
type Config struct {
	// OutputPath defaults to exports/plantcare_<timestamp>.tar.gz.
	OutputPath string
	// Password seals the archive when set.
	Password string
}

// ImportConfig holds import configuration.
type ImportConfig struct {
	ArchivePath string
	Password    string
}

// Manifest describes an archive.
type Manifest struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	PlantCount int       `json:"plant_count"`
	Checksum   string    `json:"checksum"`
	Encrypted  bool      `json:"encrypted"`
}

// ExportResult represents the result of an export operation.
type ExportResult struct {
	FilePath   string        `json:"filePath"`
	SizeBytes  int64         `json:"sizeBytes"`
	PlantCount int           `json:"plantCount"`
	Checksum   string        `json:"checksum"`
	Encrypted  bool          `json:"encrypted"`
	Duration   time.Duration `json:"durationNs"`
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	ImportedCount int           `json:"importedCount"`
	SkippedCount  int           `json:"skippedCount"`
	Duration      time.Duration `json:"durationNs"`
}

// Service provides export/import over a plant store.
type Service struct {
	store store.PlantStore
	log   *logging.Logger
	now   func() time.Time
}

// NewService creates a Service. A nil logger uses logging.Get().
func NewService(s store.PlantStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Get()
	}
	return &Service{store: s, log: log.With("backup"), now: time.Now}
}

// Export writes every plant to a gzip-compressed tar archive.
func (s *Service) Export(ctx context.Context, cfg Config) (*ExportResult, error) {
	startTime := s.now()

	if cfg.Password != "" {
		if err := crypto.ValidatePassword(cfg.Password); err != nil {
			return nil, apperrors.NewField(apperrors.ErrInvalid, "password", err.Error())
		}
	}

	plants, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(plants, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode plants", err)
	}
	checksum := checksumOf(data)

	manifest := Manifest{
		Version:    FormatVersion,
		ExportedAt: startTime.UTC(),
		PlantCount: len(plants),
		Checksum:   checksum,
		Encrypted:  cfg.Password != "",
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode manifest", err)
	}

	archive, err := buildArchive(startTime, map[string][]byte{
		ManifestFile: manifestData,
		PlantsFile:   data,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to create archive", err)
	}

	if cfg.Password != "" {
		if archive, err = crypto.EncryptArchive(archive, cfg.Password); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encrypt archive", err)
		}
	}

	archivePath := cfg.OutputPath
	if archivePath == "" {
		archivePath = filepath.Join("exports", fmt.Sprintf("plantcare_%s.tar.gz",
			startTime.Format("20060102_150405")))
	}
	if err := writeFileAtomic(archivePath, archive); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write archive", err)
	}

	s.log.Info("Export completed", map[string]interface{}{
		"path":      archivePath,
		"plants":    len(plants),
		"encrypted": manifest.Encrypted,
	})

	return &ExportResult{
		FilePath:   archivePath,
		SizeBytes:  int64(len(archive)),
		PlantCount: len(plants),
		Checksum:   checksum,
		Encrypted:  manifest.Encrypted,
		Duration:   time.Since(startTime),
	}, nil
}

// Import reads an archive and adds every plant whose ID is not already
// stored. Plants already present are skipped, never overwritten.
func (s *Service) Import(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	startTime := s.now()

	raw, err := os.ReadFile(cfg.ArchivePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "failed to read archive", err)
	}

	manifest, plants, err := readArchive(raw, cfg.Password)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[models.UUID]bool, len(existing))
	for _, p := range existing {
		known[p.ID] = true
	}

	merged := existing
	skipped := 0
	for _, p := range plants {
		if known[p.ID] || !importable(p) {
			skipped++
			continue
		}
		known[p.ID] = true
		merged = append(merged, p)
	}
	imported := len(merged) - len(existing)

	if imported > 0 {
		if err := s.store.ReplaceAll(ctx, merged); err != nil {
			return nil, err
		}
	}

	s.log.Info("Import completed", map[string]interface{}{
		"path":        cfg.ArchivePath,
		"exported_at": manifest.ExportedAt,
		"imported":    imported,
		"skipped":     skipped,
	})

	return &ImportResult{
		ImportedCount: imported,
		SkippedCount:  skipped,
		Duration:      time.Since(startTime),
	}, nil
}

// importable rejects records that would break store invariants.
func importable(p models.Plant) bool {
	if _, err := models.ParseUUID(p.ID.String()); err != nil {
		return false
	}
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Species) != "" &&
		p.WateringFrequency >= 0
}

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildArchive returns a tar.gz holding files in a fixed order.
func buildArchive(modTime time.Time, files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, name := range []string{ManifestFile, PlantsFile} {
		data := files[name]
		header := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(data); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readArchive opens raw, verifies its checksum and decodes the plants.
func readArchive(raw []byte, password string) (*Manifest, []models.Plant, error) {
	if crypto.IsEncrypted(raw) {
		if password == "" {
			return nil, nil, apperrors.NewField(apperrors.ErrInvalidPassword, "password",
				"archive is encrypted; a password is required")
		}
		opened, err := crypto.DecryptArchive(raw, password)
		switch {
		case errors.Is(err, crypto.ErrInvalidPassword):
			return nil, nil, apperrors.Wrap(apperrors.ErrInvalidPassword, "wrong password or damaged archive", err)
		case err != nil:
			return nil, nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "unreadable archive header", err)
		}
		raw = opened
	}

	files, err := extractArchive(raw)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to extract archive", err)
	}

	manifestData, ok := files[ManifestFile]
	if !ok {
		return nil, nil, apperrors.New(apperrors.ErrCorruptedArchive, "archive has no manifest")
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to parse manifest", err)
	}
	if manifest.Checksum == "" {
		return nil, nil, apperrors.New(apperrors.ErrCorruptedArchive, "manifest missing checksum")
	}

	data, ok := files[PlantsFile]
	if !ok {
		return nil, nil, apperrors.New(apperrors.ErrCorruptedArchive, "archive has no plant data")
	}
	if checksumOf(data) != manifest.Checksum {
		return nil, nil, apperrors.New(apperrors.ErrCorruptedArchive, "plant data does not match manifest checksum")
	}

	var plants []models.Plant
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to parse plant data", err)
	}
	return &manifest, plants, nil
}

// extractArchive reads every regular file of a tar.gz into memory.
func extractArchive(raw []byte) (map[string][]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxEntrySize {
			return nil, fmt.Errorf("entry %s exceeds %d bytes", header.Name, maxEntrySize)
		}
		files[filepath.Base(header.Name)] = data
	}
	return files, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
