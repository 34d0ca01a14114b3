// Package bridge exposes the core to the mobile UI as JSON in, JSON out.
// Every call returns a document; failures become
// {"error":{"code":...,"message":...,"field":...}}.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kimhsiao/plantcare/backend/internal/backup"
	"github.com/kimhsiao/plantcare/backend/internal/config"
	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/garden"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store"
	"github.com/kimhsiao/plantcare/backend/internal/validation"
	"github.com/kimhsiao/plantcare/backend/internal/watering"
)

// Core wires a store to the garden and backup services.
type Core struct {
	store  store.PlantStore
	garden *garden.Service
	backup *backup.Service
	log    *logging.Logger
}

// Open builds a Core from cfg, seeding sample plants into an empty store
// when cfg.SeedSamples is set.
func Open(ctx context.Context, cfg config.Config, log *logging.Logger) (*Core, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := New(s, garden.Options{Language: cfg.Language(), Logger: log}, log)

	if cfg.SeedSamples {
		if _, err := c.garden.Seed(ctx); err != nil {
			c.log.Warn("Failed to seed sample plants", map[string]interface{}{"error": err.Error()})
		}
	}
	return c, nil
}

// New builds a Core on an open store.
func New(s store.PlantStore, opts garden.Options, log *logging.Logger) *Core {
	if log == nil {
		log = logging.Get()
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	return &Core{
		store:  s,
		garden: garden.NewService(s, opts),
		backup: backup.NewService(s, log),
		log:    log.With("bridge"),
	}
}

// Close releases the store.
func (c *Core) Close() error {
	return c.store.Close()
}

// errorBody is the error document shown by the UI.
type errorBody struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Field   string              `json:"field,omitempty"`
}

func errorOf(err error) *errorBody {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &errorBody{Code: appErr.Code, Message: appErr.Message, Field: appErr.Field}
	}
	return &errorBody{Code: apperrors.ErrInternal, Message: err.Error()}
}

// Error renders err as an error document.
func Error(err error) string {
	return encode(map[string]interface{}{"error": errorOf(err)})
}

func encode(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, apperrors.ErrInternal, err.Error())
	}
	return string(data)
}

// respond renders v, or err when there is nothing to show.
func respond(v interface{}, err error) string {
	if err != nil {
		return Error(err)
	}
	return encode(v)
}

type entriesResponse struct {
	Plants []watering.Entry `json:"plants"`
	Total  int              `json:"total"`
	// Error is set when the store could not be read and sample plants are shown.
	Error *errorBody `json:"error,omitempty"`
}

func entries(list []watering.Entry, err error) string {
	if list == nil {
		if err != nil {
			return Error(err)
		}
		list = []watering.Entry{}
	}
	resp := entriesResponse{Plants: list, Total: len(list)}
	if err != nil {
		resp.Error = errorOf(err)
	}
	return encode(resp)
}

type plantResponse struct {
	Plant watering.Entry `json:"plant"`
}

func (c *Core) plant(p models.Plant, err error) string {
	if err != nil {
		return Error(err)
	}
	return encode(plantResponse{Plant: watering.Evaluate(p, c.garden.Now(), c.garden.Language())})
}

func parseID(id string) (models.UUID, error) {
	uid, err := models.ParseUUID(strings.TrimSpace(id))
	if err != nil {
		return "", apperrors.NewField(apperrors.ErrInvalid, "id", "invalid plant id")
	}
	return uid, nil
}

// formRequest accepts the watering frequency as text or as a JSON number.
type formRequest struct {
	validation.Form
	WateringFrequency json.RawMessage `json:"wateringFrequency"`
}

func parseForm(data string) (validation.Form, error) {
	var req formRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return validation.Form{}, apperrors.Wrap(apperrors.ErrInvalid, "malformed plant form", err)
	}
	form := req.Form

	raw := bytes.TrimSpace(req.WateringFrequency)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		form.WateringFrequency = ""
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &form.WateringFrequency); err != nil {
			return validation.Form{}, apperrors.Wrap(apperrors.ErrInvalid, "malformed plant form", err)
		}
	default:
		form.WateringFrequency = integralNumber(raw)
	}
	return form, nil
}

// integralNumber rewrites whole JSON numbers such as 7.0 or 7e0 as plain
// integers. Anything else passes through for validation to reject.
func integralNumber(raw []byte) string {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return string(raw)
	}
	return strconv.FormatInt(int64(f), 10)
}

// ListPlants returns every plant in store order with its urgency.
func (c *Core) ListPlants(ctx context.Context) string {
	return entries(c.garden.Rows(ctx))
}

// Schedule returns every plant ordered most urgent first.
func (c *Core) Schedule(ctx context.Context) string {
	return entries(c.garden.Schedule(ctx))
}

// GetPlant returns one plant.
func (c *Core) GetPlant(ctx context.Context, id string) string {
	uid, err := parseID(id)
	if err != nil {
		return Error(err)
	}
	return c.plant(c.garden.Get(ctx, uid))
}

// CreatePlant validates a form document and stores a new plant.
func (c *Core) CreatePlant(ctx context.Context, formJSON string) string {
	form, err := parseForm(formJSON)
	if err != nil {
		return Error(err)
	}
	return c.plant(c.garden.Create(ctx, form))
}

// UpdatePlant validates a form document and applies it to plant id.
func (c *Core) UpdatePlant(ctx context.Context, id, formJSON string) string {
	uid, err := parseID(id)
	if err != nil {
		return Error(err)
	}
	form, err := parseForm(formJSON)
	if err != nil {
		return Error(err)
	}
	return c.plant(c.garden.Edit(ctx, uid, form))
}

// DeletePlant removes plant id.
func (c *Core) DeletePlant(ctx context.Context, id string) string {
	uid, err := parseID(id)
	if err != nil {
		return Error(err)
	}
	return respond(map[string]interface{}{"deleted": true, "id": uid}, c.garden.Delete(ctx, uid))
}

// MarkWatered records that plant id was watered now.
func (c *Core) MarkWatered(ctx context.Context, id string) string {
	uid, err := parseID(id)
	if err != nil {
		return Error(err)
	}
	return c.plant(c.garden.MarkWatered(ctx, uid))
}

// Export writes a backup archive. configJSON is {"outputPath","password"}.
func (c *Core) Export(ctx context.Context, configJSON string) string {
	var cfg struct {
		OutputPath string `json:"outputPath"`
		Password   string `json:"password"`
	}
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Error(apperrors.Wrap(apperrors.ErrInvalid, "malformed export config", err))
	}
	return respond(c.backup.Export(ctx, backup.Config{OutputPath: cfg.OutputPath, Password: cfg.Password}))
}

// Import merges a backup archive. configJSON is {"archivePath","password"}.
func (c *Core) Import(ctx context.Context, configJSON string) string {
	var cfg struct {
		ArchivePath string `json:"archivePath"`
		Password    string `json:"password"`
	}
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Error(apperrors.Wrap(apperrors.ErrInvalid, "malformed import config", err))
	}
	return respond(c.backup.Import(ctx, backup.ImportConfig{ArchivePath: cfg.ArchivePath, Password: cfg.Password}))
}
