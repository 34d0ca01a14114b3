// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libplantcare.so (Android) / plantcare.framework (iOS)
//
// Every call returning *C.char hands back a JSON document that must be
// released with FreeString.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/kimhsiao/plantcare/backend/internal/bridge"
	"github.com/kimhsiao/plantcare/backend/internal/config"
	apperrors "github.com/kimhsiao/plantcare/backend/internal/errors"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
)

var (
	once    sync.Once
	core    *bridge.Core
	coreMu  sync.RWMutex
	lastErr string
	lastMu  sync.RWMutex
)

//export Init
// Init opens the plant store described by the YAML file at configPath
// (empty for defaults). It returns 0 on success and -1 on failure; the
// reason is available from GetLastError.
func Init(configPath *C.char) C.int {
	status := C.int(0)
	once.Do(func() {
		cfg, err := config.Load(C.GoString(configPath))
		if err != nil {
			setLastError(fmt.Sprintf("Failed to load config: %v", err))
			status = -1
			return
		}
		logging.Init(os.Stderr, cfg.LogLevel())

		c, err := bridge.Open(context.Background(), cfg, logging.Get())
		if err != nil {
			setLastError(fmt.Sprintf("Failed to open plant store: %v", err))
			status = -1
			return
		}

		coreMu.Lock()
		core = c
		coreMu.Unlock()
	})
	if status == 0 && current() == nil {
		status = -1
	}
	return status
}

//export Cleanup
// Cleanup closes the plant store.
func Cleanup() {
	coreMu.Lock()
	defer coreMu.Unlock()
	if core != nil {
		if err := core.Close(); err != nil {
			setLastError(fmt.Sprintf("Failed to close plant store: %v", err))
		}
		core = nil
	}
}

//export GetLastError
// GetLastError returns the last error message.
// Returns a C string that must be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()

	return C.CString(lastErr)
}

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

func current() *bridge.Core {
	coreMu.RLock()
	defer coreMu.RUnlock()
	return core
}

// call runs fn against the open core and converts its document to C.
func call(fn func(ctx context.Context, c *bridge.Core) string) *C.char {
	c := current()
	if c == nil {
		setLastError("Core not initialized")
		return C.CString(bridge.Error(apperrors.New(apperrors.ErrInternal, "core not initialized")))
	}
	return C.CString(fn(context.Background(), c))
}

// =====================================================
// Plant Operations
// =====================================================

//export PlantList
// PlantList returns every plant in store order with its watering urgency.
func PlantList() *C.char {
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.ListPlants(ctx)
	})
}

//export PlantSchedule
// PlantSchedule returns every plant ordered most urgent first.
func PlantSchedule() *C.char {
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.Schedule(ctx)
	})
}

//export PlantGet
// PlantGet returns one plant by ID.
func PlantGet(id *C.char) *C.char {
	plantID := C.GoString(id)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.GetPlant(ctx, plantID)
	})
}

//export PlantCreate
// PlantCreate validates a plant form (JSON) and stores a new plant.
func PlantCreate(formJSON *C.char) *C.char {
	form := C.GoString(formJSON)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.CreatePlant(ctx, form)
	})
}

//export PlantUpdate
// PlantUpdate validates a plant form (JSON) and applies it to plant id.
func PlantUpdate(id, formJSON *C.char) *C.char {
	plantID, form := C.GoString(id), C.GoString(formJSON)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.UpdatePlant(ctx, plantID, form)
	})
}

//export PlantDelete
// PlantDelete removes a plant.
func PlantDelete(id *C.char) *C.char {
	plantID := C.GoString(id)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.DeletePlant(ctx, plantID)
	})
}

//export PlantMarkWatered
// PlantMarkWatered records that a plant was watered now.
func PlantMarkWatered(id *C.char) *C.char {
	plantID := C.GoString(id)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.MarkWatered(ctx, plantID)
	})
}

// =====================================================
// Backup Operations
// =====================================================

//export BackupExport
// BackupExport writes a backup archive. configJSON: {"outputPath","password"}.
func BackupExport(configJSON *C.char) *C.char {
	cfg := C.GoString(configJSON)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.Export(ctx, cfg)
	})
}

//export BackupImport
// BackupImport merges a backup archive. configJSON: {"archivePath","password"}.
func BackupImport(configJSON *C.char) *C.char {
	cfg := C.GoString(configJSON)
	return call(func(ctx context.Context, c *bridge.Core) string {
		return c.Import(ctx, cfg)
	})
}

//export FreeString
// FreeString releases a string returned by this library.
func FreeString(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func main() {
	// Required for building as a shared library
}
