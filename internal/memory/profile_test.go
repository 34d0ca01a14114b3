// Package memory provides memory profiling and leak detection tests.
package memory

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/kimhsiao/plantcare/backend/internal/db"
	"github.com/kimhsiao/plantcare/backend/internal/garden"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// testHelper is a minimal interface for *testing.T and *testing.B
type testHelper interface {
	Helper()
	Fatalf(format string, args ...interface{})
	Cleanup(func())
}

const plantCount = 1000

// setupGarden creates an in-memory plant store filled with plantCount plants.
func setupGarden(t testHelper) (*garden.Service, *db.Store) {
	t.Helper()
	s, err := db.OpenMemoryStore()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	now := time.Now().UTC()
	plants := make([]models.Plant, 0, plantCount)
	for i := 0; i < plantCount; i++ {
		plants = append(plants, models.Plant{
			ID:                models.NewUUID(),
			Name:              fmt.Sprintf("Plant %d", i),
			Species:           "Snake Plant",
			LastWatered:       now.AddDate(0, 0, -(i % 21)),
			WateringFrequency: i % 15,
			Notes:             fmt.Sprintf("Notes for plant number %d", i),
			CreatedAt:         now.Unix(),
			UpdatedAt:         now.Unix(),
		})
	}
	if err := s.ReplaceAll(context.Background(), plants); err != nil {
		t.Fatalf("Failed to fill store: %v", err)
	}

	return garden.NewService(s, garden.Options{Logger: logging.Discard()}), s
}

// getMemoryStats returns current memory statistics
func getMemoryStats() runtime.MemStats {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats
}

// formatBytes formats bytes to human-readable string
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// TestMemoryLeakSchedule tests for memory leaks during repeated schedule builds
func TestMemoryLeakSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory profile in short mode")
	}
	svc, _ := setupGarden(t)
	ctx := context.Background()

	runtime.GC()
	initialStats := getMemoryStats()
	t.Logf("Initial Alloc: %s", formatBytes(initialStats.Alloc))

	const iterations = 200
	for i := 0; i < iterations; i++ {
		entries, err := svc.Schedule(ctx)
		if err != nil {
			t.Fatalf("Schedule() failed: %v", err)
		}
		if len(entries) != plantCount {
			t.Fatalf("Schedule() returned %d entries, want %d", len(entries), plantCount)
		}

		if (i+1)%50 == 0 {
			runtime.GC()
			current := getMemoryStats()
			t.Logf("After %d iterations: Alloc %s, TotalAlloc %s",
				i+1, formatBytes(current.Alloc), formatBytes(current.TotalAlloc-initialStats.TotalAlloc))
		}
	}

	runtime.GC()
	finalStats := getMemoryStats()

	// Alloc can shrink after GC
	var allocChange int64
	if finalStats.Alloc > initialStats.Alloc {
		allocChange = int64(finalStats.Alloc - initialStats.Alloc)
	}
	t.Logf("Memory change after %d iterations: +%s", iterations, formatBytes(uint64(allocChange)))

	if allocChange > 5*1024*1024 {
		t.Errorf("Potential memory leak detected: allocated memory grew by %s", formatBytes(uint64(allocChange)))
	}
}

// TestMemoryLeakConnectionPool tests for database connection leaks
func TestMemoryLeakConnectionPool(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory profile in short mode")
	}
	database, err := db.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("OpenPath() failed: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(database.DB); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	repo := db.NewRepository(database.DB)
	defer repo.Close()

	ctx := context.Background()
	const iterations = 500
	for i := 0; i < iterations; i++ {
		p, err := repo.Add(ctx, models.PlantFields{Name: fmt.Sprintf("Plant %d", i), Species: "Aloe", WateringFrequency: 3})
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
		if _, err := repo.Get(ctx, p.ID); err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if i%10 == 0 {
			if _, err := repo.List(ctx); err != nil {
				t.Fatalf("List() failed: %v", err)
			}
		}
	}

	stats := database.Stats()
	t.Logf("OpenConnections=%d, InUse=%d, Idle=%d", stats.OpenConnections, stats.InUse, stats.Idle)
	if stats.InUse > 0 {
		t.Errorf("Connection leak detected: %d connections still in use", stats.InUse)
	}
	if stats.OpenConnections > 1 {
		t.Errorf("in-memory database should use one connection, got %d", stats.OpenConnections)
	}
}

// BenchmarkMemoryAllocationSchedule benchmarks memory allocation while building the schedule
func BenchmarkMemoryAllocationSchedule(b *testing.B) {
	svc, _ := setupGarden(b)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Schedule(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryAllocationList benchmarks memory allocation during list queries
func BenchmarkMemoryAllocationList(b *testing.B) {
	_, s := setupGarden(b)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := s.List(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
