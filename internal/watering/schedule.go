package watering

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/language"

	"github.com/kimhsiao/plantcare/backend/internal/models"
)

// Entry is one plant as the presentation layer sees it.
type Entry struct {
	Plant      models.Plant `json:"plant"`
	DaysUntil  int          `json:"daysUntilNextWatering"`
	Urgency    Urgency      `json:"urgency"`
	Severity   Severity     `json:"severity"`
	Label      string       `json:"label"`
	NeedsWater bool         `json:"needsWater"`
}

// Evaluate computes the urgency tuple for plant against now.
func Evaluate(plant models.Plant, now time.Time, lang language.Tag) Entry {
	days := DaysUntilNextWatering(plant.LastWatered, plant.WateringFrequency, now)
	urgency := Classify(days)
	return Entry{
		Plant:      plant,
		DaysUntil:  days,
		Urgency:    urgency,
		Severity:   urgency.Severity(),
		Label:      Label(days, lang),
		NeedsWater: NeedsWater(days),
	}
}

// Rows evaluates every plant against the same now, keeping input order.
func Rows(plants []models.Plant, now time.Time, lang language.Tag) []Entry {
	entries := make([]Entry, len(plants))
	for i, p := range plants {
		entries[i] = Evaluate(p, now, lang)
	}
	return entries
}

// Schedule returns the plants ordered most urgent first. Urgency is computed
// once per plant against now before sorting, and plants with equal urgency
// keep their input order. plants is not modified.
func Schedule(plants []models.Plant, now time.Time, lang language.Tag) []Entry {
	entries := Rows(plants, now, lang)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.DaysUntil, b.DaysUntil)
	})
	return entries
}
