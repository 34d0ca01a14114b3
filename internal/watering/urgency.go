// Package watering derives watering urgency from plant records and orders
// plants by how soon they need water.
package watering

import (
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Urgency is the three-tier classification of days until next watering.
type Urgency string

const (
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencyLater    Urgency = "later"
)

// Severity ranks an Urgency for presentation. Higher is more urgent.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

// String returns the severity name used at the UI boundary.
func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalText lets Severity travel as its name in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// calendarDay returns the day number of t's date in loc, counted from the
// Unix epoch. Only the date matters; time of day and DST shifts are dropped.
func calendarDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// DaysSinceWatered counts the date boundaries crossed between lastWatered and
// now, using now's location as the calendar. A zero lastWatered is unknown
// and counts as watered today.
func DaysSinceWatered(lastWatered, now time.Time) int {
	if lastWatered.IsZero() {
		return 0
	}
	loc := now.Location()
	return int(calendarDay(now, loc) - calendarDay(lastWatered, loc))
}

// DaysUntilNextWatering returns frequency minus the days since lastWatered.
// Negative values mean the plant is overdue.
func DaysUntilNextWatering(lastWatered time.Time, frequency int, now time.Time) int {
	return frequency - DaysSinceWatered(lastWatered, now)
}

// Classify maps days until next watering onto exactly one Urgency.
func Classify(days int) Urgency {
	switch {
	case days <= 0:
		return UrgencyToday
	case days == 1:
		return UrgencyTomorrow
	default:
		return UrgencyLater
	}
}

// Severity returns the presentation rank of u.
func (u Urgency) Severity() Severity {
	switch u {
	case UrgencyToday:
		return SeverityHigh
	case UrgencyTomorrow:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// NeedsWater reports whether the list view should flag the plant as thirsty.
func NeedsWater(days int) bool {
	return days <= 0
}
