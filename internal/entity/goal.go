package entity

import (
	"time"

	"github.com/google/uuid"
)

// Horizon is the closed three-value goal classification.
type Horizon string

// Goal horizons as carried on the wire.
const (
	HorizonShort  Horizon = "SHORT"
	HorizonMedium Horizon = "MEDIUM"
	HorizonLong   Horizon = "LONG"
)

// validHorizon reports whether h is one of the three classifications.
func validHorizon(h Horizon) bool {
	return h == HorizonShort || h == HorizonMedium || h == HorizonLong
}

// HorizonShortcut is the closed eight-value named horizon. Choosing one
// computes and overwrites the goal's target date.
type HorizonShortcut string

// Named horizons.
const (
	Shortcut1Month  HorizonShortcut = "1M"
	Shortcut3Months HorizonShortcut = "3M"
	Shortcut6Months HorizonShortcut = "6M"
	Shortcut9Months HorizonShortcut = "9M"
	Shortcut1Year   HorizonShortcut = "1Y"
	Shortcut3Years  HorizonShortcut = "3Y"
	Shortcut5Years  HorizonShortcut = "5Y"
	Shortcut10Years HorizonShortcut = "10Y"
)

// shortcutMonths maps each named horizon to its span in months.
var shortcutMonths = map[HorizonShortcut]int{
	Shortcut1Month:  1,
	Shortcut3Months: 3,
	Shortcut6Months: 6,
	Shortcut9Months: 9,
	Shortcut1Year:   12,
	Shortcut3Years:  36,
	Shortcut5Years:  60,
	Shortcut10Years: 120,
}

// validShortcut reports whether s is one of the eight named horizons.
func validShortcut(s HorizonShortcut) bool {
	_, ok := shortcutMonths[s]
	return ok
}

// DefaultGoalTitle is the title a goal falls back to when its own is blank.
// Downstream consumers index goals by title for display with no nil check,
// so a goal title is never empty — this is a hard invariant, not a UI
// nicety.
const DefaultGoalTitle = "Sin título"

// Classification thresholds: a target this many months out or further maps
// to the corresponding horizon.
const (
	longHorizonMonths   = 60
	mediumHorizonMonths = 12
)

// Goal is the fully-hydrated in-memory goal ("meta") representation.
type Goal struct {
	ID          string
	Title       string // never blank after hydration or canonicalization
	Description string

	Horizon  Horizon
	Shortcut HorizonShortcut // optional named horizon
	// TargetDate is an ISO calendar date, empty when unset.
	TargetDate string

	// Order is the optional fractional sort key; zero means unsorted.
	Order float64

	IsActive bool // defaults to true; persisted only when false

	Deleted   bool
	CreatedAt int64 // Unix milliseconds
	UpdatedAt int64 // Unix milliseconds
}

// NewGoal returns an active short-horizon goal with a fresh identifier.
func NewGoal(title string) *Goal {
	return &Goal{
		ID:       uuid.NewString(),
		Title:    title,
		Horizon:  HorizonShort,
		IsActive: true,
	}
}

// EntityID implements Entity.
func (g *Goal) EntityID() string { return g.ID }

// UpdatedAtMillis implements Entity.
func (g *Goal) UpdatedAtMillis() int64 { return g.UpdatedAt }

// Tombstoned implements Entity.
func (g *Goal) Tombstoned() bool { return g.Deleted }

// ApplyShortcut sets the goal's named horizon, computes the target date it
// implies from now, and re-derives the classification. Invalid shortcuts
// are ignored.
func (g *Goal) ApplyShortcut(s HorizonShortcut, now time.Time) {
	months, ok := shortcutMonths[s]
	if !ok {
		return
	}

	g.Shortcut = s
	g.TargetDate = now.AddDate(0, months, 0).Format(dateLayout)
	g.Horizon = DeriveHorizon(g.TargetDate, now)
}

// DeriveHorizon classifies a target date relative to now: sixty months or
// more out is long-horizon, twelve or more is medium, anything nearer (or
// an invalid date) is short.
func DeriveHorizon(targetDate string, now time.Time) Horizon {
	t, err := time.Parse(dateLayout, targetDate)
	if err != nil {
		return HorizonShort
	}

	months := monthsBetween(now, t)

	switch {
	case months >= longHorizonMonths:
		return HorizonLong
	case months >= mediumHorizonMonths:
		return HorizonMedium
	default:
		return HorizonShort
	}
}

// monthsBetween returns the number of whole calendar months from a to b,
// negative when b precedes a.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}

	return months
}
