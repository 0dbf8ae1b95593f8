// Package entity defines the domain model of planea: tasks, goals,
// accounts, budget forecast lines, and financial movements — together with
// the canonical codecs that project each rich in-memory entity onto its
// sparse wire form and reconstruct a fully-defaulted value back from it.
//
// The wire form is the only externally visible format: the remote store is
// shared with other client implementations, so every change to it must be
// additive.
package entity

import (
	"time"
)

// Kind identifies an entity family. The values double as remote collection
// names and as state-database keys, so they must stay stable.
type Kind string

// Entity kinds known to the sync engine.
const (
	KindTask     Kind = "tasks"
	KindGoal     Kind = "goals"
	KindAccount  Kind = "accounts"
	KindForecast Kind = "forecast"
	KindMovement Kind = "movements"
)

// Kinds returns every entity kind in a fixed order. The order is not
// significant for sync correctness (kinds are independent) but keeping it
// deterministic makes logs and status output stable.
func Kinds() []Kind {
	return []Kind{KindTask, KindGoal, KindAccount, KindForecast, KindMovement}
}

// ValidKind reports whether k names a known entity kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindTask, KindGoal, KindAccount, KindForecast, KindMovement:
		return true
	default:
		return false
	}
}

// Entity is the contract every concrete entity family satisfies: an opaque
// string identifier, a logical update timestamp for last-write-wins
// comparison, and a tombstone flag.
type Entity interface {
	EntityID() string
	UpdatedAtMillis() int64
	Tombstoned() bool
}

// NowMillis returns the current time as Unix milliseconds. Entity
// timestamps use millisecond precision because that is what the shared wire
// format carries; conversion to finer precision happens nowhere.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// dateLayout is the calendar-date wire format.
const dateLayout = "2006-01-02"

// ValidDate reports whether s is a strict ISO calendar date. The
// parse-and-reparse equality check rejects values Go would otherwise
// normalize as well as impossible dates such as "2024-02-30".
func ValidDate(s string) bool {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return false
	}

	return t.Format(dateLayout) == s
}

// clockLayout is the time-of-day wire format.
const clockLayout = "15:04"

// ValidClockTime reports whether s is a well-formed HH:MM time of day
// (hours 00–23, minutes 00–59). Malformed times are dropped silently at
// canonicalization, never propagated.
func ValidClockTime(s string) bool {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return false
	}

	return t.Format(clockLayout) == s
}
