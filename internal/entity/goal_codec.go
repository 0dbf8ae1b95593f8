package entity

import (
	"strings"
	"time"
)

// CanonicalizeGoal projects a goal onto its minimal wire form. Like
// CanonicalizeTask it refreshes the update timestamp — its single impurity.
func CanonicalizeGoal(g *Goal) WireGoal {
	return CanonicalizeGoalAt(g, time.Now())
}

// CanonicalizeGoalAt is CanonicalizeGoal with an explicit clock.
func CanonicalizeGoalAt(g *Goal, now time.Time) WireGoal {
	nowMS := now.UnixMilli()

	if g.CreatedAt == 0 {
		g.CreatedAt = nowMS
	}

	g.UpdatedAt = nowMS

	w := WireGoal{
		ID:          g.ID,
		Description: strings.TrimSpace(g.Description),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}

	// The title fallback is a hard invariant: an empty-after-trim title is
	// replaced, never omitted and never left blank.
	w.Title = strings.TrimSpace(g.Title)
	if w.Title == "" {
		w.Title = DefaultGoalTitle
	}

	if validHorizon(g.Horizon) {
		w.Horizon = string(g.Horizon)
	} else {
		w.Horizon = string(HorizonShort)
	}

	if validShortcut(g.Shortcut) {
		w.HorizonShortcut = string(g.Shortcut)
	}

	if ValidDate(g.TargetDate) {
		w.TargetDate = g.TargetDate
	}

	if isFinite(g.Order) && g.Order != 0 {
		w.Order = float64Ptr(g.Order)
	}

	// Asymmetric encoding: the key is present only when the goal is
	// inactive. Absence on the wire always means active.
	if !g.IsActive {
		w.IsActive = boolPtr(false)
	}

	return w
}

// HydrateGoal reconstructs a fully-defaulted goal from a possibly-sparse
// wire record. Any absence of the isActive key — not just an explicit true
// — hydrates to active.
func HydrateGoal(w WireGoal) *Goal {
	g := &Goal{
		ID:          w.ID,
		Description: strings.TrimSpace(w.Description),
		IsActive:    w.IsActive == nil || *w.IsActive,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}

	g.Title = strings.TrimSpace(w.Title)
	if g.Title == "" {
		g.Title = DefaultGoalTitle
	}

	if validHorizon(Horizon(w.Horizon)) {
		g.Horizon = Horizon(w.Horizon)
	} else {
		g.Horizon = HorizonShort
	}

	if validShortcut(HorizonShortcut(w.HorizonShortcut)) {
		g.Shortcut = HorizonShortcut(w.HorizonShortcut)
	}

	if ValidDate(w.TargetDate) {
		g.TargetDate = w.TargetDate
	}

	if w.Order != nil && isFinite(*w.Order) {
		g.Order = *w.Order
	}

	return g
}
