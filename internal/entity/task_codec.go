package entity

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CanonicalizeTask projects a task onto its minimal wire form, degrading
// invalid field combinations to valid lesser states. Canonicalize is a
// save-time operation and impure in exactly one respect: it refreshes the
// task's update timestamp to now (and stamps a creation timestamp if the
// task has none). Everything else is a pure projection.
func CanonicalizeTask(t *Task) WireTask {
	return CanonicalizeTaskAt(t, time.Now())
}

// CanonicalizeTaskAt is CanonicalizeTask with an explicit clock, for
// deterministic use in tests and replay.
func CanonicalizeTaskAt(t *Task, now time.Time) WireTask {
	nowMS := now.UnixMilli()

	if t.CreatedAt == 0 {
		t.CreatedAt = nowMS
	}

	t.UpdatedAt = nowMS

	// Section headers carry no scheduling, financial, or account data:
	// whatever stale values the in-memory struct holds, none of it reaches
	// the wire.
	if t.Kind == TaskKindTitle {
		return WireTask{
			ID:        t.ID,
			Kind:      string(TaskKindTitle),
			Type:      string(t.Type),
			Title:     t.Title,
			Points:    intPtr(defaultTitlePoints),
			Done:      t.Done,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
			Extra:     TaskExtra{Recurrence: string(RecurrenceOneOff)},
		}
	}

	w := WireTask{
		ID:        t.ID,
		Kind:      string(TaskKindNormal),
		Type:      string(t.Type),
		Title:     t.Title,
		GoalID:    t.GoalID,
		ParentID:  t.ParentID,
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}

	if scope := normalScope(t.Scope); scope != ScopeWork {
		w.Scope = string(scope)
	}

	if isFinite(t.Order) && t.Order != 0 {
		w.Order = float64Ptr(t.Order)
	}

	if t.Points != defaultTaskPoints {
		w.Points = intPtr(t.Points)
	}

	eff, days, scheduled := effectiveRecurrence(t.Recurrence)
	recTime := ""

	if ValidClockTime(t.Recurrence.Time) {
		recTime = t.Recurrence.Time
	}

	w.Extra.Recurrence = string(eff)

	switch eff {
	case RecurrenceWeekly:
		w.RepeatRule = buildRepeatRule("WEEKLY", strings.Join(days, ","), recTime)
		w.Extra.WeeklyDays = days
		w.Extra.WeeklyTime = recTime

	case RecurrenceMonthly:
		w.RepeatRule = buildRepeatRule("MONTHLY", strconv.Itoa(t.Recurrence.MonthlyDay), recTime)
		w.Extra.MonthlyDay = t.Recurrence.MonthlyDay
		w.Extra.MonthlyTime = recTime

	case RecurrenceOneOff:
		if scheduled {
			w.Date = t.Recurrence.Date
			w.Time = recTime
		}
	}

	canonicalizeTaskExtras(t, &w)

	return w
}

// canonicalizeTaskExtras fills the conditionally-emitted extension fields.
func canonicalizeTaskExtras(t *Task, w *WireTask) {
	if t.Type.Financial() {
		amt := t.AmountEUR
		// A present-but-invalid amount is coerced to zero rather than
		// omitted, so that a stale remote amount cannot resurrect.
		if !isFinite(amt) {
			amt = 0
		}

		w.Extra.AmountEUR = float64Ptr(amt)
	}

	scope := normalScope(t.Scope)
	if scope == ScopePhysical || scope == ScopeGrowth {
		if unit := strings.TrimSpace(t.Unit); unit != "" {
			w.Extra.Unit = unit
		}

		if isFinite(t.Quantity) && t.Quantity != 0 {
			w.Extra.Quantity = float64Ptr(t.Quantity)
		}
	}

	if t.Reminder.Enabled {
		w.Extra.ReminderEnabled = true
		w.Extra.ReminderOffsetMin = t.Reminder.OffsetMin
	}

	if label := strings.TrimSpace(t.Label); label != "" {
		w.Extra.Label = label
	}

	if notes := strings.TrimSpace(t.Notes); notes != "" {
		w.Extra.Notes = notes
	}

	if dates := trimmedNonEmpty(t.CompletedDates); len(dates) > 0 {
		w.Extra.CompletedDates = dates
	}

	w.Extra.AccountID = t.AccountID
	w.Extra.ForecastID = t.ForecastID
}

// HydrateTask reconstructs a fully-defaulted task from a possibly-sparse
// wire record. Every field gets an explicit default so no consumer ever
// sees an unexpectedly absent value, and hydrating the same record twice
// yields structurally equal tasks. The degradation rules of canonicalize
// are applied here too, so hydrate∘canonicalize∘hydrate is hydrate.
func HydrateTask(w WireTask) *Task {
	t := &Task{
		ID:        w.ID,
		GoalID:    w.GoalID,
		ParentID:  w.ParentID,
		Done:      w.Done,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}

	if w.Kind == string(TaskKindTitle) {
		t.Kind = TaskKindTitle
		t.Scope = ScopeNone
	} else {
		t.Kind = TaskKindNormal
		t.Scope = normalScope(Scope(w.Scope))
	}

	t.Type = hydrateTaskType(w.Type)
	t.Title = w.Title

	switch {
	case w.Points != nil:
		t.Points = *w.Points
	case t.Kind == TaskKindTitle:
		t.Points = defaultTitlePoints
	default:
		t.Points = defaultTaskPoints
	}

	if w.Order != nil && isFinite(*w.Order) {
		t.Order = *w.Order
	}

	if t.Kind == TaskKindTitle {
		t.Recurrence = Recurrence{Kind: RecurrenceOneOff}
		return t
	}

	t.Recurrence = hydrateRecurrence(w)
	hydrateTaskExtras(w, t)

	return t
}

// hydrateTaskType validates the wire type against the closed enum,
// defaulting to activity.
func hydrateTaskType(s string) TaskType {
	switch TaskType(s) {
	case TypeActivity, TypeIncome, TypeExpense:
		return TaskType(s)
	default:
		return TypeActivity
	}
}

// hydrateRecurrence rebuilds the recurrence descriptor, preferring the
// typed extra fields and falling back to parsing the rule string for
// records written by clients that only set repeatRule. Invalid descriptors
// degrade to a one-off exactly as canonicalize would degrade them.
func hydrateRecurrence(w WireTask) Recurrence {
	raw := Recurrence{
		Kind:       RecurrenceKind(w.Extra.Recurrence),
		WeeklyDays: w.Extra.WeeklyDays,
		MonthlyDay: w.Extra.MonthlyDay,
	}

	switch raw.Kind {
	case RecurrenceWeekly:
		raw.Time = w.Extra.WeeklyTime
	case RecurrenceMonthly:
		raw.Time = w.Extra.MonthlyTime
	case RecurrenceOneOff:
		// Fall through to the one-off handling below.
	default:
		if parsed, ok := parseRepeatRule(w.RepeatRule); ok {
			raw = parsed
		} else {
			raw.Kind = RecurrenceOneOff
		}
	}

	eff, days, _ := effectiveRecurrence(raw)

	rec := Recurrence{Kind: eff}

	switch eff {
	case RecurrenceWeekly:
		rec.WeeklyDays = days

		if ValidClockTime(raw.Time) {
			rec.Time = raw.Time
		}

	case RecurrenceMonthly:
		rec.MonthlyDay = raw.MonthlyDay

		if ValidClockTime(raw.Time) {
			rec.Time = raw.Time
		}

	case RecurrenceOneOff:
		if ValidDate(w.Date) {
			rec.Date = w.Date

			if ValidClockTime(w.Time) {
				rec.Time = w.Time
			}
		}
	}

	return rec
}

// hydrateTaskExtras fills the extension fields of a normal task with their
// hydration defaults.
func hydrateTaskExtras(w WireTask, t *Task) {
	if t.Type.Financial() && w.Extra.AmountEUR != nil && isFinite(*w.Extra.AmountEUR) {
		t.AmountEUR = *w.Extra.AmountEUR
	}

	if t.Scope == ScopePhysical || t.Scope == ScopeGrowth {
		t.Unit = strings.TrimSpace(w.Extra.Unit)

		if w.Extra.Quantity != nil && isFinite(*w.Extra.Quantity) {
			t.Quantity = *w.Extra.Quantity
		}
	}

	if w.Extra.ReminderEnabled {
		t.Reminder = Reminder{Enabled: true, OffsetMin: w.Extra.ReminderOffsetMin}
	}

	t.Label = strings.TrimSpace(w.Extra.Label)
	t.Notes = strings.TrimSpace(w.Extra.Notes)
	t.CompletedDates = trimmedNonEmpty(w.Extra.CompletedDates)
	t.AccountID = w.Extra.AccountID
	t.ForecastID = w.Extra.ForecastID
}

// effectiveRecurrence computes the effective recurrence kind from a raw
// descriptor. Weekly is only effective with a non-empty normalized day-set;
// monthly only with a day of month in [1,31]. Anything else is a one-off,
// scheduled only if it carries a valid calendar date.
func effectiveRecurrence(r Recurrence) (kind RecurrenceKind, days []string, scheduled bool) {
	days = normalizeWeekdays(r.WeeklyDays)

	switch {
	case r.Kind == RecurrenceWeekly && len(days) > 0:
		return RecurrenceWeekly, days, false

	case r.Kind == RecurrenceMonthly && r.MonthlyDay >= 1 && r.MonthlyDay <= monthlyDayMax:
		return RecurrenceMonthly, nil, false

	default:
		return RecurrenceOneOff, nil, ValidDate(r.Date)
	}
}

// monthlyDayMax is the largest accepted day-of-month.
const monthlyDayMax = 31

// normalizeWeekdays uppercases, validates, dedupes, and orders a weekday
// code set Monday-first. Unknown codes are dropped.
func normalizeWeekdays(in []string) []string {
	seen := make(map[string]bool, len(in))

	var out []string

	for _, d := range in {
		code := strings.ToUpper(strings.TrimSpace(d))
		if _, ok := weekdayCodes[code]; !ok || seen[code] {
			continue
		}

		seen[code] = true

		out = append(out, code)
	}

	sort.Slice(out, func(i, j int) bool {
		return weekdayCodes[out[i]] < weekdayCodes[out[j]]
	})

	return out
}

// buildRepeatRule assembles a recurrence rule string, e.g.
// "WEEKLY:MO,TH@09:00" or "MONTHLY:15". The time part is appended only when
// present and valid.
func buildRepeatRule(head, body, clockTime string) string {
	rule := head + ":" + body
	if clockTime != "" {
		rule += "@" + clockTime
	}

	return rule
}

// parseRepeatRule parses a recurrence rule string back into a raw
// descriptor. Returns false for anything malformed; the caller degrades to
// a one-off.
func parseRepeatRule(rule string) (Recurrence, bool) {
	head, body, ok := strings.Cut(rule, ":")
	if !ok {
		return Recurrence{}, false
	}

	body, clockTime, hasTime := strings.Cut(body, "@")
	if hasTime && !ValidClockTime(clockTime) {
		clockTime = ""
	}

	switch head {
	case "WEEKLY":
		days := normalizeWeekdays(strings.Split(body, ","))
		if len(days) == 0 {
			return Recurrence{}, false
		}

		return Recurrence{Kind: RecurrenceWeekly, WeeklyDays: days, Time: clockTime}, true

	case "MONTHLY":
		day, err := strconv.Atoi(body)
		if err != nil || day < 1 || day > monthlyDayMax {
			return Recurrence{}, false
		}

		return Recurrence{Kind: RecurrenceMonthly, MonthlyDay: day, Time: clockTime}, true

	default:
		return Recurrence{}, false
	}
}

// normalScope validates a scope for normal tasks, defaulting to work.
func normalScope(s Scope) Scope {
	if validScope(s) {
		return s
	}

	return ScopeWork
}

// isFinite reports whether f is a usable number (not NaN or ±Inf).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// trimmedNonEmpty trims every element and drops the empties, returning nil
// for an empty result so the wire field is omitted.
func trimmedNonEmpty(in []string) []string {
	var out []string

	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}

	return out
}
