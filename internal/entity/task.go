package entity

import "github.com/google/uuid"

// TaskKind discriminates section-header rows from regular tasks.
type TaskKind string

// Task kinds as carried on the wire.
const (
	TaskKindTitle  TaskKind = "TITLE"
	TaskKindNormal TaskKind = "NORMAL"
)

// TaskType classifies a task as an activity, income, or expense. The wire
// values are inherited from the original dataset and cannot change.
type TaskType string

// Task types as carried on the wire.
const (
	TypeActivity TaskType = "ACTIVIDAD"
	TypeIncome   TaskType = "INGRESO"
	TypeExpense  TaskType = "GASTO"
)

// Financial reports whether tasks of this type carry an amount.
func (t TaskType) Financial() bool {
	return t == TypeIncome || t == TypeExpense
}

// Scope is the sub-classification of activity tasks. ScopeNone is the
// sentinel carried by TITLE rows, which have no scope at all.
type Scope string

// Activity scopes.
const (
	ScopeNone     Scope = ""
	ScopeWork     Scope = "work"
	ScopePhysical Scope = "physical"
	ScopeGrowth   Scope = "growth"
)

// validScope reports whether s is one of the three concrete scopes.
func validScope(s Scope) bool {
	return s == ScopeWork || s == ScopePhysical || s == ScopeGrowth
}

// RecurrenceKind is the effective scheduling mode of a task.
type RecurrenceKind string

// Recurrence kinds as carried in the extra.recurrence wire field.
const (
	RecurrenceOneOff  RecurrenceKind = "ONE_OFF"
	RecurrenceWeekly  RecurrenceKind = "WEEKLY"
	RecurrenceMonthly RecurrenceKind = "MONTHLY"
)

// Weekday codes accepted in a weekly recurrence day-set, Monday first.
var weekdayCodes = map[string]int{
	"MO": 0, "TU": 1, "WE": 2, "TH": 3, "FR": 4, "SA": 5, "SU": 6,
}

// Recurrence describes when a task repeats. The raw descriptor may be
// invalid (weekly with no days, monthly with an out-of-range day); the
// codec degrades such descriptors to a one-off at canonicalization time and
// never persists them as-is.
type Recurrence struct {
	Kind       RecurrenceKind
	Date       string   // YYYY-MM-DD; one-off only, empty means unscheduled
	Time       string   // HH:MM, optional
	WeeklyDays []string // weekday codes, weekly only
	MonthlyDay int      // 1..31, monthly only
}

// Reminder holds the notification settings of a task. Serialized only while
// enabled so a disabled reminder leaves no residue on the wire.
type Reminder struct {
	Enabled   bool
	OffsetMin int
}

// Task is the fully-hydrated in-memory representation. Every field has an
// explicit default so two hydrated tasks compare structurally: optional
// references default to the empty string, never to an absent key.
type Task struct {
	ID       string
	GoalID   string // containing goal, optional
	ParentID string // parent task, optional; cycles are user error, defended in RecomputeLevels
	Level    int    // ancestor hops to a root; derived, never trusted from storage
	Order    float64

	Kind  TaskKind
	Type  TaskType
	Scope Scope // ScopeNone for TITLE rows

	Title  string
	Points int
	Done   bool

	Recurrence Recurrence
	Reminder   Reminder

	Label          string
	Notes          string
	Quantity       float64
	Unit           string
	AmountEUR      float64 // meaningful only for income/expense types
	AccountID      string
	ForecastID     string
	CompletedDates []string

	Deleted   bool
	CreatedAt int64 // Unix milliseconds
	UpdatedAt int64 // Unix milliseconds, the LWW logical timestamp
}

// NewTask returns a normal activity task with the hydration defaults and a
// fresh identifier.
func NewTask(title string) *Task {
	return &Task{
		ID:     uuid.NewString(),
		Kind:   TaskKindNormal,
		Type:   TypeActivity,
		Scope:  ScopeWork,
		Title:  title,
		Points: defaultTaskPoints,
		Recurrence: Recurrence{
			Kind: RecurrenceOneOff,
		},
	}
}

// EntityID implements Entity.
func (t *Task) EntityID() string { return t.ID }

// UpdatedAtMillis implements Entity.
func (t *Task) UpdatedAtMillis() int64 { return t.UpdatedAt }

// Tombstoned implements Entity.
func (t *Task) Tombstoned() bool { return t.Deleted }

// Default point values: section headers score nothing, normal tasks start
// at two.
const (
	defaultTitlePoints = 0
	defaultTaskPoints  = 2
)
