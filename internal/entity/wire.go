package entity

// Wire structs are the sparse, schema-degraded on-disk/on-wire shapes.
// Optional fields use omitempty (pointers where the zero value is
// meaningful) so that canonicalization drops everything defaulted. The
// field set is additive-only: the remote store is shared with other client
// implementations.

// TaskExtra is the typed replacement for the original free-form extension
// bag. Each category of optional data gets its own fields; the omit-if-
// default contract survives through per-field serialization rules instead
// of ad hoc key presence checks.
type TaskExtra struct {
	Recurrence string   `json:"recurrence,omitempty"`
	WeeklyDays []string `json:"weeklyDays,omitempty"`
	WeeklyTime string   `json:"weeklyTime,omitempty"`

	MonthlyDay  int    `json:"monthlyDay,omitempty"`
	MonthlyTime string `json:"monthlyTime,omitempty"`

	// AmountEUR is a pointer because a present-but-zero amount must still
	// be serialized for income/expense tasks: omitting it would let a stale
	// remote amount resurrect on the next pull.
	AmountEUR *float64 `json:"amountEUR,omitempty"`

	Unit     string   `json:"unit,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`

	ReminderEnabled   bool `json:"reminderEnabled,omitempty"`
	ReminderOffsetMin int  `json:"reminderOffsetMin,omitempty"`

	Label          string   `json:"label,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	CompletedDates []string `json:"completedDates,omitempty"`

	AccountID  string `json:"accountId,omitempty"`
	ForecastID string `json:"forecastId,omitempty"`
}

// WireTask is the sparse wire record for the task family.
type WireTask struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Type  string `json:"type"`
	Title string `json:"title"`

	Scope    string   `json:"scope,omitempty"`
	GoalID   string   `json:"goalId,omitempty"`
	ParentID string   `json:"parentId,omitempty"`
	Order    *float64 `json:"order,omitempty"`

	// Points is a pointer so that a missing key (sparse records written by
	// other clients) is distinguishable from an explicit zero.
	Points *int `json:"points,omitempty"`

	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	RepeatRule string `json:"repeatRule,omitempty"`

	Done bool `json:"done,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	Extra TaskExtra `json:"extra"`
}

// WireGoal is the sparse wire record for the goal family.
type WireGoal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Horizon         string `json:"horizon"`
	HorizonShortcut string `json:"horizonShortcut,omitempty"`
	TargetDate      string `json:"targetDate,omitempty"`

	Order *float64 `json:"order,omitempty"`

	// IsActive is serialized only when literally false: absence on the wire
	// means active. Hydration must treat any absence as true.
	IsActive *bool `json:"isActive,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// WireAccount is the sparse wire record for bank accounts.
type WireAccount struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	BalanceEUR *float64 `json:"balanceEUR,omitempty"`
	Order      *float64 `json:"order,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
}

// WireForecastLine is the sparse wire record for budget forecast lines.
type WireForecastLine struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	MonthlyEUR *float64 `json:"monthlyEUR,omitempty"`
	AccountID  string   `json:"accountId,omitempty"`
	Order      *float64 `json:"order,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
}

// WireMovement is the sparse wire record for financial movements.
type WireMovement struct {
	ID         string   `json:"id"`
	AccountID  string   `json:"accountId,omitempty"`
	ForecastID string   `json:"forecastId,omitempty"`
	Date       string   `json:"date,omitempty"`
	Concept    string   `json:"concept,omitempty"`
	AmountEUR  *float64 `json:"amountEUR,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
}

// float64Ptr returns a pointer to v. Used for nullable wire fields.
func float64Ptr(v float64) *float64 { return &v }

// intPtr returns a pointer to v. Used for nullable wire fields.
func intPtr(v int) *int { return &v }

// boolPtr returns a pointer to v. Used for nullable wire fields.
func boolPtr(v bool) *bool { return &v }
