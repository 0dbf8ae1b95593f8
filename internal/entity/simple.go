package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// The remaining three entity families are structurally simple instances of
// the same contract: flat records, trim-and-default canonicalization, no
// degradation rules beyond dropping empties and invalid numbers.

// Account is a bank account tracked for budgeting.
type Account struct {
	ID         string
	Name       string
	BalanceEUR float64
	Order      float64

	Deleted   bool
	CreatedAt int64
	UpdatedAt int64
}

// NewAccount returns an account with a fresh identifier.
func NewAccount(name string) *Account {
	return &Account{ID: uuid.NewString(), Name: name}
}

// EntityID implements Entity.
func (a *Account) EntityID() string { return a.ID }

// UpdatedAtMillis implements Entity.
func (a *Account) UpdatedAtMillis() int64 { return a.UpdatedAt }

// Tombstoned implements Entity.
func (a *Account) Tombstoned() bool { return a.Deleted }

// DefaultAccountName is the fallback for a blank account name.
const DefaultAccountName = "Cuenta"

// CanonicalizeAccountAt projects an account onto its wire form.
func CanonicalizeAccountAt(a *Account, now time.Time) WireAccount {
	nowMS := now.UnixMilli()

	if a.CreatedAt == 0 {
		a.CreatedAt = nowMS
	}

	a.UpdatedAt = nowMS

	w := WireAccount{
		ID:        a.ID,
		Name:      strings.TrimSpace(a.Name),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	if w.Name == "" {
		w.Name = DefaultAccountName
	}

	if isFinite(a.BalanceEUR) && a.BalanceEUR != 0 {
		w.BalanceEUR = float64Ptr(a.BalanceEUR)
	}

	if isFinite(a.Order) && a.Order != 0 {
		w.Order = float64Ptr(a.Order)
	}

	return w
}

// HydrateAccount reconstructs a fully-defaulted account.
func HydrateAccount(w WireAccount) *Account {
	a := &Account{
		ID:        w.ID,
		Name:      strings.TrimSpace(w.Name),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}

	if a.Name == "" {
		a.Name = DefaultAccountName
	}

	if w.BalanceEUR != nil && isFinite(*w.BalanceEUR) {
		a.BalanceEUR = *w.BalanceEUR
	}

	if w.Order != nil && isFinite(*w.Order) {
		a.Order = *w.Order
	}

	return a
}

// ForecastLine is a recurring monthly budget line (income or expense).
type ForecastLine struct {
	ID         string
	Name       string
	Type       TaskType // INGRESO or GASTO
	MonthlyEUR float64
	AccountID  string
	Order      float64

	Deleted   bool
	CreatedAt int64
	UpdatedAt int64
}

// NewForecastLine returns an expense forecast line with a fresh identifier.
func NewForecastLine(name string) *ForecastLine {
	return &ForecastLine{ID: uuid.NewString(), Name: name, Type: TypeExpense}
}

// EntityID implements Entity.
func (f *ForecastLine) EntityID() string { return f.ID }

// UpdatedAtMillis implements Entity.
func (f *ForecastLine) UpdatedAtMillis() int64 { return f.UpdatedAt }

// Tombstoned implements Entity.
func (f *ForecastLine) Tombstoned() bool { return f.Deleted }

// CanonicalizeForecastLineAt projects a forecast line onto its wire form.
// A line that is neither income nor expense degrades to expense.
func CanonicalizeForecastLineAt(f *ForecastLine, now time.Time) WireForecastLine {
	nowMS := now.UnixMilli()

	if f.CreatedAt == 0 {
		f.CreatedAt = nowMS
	}

	f.UpdatedAt = nowMS

	typ := f.Type
	if !typ.Financial() {
		typ = TypeExpense
	}

	w := WireForecastLine{
		ID:        f.ID,
		Name:      strings.TrimSpace(f.Name),
		Type:      string(typ),
		AccountID: f.AccountID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}

	if isFinite(f.MonthlyEUR) && f.MonthlyEUR != 0 {
		w.MonthlyEUR = float64Ptr(f.MonthlyEUR)
	}

	if isFinite(f.Order) && f.Order != 0 {
		w.Order = float64Ptr(f.Order)
	}

	return w
}

// HydrateForecastLine reconstructs a fully-defaulted forecast line.
func HydrateForecastLine(w WireForecastLine) *ForecastLine {
	f := &ForecastLine{
		ID:        w.ID,
		Name:      strings.TrimSpace(w.Name),
		AccountID: w.AccountID,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}

	if t := TaskType(w.Type); t.Financial() {
		f.Type = t
	} else {
		f.Type = TypeExpense
	}

	if w.MonthlyEUR != nil && isFinite(*w.MonthlyEUR) {
		f.MonthlyEUR = *w.MonthlyEUR
	}

	if w.Order != nil && isFinite(*w.Order) {
		f.Order = *w.Order
	}

	return f
}

// Movement is a single dated financial movement on an account.
type Movement struct {
	ID         string
	AccountID  string
	ForecastID string
	Date       string // ISO calendar date, empty when unknown
	Concept    string
	AmountEUR  float64

	Deleted   bool
	CreatedAt int64
	UpdatedAt int64
}

// NewMovement returns a movement with a fresh identifier.
func NewMovement(accountID string) *Movement {
	return &Movement{ID: uuid.NewString(), AccountID: accountID}
}

// EntityID implements Entity.
func (m *Movement) EntityID() string { return m.ID }

// UpdatedAtMillis implements Entity.
func (m *Movement) UpdatedAtMillis() int64 { return m.UpdatedAt }

// Tombstoned implements Entity.
func (m *Movement) Tombstoned() bool { return m.Deleted }

// CanonicalizeMovementAt projects a movement onto its wire form. Invalid
// dates are dropped; an invalid amount coerces to zero like task amounts.
func CanonicalizeMovementAt(m *Movement, now time.Time) WireMovement {
	nowMS := now.UnixMilli()

	if m.CreatedAt == 0 {
		m.CreatedAt = nowMS
	}

	m.UpdatedAt = nowMS

	w := WireMovement{
		ID:         m.ID,
		AccountID:  m.AccountID,
		ForecastID: m.ForecastID,
		Concept:    strings.TrimSpace(m.Concept),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	if ValidDate(m.Date) {
		w.Date = m.Date
	}

	amt := m.AmountEUR
	if !isFinite(amt) {
		amt = 0
	}

	if amt != 0 {
		w.AmountEUR = float64Ptr(amt)
	}

	return w
}

// HydrateMovement reconstructs a fully-defaulted movement.
func HydrateMovement(w WireMovement) *Movement {
	m := &Movement{
		ID:         w.ID,
		AccountID:  w.AccountID,
		ForecastID: w.ForecastID,
		Concept:    strings.TrimSpace(w.Concept),
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}

	if ValidDate(w.Date) {
		m.Date = w.Date
	}

	if w.AmountEUR != nil && isFinite(*w.AmountEUR) {
		m.AmountEUR = *w.AmountEUR
	}

	return m
}
