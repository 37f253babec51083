package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/tripledger/internal/meta"
)

// ShareTotalBP is the basis-point total a full set of splits must sum to (100%).
const ShareTotalBP int32 = 10000

// User captures a registered member identity. Identity fields are immutable
// once created; users are referenced by trips and expenses, never owned.
type User struct {
	ID           uuid.UUID
	Handle       string
	Name         string
	Email        *string
	PasswordHash string
	CreatedAt    time.Time
}

// Trip is a shared context of expenses with a monotonic member set.
// The creator is always a member. All amounts in a trip share one currency.
type Trip struct {
	ID          uuid.UUID
	Name        string
	Description string
	Currency    string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// Category labels expenses within a single trip.
type Category struct {
	ID        uuid.UUID
	TripID    uuid.UUID
	Name      string
	Icon      string
	Color     string
	CreatedAt time.Time
}

// Expense is a payment made by one member on behalf of a trip.
// Concept, amount and date are editable by any member; CategoryID is optional.
// Metadata carries attachment details (file type, path, transcript) supplied
// by the ingestion boundary.
type Expense struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	PayerID    uuid.UUID
	CategoryID *uuid.UUID
	Concept    string
	Amount     money.Amount
	Date       time.Time
	Metadata   meta.Metadata
	CreatedAt  time.Time
}

// Split assigns one participant their share of one expense: a basis-point
// share and the derived amount. The splits of an expense sum to exactly
// ShareTotalBP and to exactly the expense amount; they are replaced as a
// whole whenever the division changes, never patched row by row.
type Split struct {
	ExpenseID     uuid.UUID
	ParticipantID uuid.UUID
	ShareBP       int32
	Amount        money.Amount
}

// Obligation is a derived, unstored directed amount: for one expense, a
// participant other than the payer owes the payer their split amount.
type Obligation struct {
	ExpenseID uuid.UUID
	PayerID   uuid.UUID
	DebtorID  uuid.UUID
	Amount    money.Amount
	Concept   string
}

// ConceptAmount is one audit line inside a NetDebt: the contributing expense
// concept and its signed amount. Offsetting entries from the reverse
// direction carry a negated amount and a "(-) " concept prefix.
type ConceptAmount struct {
	Concept string
	Amount  money.Amount
}

// NetDebt is the pairwise-netted directed debt between two trip members.
// Exactly one NetDebt exists per unordered pair with a non-cancelled net.
type NetDebt struct {
	DebtorID   uuid.UUID
	CreditorID uuid.UUID
	Amount     money.Amount
	Concepts   []ConceptAmount
}

// Summary aggregates one member's gross position in a trip.
// Balance is TotalPaid minus TotalOwed; positive means the group owes them.
type Summary struct {
	UserID    uuid.UUID
	TripID    uuid.UUID
	TotalPaid money.Amount
	TotalOwed money.Amount
	Balance   money.Amount
}

// CategoryTotal is the per-category rollup of a trip's expenses.
type CategoryTotal struct {
	Category Category
	Count    int
	Total    money.Amount
}

// MinorUnits returns the amount's minor units. Amounts here are always built
// from int64 minor units, so the range error cannot fire.
func MinorUnits(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// AmountFromMinor builds an amount in the given currency from minor units.
func AmountFromMinor(currency string, units int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(currency, units)
	return a
}
