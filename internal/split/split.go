// Package split implements the pure split calculator: turning an expense
// amount and a set of basis-point shares into per-participant amounts whose
// sum is exactly the expense amount. Shares are carried in basis points
// (10000 = 100%) so the "percentages sum to 100" invariant is an integer
// equality rather than a float comparison.
package split

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
)

// Share is one participant's basis-point portion of an expense.
type Share struct {
	ParticipantID uuid.UUID
	BP            int32
}

// Validate checks the share-set invariants: non-empty, no duplicate
// participants, every share in (0, 10000], and an exact total of 10000 bp.
func Validate(shares []Share) error {
	if len(shares) == 0 {
		return fmt.Errorf("%w: no participants", errs.ErrInvalidSplit)
	}
	seen := make(map[uuid.UUID]struct{}, len(shares))
	var total int32
	for i, sh := range shares {
		if sh.ParticipantID == uuid.Nil {
			return fmt.Errorf("%w: share[%d]: participant_id required", errs.ErrInvalidSplit, i)
		}
		if _, ok := seen[sh.ParticipantID]; ok {
			return fmt.Errorf("%w: share[%d]: duplicate participant", errs.ErrInvalidSplit, i)
		}
		seen[sh.ParticipantID] = struct{}{}
		if sh.BP <= 0 || sh.BP > ledger.ShareTotalBP {
			return fmt.Errorf("%w: share[%d]: share_bp must be in (0, %d]", errs.ErrInvalidSplit, i, ledger.ShareTotalBP)
		}
		total += sh.BP
	}
	if total != ledger.ShareTotalBP {
		return fmt.Errorf("%w: shares sum to %d bp, want %d", errs.ErrInvalidSplit, total, ledger.ShareTotalBP)
	}
	return nil
}

// Compute derives each participant's owed amount from the expense amount and
// the given shares. Amounts are floored to minor units and the lost remainder
// is assigned to the first share in caller order, so the amounts always sum
// to exactly the expense amount. The returned splits carry no ExpenseID; the
// caller attaches them to an expense.
func Compute(amount money.Amount, shares []Share) ([]ledger.Split, error) {
	total := ledger.MinorUnits(amount)
	if total <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidSplit)
	}
	if err := Validate(shares); err != nil {
		return nil, err
	}
	currency := amount.Curr().Code()
	out := make([]ledger.Split, len(shares))
	var assigned int64
	for i, sh := range shares {
		units := total * int64(sh.BP) / int64(ledger.ShareTotalBP)
		assigned += units
		out[i] = ledger.Split{
			ParticipantID: sh.ParticipantID,
			ShareBP:       sh.BP,
			Amount:        ledger.AmountFromMinor(currency, units),
		}
	}
	if rem := total - assigned; rem != 0 {
		out[0].Amount = ledger.AmountFromMinor(currency, ledger.MinorUnits(out[0].Amount)+rem)
	}
	return out, nil
}

// Equal builds the default even division over the given participants:
// floor(10000/n) bp each, with the remainder added to the first participant
// so the total is always exactly 10000.
func Equal(participantIDs []uuid.UUID) ([]Share, error) {
	n := len(participantIDs)
	if n == 0 {
		return nil, fmt.Errorf("%w: no participants", errs.ErrInvalidSplit)
	}
	base := ledger.ShareTotalBP / int32(n)
	rem := ledger.ShareTotalBP - base*int32(n)
	shares := make([]Share, n)
	for i, id := range participantIDs {
		shares[i] = Share{ParticipantID: id, BP: base}
	}
	shares[0].BP += rem
	if err := Validate(shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// ComputeEqual is the equal-division helper exposed to the presentation
// layer: an even split of amount across participantIDs.
func ComputeEqual(amount money.Amount, participantIDs []uuid.UUID) ([]ledger.Split, error) {
	shares, err := Equal(participantIDs)
	if err != nil {
		return nil, err
	}
	return Compute(amount, shares)
}
