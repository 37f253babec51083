// Package debt computes who owes whom in a trip. Gross obligations from each
// expense's splits are aggregated per debtor/creditor pair and opposing pairs
// are netted against each other, so every pair of members ends up with at
// most one debt between them.
package debt

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
)

// cancelThresholdMinor is the largest absolute net, in minor units, treated
// as settled. One minor unit absorbs the rounding leftover of a division.
const cancelThresholdMinor = int64(1)

// Repo defines read operations needed by the service.
type Repo interface {
	TripByID(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error)
	// ObligationsByTripID returns one row per (expense, participant) where the
	// participant is not the payer, with the participant's owed amount.
	ObligationsByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.Obligation, error)
	MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
	// PaidMinorByUser sums the amounts of the expenses the user paid for.
	PaidMinorByUser(ctx context.Context, tripID, userID uuid.UUID) (int64, error)
	// OwedMinorByUser sums the user's split amounts across all expenses.
	OwedMinorByUser(ctx context.Context, tripID, userID uuid.UUID) (int64, error)
}

// Service exposes the netted debt view and per-member balance summaries.
type Service interface {
	NetDebts(ctx context.Context, tripID uuid.UUID) ([]ledger.NetDebt, error)
	Summarize(ctx context.Context, tripID, userID uuid.UUID) (ledger.Summary, error)
	SummarizeAll(ctx context.Context, tripID uuid.UUID) ([]ledger.Summary, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) NetDebts(ctx context.Context, tripID uuid.UUID) ([]ledger.NetDebt, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	t, err := s.repo.TripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	obligations, err := s.repo.ObligationsByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return Net(t.Currency, obligations), nil
}

// pairKey orders creditor before debtor so that A-owes-B and B-owes-A land
// on distinct keys until netting.
type pairKey struct {
	creditor uuid.UUID
	debtor   uuid.UUID
}

type grossDebt struct {
	totalMinor int64
	concepts   []ledger.ConceptAmount
}

// Net reduces gross obligations to at most one debt per member pair. For each
// unordered pair the two directions are subtracted; nets within one minor
// unit are dropped as settled. The surviving debt keeps the winning side's
// concepts and carries the offset side's concepts negated with a "(-) "
// prefix, so the listed amounts still sum to the debt. Output is sorted by
// debtor then creditor and is deterministic for a given input.
func Net(currency string, obligations []ledger.Obligation) []ledger.NetDebt {
	gross := make(map[pairKey]*grossDebt)
	for _, o := range obligations {
		if o.PayerID == o.DebtorID {
			continue
		}
		amount := ledger.MinorUnits(o.Amount)
		if amount == 0 {
			continue
		}
		k := pairKey{creditor: o.PayerID, debtor: o.DebtorID}
		g, ok := gross[k]
		if !ok {
			g = &grossDebt{}
			gross[k] = g
		}
		g.totalMinor += amount
		g.concepts = append(g.concepts, ledger.ConceptAmount{Concept: o.Concept, Amount: o.Amount})
	}

	keys := make([]pairKey, 0, len(gross))
	for k := range gross {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].creditor != keys[j].creditor {
			return keys[i].creditor.String() < keys[j].creditor.String()
		}
		return keys[i].debtor.String() < keys[j].debtor.String()
	})

	visited := make(map[pairKey]bool)
	var out []ledger.NetDebt
	for _, k := range keys {
		if visited[k] {
			continue
		}
		reverse := pairKey{creditor: k.debtor, debtor: k.creditor}
		visited[k] = true
		visited[reverse] = true

		forward := gross[k]
		var backMinor int64
		back, hasBack := gross[reverse]
		if hasBack {
			backMinor = back.totalMinor
		}
		net := forward.totalMinor - backMinor
		if net >= -cancelThresholdMinor && net <= cancelThresholdMinor {
			continue
		}

		winner, loser := forward, back
		creditor, debtor := k.creditor, k.debtor
		amount := net
		if net < 0 {
			winner, loser = back, forward
			creditor, debtor = k.debtor, k.creditor
			amount = -net
		}

		concepts := make([]ledger.ConceptAmount, 0, len(winner.concepts))
		concepts = append(concepts, winner.concepts...)
		if loser != nil {
			for _, c := range loser.concepts {
				concepts = append(concepts, ledger.ConceptAmount{
					Concept: "(-) " + c.Concept,
					Amount:  ledger.AmountFromMinor(currency, -ledger.MinorUnits(c.Amount)),
				})
			}
		}
		out = append(out, ledger.NetDebt{
			DebtorID:   debtor,
			CreditorID: creditor,
			Amount:     ledger.AmountFromMinor(currency, amount),
			Concepts:   concepts,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DebtorID != out[j].DebtorID {
			return out[i].DebtorID.String() < out[j].DebtorID.String()
		}
		return out[i].CreditorID.String() < out[j].CreditorID.String()
	})
	return out
}

// Summarize reports a member's standing: total paid, total owed, and their
// difference. A positive balance means the trip owes the member money.
func (s *service) Summarize(ctx context.Context, tripID, userID uuid.UUID) (ledger.Summary, error) {
	if tripID == uuid.Nil || userID == uuid.Nil {
		return ledger.Summary{}, errs.ErrInvalid
	}
	t, err := s.repo.TripByID(ctx, tripID)
	if err != nil {
		return ledger.Summary{}, err
	}
	return s.summarize(ctx, t, userID)
}

// SummarizeAll returns one summary per trip member, in membership order.
// Balances across all members sum to zero.
func (s *service) SummarizeAll(ctx context.Context, tripID uuid.UUID) ([]ledger.Summary, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	t, err := s.repo.TripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := s.repo.MemberIDs(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Summary, 0, len(memberIDs))
	for _, id := range memberIDs {
		sum, err := s.summarize(ctx, t, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *service) summarize(ctx context.Context, t ledger.Trip, userID uuid.UUID) (ledger.Summary, error) {
	paid, err := s.repo.PaidMinorByUser(ctx, t.ID, userID)
	if err != nil {
		return ledger.Summary{}, err
	}
	owed, err := s.repo.OwedMinorByUser(ctx, t.ID, userID)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summary{
		UserID:    userID,
		TripID:    t.ID,
		TotalPaid: ledger.AmountFromMinor(t.Currency, paid),
		TotalOwed: ledger.AmountFromMinor(t.Currency, owed),
		Balance:   ledger.AmountFromMinor(t.Currency, paid-owed),
	}, nil
}
