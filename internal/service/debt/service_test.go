package debt

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ledger"
)

func obligation(payer, debtor uuid.UUID, concept string, minor int64) ledger.Obligation {
	return ledger.Obligation{
		ExpenseID: uuid.New(),
		PayerID:   payer,
		DebtorID:  debtor,
		Amount:    ledger.AmountFromMinor("COP", minor),
		Concept:   concept,
	}
}

func TestNetTwoMembers(t *testing.T) {
	ana := uuid.New()
	beto := uuid.New()

	// Ana fronts 100000 split 50/50, Beto fronts 40000 split 50/50.
	obs := []ledger.Obligation{
		obligation(ana, beto, "hotel", 50000),
		obligation(beto, ana, "gas", 20000),
	}
	debts := Net("COP", obs)
	if len(debts) != 1 {
		t.Fatalf("expected 1 net debt, got %d", len(debts))
	}
	d := debts[0]
	if d.DebtorID != beto || d.CreditorID != ana {
		t.Fatalf("expected beto -> ana, got %s -> %s", d.DebtorID, d.CreditorID)
	}
	if got := ledger.MinorUnits(d.Amount); got != 30000 {
		t.Fatalf("expected net 30000, got %d", got)
	}
	if len(d.Concepts) != 2 {
		t.Fatalf("expected 2 concepts, got %d", len(d.Concepts))
	}
	if d.Concepts[0].Concept != "hotel" || ledger.MinorUnits(d.Concepts[0].Amount) != 50000 {
		t.Fatalf("unexpected winner concept: %+v", d.Concepts[0])
	}
	if d.Concepts[1].Concept != "(-) gas" || ledger.MinorUnits(d.Concepts[1].Amount) != -20000 {
		t.Fatalf("unexpected offset concept: %+v", d.Concepts[1])
	}
	var sum int64
	for _, c := range d.Concepts {
		sum += ledger.MinorUnits(c.Amount)
	}
	if sum != ledger.MinorUnits(d.Amount) {
		t.Fatalf("concepts sum %d, debt is %d", sum, ledger.MinorUnits(d.Amount))
	}
}

func TestNetExactCancellation(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	obs := []ledger.Obligation{
		obligation(a, b, "dinner", 25000),
		obligation(b, a, "lunch", 25000),
	}
	if debts := Net("COP", obs); len(debts) != 0 {
		t.Fatalf("expected no debts, got %+v", debts)
	}
}

func TestNetWithinOneMinorUnitIsSettled(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	obs := []ledger.Obligation{
		obligation(a, b, "dinner", 25001),
		obligation(b, a, "lunch", 25000),
	}
	if debts := Net("COP", obs); len(debts) != 0 {
		t.Fatalf("expected rounding leftover settled, got %+v", debts)
	}
}

func TestNetSkipsSelfObligations(t *testing.T) {
	a := uuid.New()
	obs := []ledger.Obligation{obligation(a, a, "solo", 10000)}
	if debts := Net("COP", obs); len(debts) != 0 {
		t.Fatalf("expected no self debt, got %+v", debts)
	}
}

func TestNetAggregatesPerPair(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	obs := []ledger.Obligation{
		obligation(a, b, "hotel", 30000),
		obligation(a, b, "taxi", 5000),
		obligation(a, c, "hotel", 30000),
	}
	debts := Net("COP", obs)
	if len(debts) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(debts))
	}
	for _, d := range debts {
		if d.CreditorID != a {
			t.Fatalf("expected all debts owed to payer, got creditor %s", d.CreditorID)
		}
		switch d.DebtorID {
		case b:
			if got := ledger.MinorUnits(d.Amount); got != 35000 {
				t.Fatalf("expected b to owe 35000, got %d", got)
			}
			if len(d.Concepts) != 2 {
				t.Fatalf("expected both concepts kept, got %d", len(d.Concepts))
			}
		case c:
			if got := ledger.MinorUnits(d.Amount); got != 30000 {
				t.Fatalf("expected c to owe 30000, got %d", got)
			}
		default:
			t.Fatalf("unexpected debtor %s", d.DebtorID)
		}
	}
}

func TestNetIsDeterministic(t *testing.T) {
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = uuid.New()
	}
	var obs []ledger.Obligation
	for i, payer := range ids {
		for j, debtor := range ids {
			if i == j {
				continue
			}
			obs = append(obs, obligation(payer, debtor, "shared", int64(1000*(i+1)+100*j)))
		}
	}
	first := Net("COP", obs)
	for n := 0; n < 5; n++ {
		again := Net("COP", obs)
		if len(again) != len(first) {
			t.Fatalf("length varies: %d vs %d", len(again), len(first))
		}
		for i := range first {
			if again[i].DebtorID != first[i].DebtorID || again[i].CreditorID != first[i].CreditorID {
				t.Fatalf("pair order varies at %d", i)
			}
			if ledger.MinorUnits(again[i].Amount) != ledger.MinorUnits(first[i].Amount) {
				t.Fatalf("amount varies at %d", i)
			}
		}
	}
}

type stubRepo struct {
	trip    ledger.Trip
	members []uuid.UUID
	paid    map[uuid.UUID]int64
	owed    map[uuid.UUID]int64
}

func (r *stubRepo) TripByID(_ context.Context, _ uuid.UUID) (ledger.Trip, error) {
	return r.trip, nil
}

func (r *stubRepo) ObligationsByTripID(_ context.Context, _ uuid.UUID) ([]ledger.Obligation, error) {
	return nil, nil
}

func (r *stubRepo) MemberIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return r.members, nil
}

func (r *stubRepo) PaidMinorByUser(_ context.Context, _, userID uuid.UUID) (int64, error) {
	return r.paid[userID], nil
}

func (r *stubRepo) OwedMinorByUser(_ context.Context, _, userID uuid.UUID) (int64, error) {
	return r.owed[userID], nil
}

func TestSummarizeAllBalancesSumToZero(t *testing.T) {
	ana := uuid.New()
	beto := uuid.New()
	repo := &stubRepo{
		trip:    ledger.Trip{ID: uuid.New(), Currency: "COP"},
		members: []uuid.UUID{ana, beto},
		paid:    map[uuid.UUID]int64{ana: 100000, beto: 40000},
		owed:    map[uuid.UUID]int64{ana: 70000, beto: 70000},
	}
	svc := New(repo)

	sums, err := svc.SummarizeAll(context.Background(), repo.trip.ID)
	if err != nil {
		t.Fatalf("SummarizeAll: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	if got := ledger.MinorUnits(sums[0].Balance); got != 30000 {
		t.Fatalf("expected ana balance 30000, got %d", got)
	}
	if got := ledger.MinorUnits(sums[1].Balance); got != -30000 {
		t.Fatalf("expected beto balance -30000, got %d", got)
	}
	var total int64
	for _, s := range sums {
		total += ledger.MinorUnits(s.Balance)
	}
	if total != 0 {
		t.Fatalf("balances sum to %d, want 0", total)
	}
}

func TestSummarizeSingleMember(t *testing.T) {
	ana := uuid.New()
	repo := &stubRepo{
		trip: ledger.Trip{ID: uuid.New(), Currency: "COP"},
		paid: map[uuid.UUID]int64{ana: 52000},
		owed: map[uuid.UUID]int64{ana: 31000},
	}
	svc := New(repo)

	sum, err := svc.Summarize(context.Background(), repo.trip.ID, ana)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got := ledger.MinorUnits(sum.TotalPaid); got != 52000 {
		t.Fatalf("paid: got %d", got)
	}
	if got := ledger.MinorUnits(sum.TotalOwed); got != 31000 {
		t.Fatalf("owed: got %d", got)
	}
	if got := ledger.MinorUnits(sum.Balance); got != 21000 {
		t.Fatalf("balance: got %d", got)
	}
}
