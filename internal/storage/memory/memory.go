package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing us to plug in a real DB later.
import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
)

// Store is an in-memory implementation of the repository+writer interfaces
// used by the services. It is guarded by an RWMutex for concurrent
// reads/writes.
type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]ledger.User
	trips      map[uuid.UUID]ledger.Trip
	categories map[uuid.UUID]ledger.Category
	expenses   map[uuid.UUID]ledger.Expense
	// Per-expense split rows, replaced as a whole set on edit.
	splits map[uuid.UUID][]ledger.Split
	// Per-trip member IDs in join order.
	membersByTrip map[uuid.UUID][]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]ledger.User),
		trips:         make(map[uuid.UUID]ledger.Trip),
		categories:    make(map[uuid.UUID]ledger.Category),
		expenses:      make(map[uuid.UUID]ledger.Expense),
		splits:        make(map[uuid.UUID][]ledger.Split),
		membersByTrip: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User) { s.mu.Lock(); s.users[u.ID] = u; s.mu.Unlock() }
func (s *Store) SeedTrip(t ledger.Trip, memberIDs []uuid.UUID) {
	s.mu.Lock()
	s.trips[t.ID] = t
	s.membersByTrip[t.ID] = append([]uuid.UUID(nil), memberIDs...)
	s.mu.Unlock()
}
func (s *Store) Reset() {
	s.mu.Lock()
	s.users = map[uuid.UUID]ledger.User{}
	s.trips = map[uuid.UUID]ledger.Trip{}
	s.categories = map[uuid.UUID]ledger.Category{}
	s.expenses = map[uuid.UUID]ledger.Expense{}
	s.splits = map[uuid.UUID][]ledger.Split{}
	s.membersByTrip = map[uuid.UUID][]uuid.UUID{}
	s.mu.Unlock()
}

// UserByID implements user.Repo.
func (s *Store) UserByID(_ context.Context, userID uuid.UUID) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return ledger.User{}, errs.ErrNotFound
	}
	return u, nil
}

// UserByHandle implements user.Repo and trip.Repo.
func (s *Store) UserByHandle(_ context.Context, handle string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Handle == handle {
			return u, nil
		}
	}
	return ledger.User{}, errs.ErrNotFound
}

// CreateUser implements user.Writer.
func (s *Store) CreateUser(_ context.Context, u ledger.User) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Handle == u.Handle {
			return ledger.User{}, errs.ErrHandleExists
		}
	}
	s.users[u.ID] = u
	return u, nil
}

// TripByID implements trip.Repo, expense.Repo and debt.Repo.
func (s *Store) TripByID(_ context.Context, tripID uuid.UUID) (ledger.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[tripID]
	if !ok {
		return ledger.Trip{}, errs.ErrNotFound
	}
	return t, nil
}

// TripsByUserID returns the trips the user belongs to, oldest first.
func (s *Store) TripsByUserID(_ context.Context, userID uuid.UUID) ([]ledger.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Trip, 0)
	for tripID, members := range s.membersByTrip {
		for _, id := range members {
			if id == userID {
				out = append(out, s.trips[tripID])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// MembersByTripID returns member users in join order.
func (s *Store) MembersByTripID(_ context.Context, tripID uuid.UUID) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.membersByTrip[tripID]
	out := make([]ledger.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// MemberIDs implements expense.Repo and debt.Repo.
func (s *Store) MemberIDs(_ context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.membersByTrip[tripID]
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out, nil
}

// IsMember implements trip.Repo and expense.Repo.
func (s *Store) IsMember(_ context.Context, tripID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.membersByTrip[tripID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// CreateTrip persists the trip, its creator membership and the starter
// categories in one step.
func (s *Store) CreateTrip(_ context.Context, t ledger.Trip, categories []ledger.Category) (ledger.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
	s.membersByTrip[t.ID] = []uuid.UUID{t.CreatedBy}
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	return t, nil
}

// AddMember implements trip.Writer.
func (s *Store) AddMember(_ context.Context, tripID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[tripID]; !ok {
		return errs.ErrNotFound
	}
	for _, id := range s.membersByTrip[tripID] {
		if id == userID {
			return errs.ErrConflict
		}
	}
	s.membersByTrip[tripID] = append(s.membersByTrip[tripID], userID)
	return nil
}

// CategoriesByTripID returns the trip's categories sorted by name.
func (s *Store) CategoriesByTripID(_ context.Context, tripID uuid.UUID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Category, 0)
	for _, c := range s.categories {
		if c.TripID == tripID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CategoryByID implements trip.Repo and expense.Repo.
func (s *Store) CategoryByID(_ context.Context, categoryID uuid.UUID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return ledger.Category{}, errs.ErrNotFound
	}
	return c, nil
}

// CreateCategory implements trip.Writer.
func (s *Store) CreateCategory(_ context.Context, c ledger.Category) (ledger.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return c, nil
}

// DeleteCategory removes the category and detaches it from any expenses that
// reference it.
func (s *Store) DeleteCategory(_ context.Context, categoryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.categories, categoryID)
	for id, e := range s.expenses {
		if e.CategoryID != nil && *e.CategoryID == categoryID {
			e.CategoryID = nil
			s.expenses[id] = e
		}
	}
	return nil
}

// CreateExpense persists the expense and its splits atomically.
func (s *Store) CreateExpense(_ context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	s.splits[e.ID] = append([]ledger.Split(nil), splits...)
	return e, nil
}

// UpdateExpense implements expense.Writer.
func (s *Store) UpdateExpense(_ context.Context, e ledger.Expense) (ledger.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return ledger.Expense{}, errs.ErrNotFound
	}
	s.expenses[e.ID] = e
	return e, nil
}

// UpdateExpenseWithSplits swaps the expense and its split set together.
func (s *Store) UpdateExpenseWithSplits(_ context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return ledger.Expense{}, errs.ErrNotFound
	}
	s.expenses[e.ID] = e
	s.splits[e.ID] = append([]ledger.Split(nil), splits...)
	return e, nil
}

// ReplaceSplits swaps the expense's split set for a new one.
func (s *Store) ReplaceSplits(_ context.Context, expenseID uuid.UUID, splits []ledger.Split) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[expenseID]; !ok {
		return errs.ErrNotFound
	}
	s.splits[expenseID] = append([]ledger.Split(nil), splits...)
	return nil
}

// DeleteExpense removes the expense and its splits.
func (s *Store) DeleteExpense(_ context.Context, expenseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[expenseID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.expenses, expenseID)
	delete(s.splits, expenseID)
	return nil
}

// ExpenseByID implements expense.Repo.
func (s *Store) ExpenseByID(_ context.Context, expenseID uuid.UUID) (ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return ledger.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

// SplitsByExpenseID returns the expense's split rows.
func (s *Store) SplitsByExpenseID(_ context.Context, expenseID uuid.UUID) ([]ledger.Split, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Split, len(s.splits[expenseID]))
	copy(out, s.splits[expenseID])
	return out, nil
}

// ExpensesByTripID returns the trip's expenses newest first, optionally
// filtered by category.
func (s *Store) ExpensesByTripID(_ context.Context, tripID uuid.UUID, categoryID *uuid.UUID) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Expense, 0)
	for _, e := range s.expenses {
		if e.TripID != tripID {
			continue
		}
		if categoryID != nil && (e.CategoryID == nil || *e.CategoryID != *categoryID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CategoryTotals aggregates expenses per category. Uncategorized spend is
// reported under a zero-ID bucket named "Uncategorized".
func (s *Store) CategoryTotals(_ context.Context, tripID uuid.UUID) ([]ledger.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[tripID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	type bucket struct {
		category ledger.Category
		count    int
		minor    int64
	}
	buckets := make(map[uuid.UUID]*bucket)
	for _, e := range s.expenses {
		if e.TripID != tripID {
			continue
		}
		var key uuid.UUID
		var cat ledger.Category
		if e.CategoryID != nil {
			if c, ok := s.categories[*e.CategoryID]; ok {
				key, cat = c.ID, c
			}
		}
		if key == uuid.Nil {
			cat = ledger.Category{TripID: tripID, Name: "Uncategorized"}
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{category: cat}
			buckets[key] = b
		}
		b.count++
		b.minor += ledger.MinorUnits(e.Amount)
	}
	out := make([]ledger.CategoryTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, ledger.CategoryTotal{
			Category: b.category,
			Count:    b.count,
			Total:    ledger.AmountFromMinor(t.Currency, b.minor),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		mi, mj := ledger.MinorUnits(out[i].Total), ledger.MinorUnits(out[j].Total)
		if mi != mj {
			return mi > mj
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out, nil
}

// ObligationsByTripID derives one gross obligation per (expense, participant)
// where the participant is not the payer.
func (s *Store) ObligationsByTripID(_ context.Context, tripID uuid.UUID) ([]ledger.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Obligation, 0)
	for id, e := range s.expenses {
		if e.TripID != tripID {
			continue
		}
		for _, sp := range s.splits[id] {
			if sp.ParticipantID == e.PayerID {
				continue
			}
			out = append(out, ledger.Obligation{
				ExpenseID: e.ID,
				PayerID:   e.PayerID,
				DebtorID:  sp.ParticipantID,
				Amount:    sp.Amount,
				Concept:   e.Concept,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpenseID != out[j].ExpenseID {
			return out[i].ExpenseID.String() < out[j].ExpenseID.String()
		}
		return out[i].DebtorID.String() < out[j].DebtorID.String()
	})
	return out, nil
}

// PaidMinorByUser sums the amounts of the trip expenses the user paid for.
func (s *Store) PaidMinorByUser(_ context.Context, tripID, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.expenses {
		if e.TripID == tripID && e.PayerID == userID {
			total += ledger.MinorUnits(e.Amount)
		}
	}
	return total, nil
}

// OwedMinorByUser sums the user's split amounts across the trip's expenses.
func (s *Store) OwedMinorByUser(_ context.Context, tripID, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for id, e := range s.expenses {
		if e.TripID != tripID {
			continue
		}
		for _, sp := range s.splits[id] {
			if sp.ParticipantID == userID {
				total += ledger.MinorUnits(sp.Amount)
			}
		}
	}
	return total, nil
}
