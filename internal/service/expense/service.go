// Package expense implements expense lifecycle rules: creation with an
// explicit or default equal division, edits to concept/amount/date, whole
// split replacement, and deletion. Whenever the amount or the division
// changes, the split rows are recomputed and replaced as a set so that the
// shares always sum to 100% and the amounts to the expense amount.
package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/meta"
	"github.com/tinoosan/tripledger/internal/split"
)

// Repo defines read operations needed by the service.
type Repo interface {
	TripByID(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error)
	IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
	CategoryByID(ctx context.Context, categoryID uuid.UUID) (ledger.Category, error)
	ExpenseByID(ctx context.Context, expenseID uuid.UUID) (ledger.Expense, error)
	SplitsByExpenseID(ctx context.Context, expenseID uuid.UUID) ([]ledger.Split, error)
	// ExpensesByTripID returns the trip's expenses date-descending, optionally
	// filtered by category.
	ExpensesByTripID(ctx context.Context, tripID uuid.UUID, categoryID *uuid.UUID) ([]ledger.Expense, error)
	CategoryTotals(ctx context.Context, tripID uuid.UUID) ([]ledger.CategoryTotal, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	// CreateExpense persists the expense and its splits atomically.
	CreateExpense(ctx context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error)
	UpdateExpense(ctx context.Context, e ledger.Expense) (ledger.Expense, error)
	// UpdateExpenseWithSplits persists the edited expense and its recomputed
	// splits in one transaction, so the splits always sum to the stored amount.
	UpdateExpenseWithSplits(ctx context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error)
	// ReplaceSplits deletes the expense's split rows and inserts the new set
	// in one transaction. Splits are never patched row by row.
	ReplaceSplits(ctx context.Context, expenseID uuid.UUID, splits []ledger.Split) error
	// DeleteExpense removes the expense and cascades to its splits.
	DeleteExpense(ctx context.Context, expenseID uuid.UUID) error
}

// CreateInput carries a new expense. Shares may be nil, in which case the
// amount is divided equally across all current trip members.
type CreateInput struct {
	TripID      uuid.UUID
	PayerID     uuid.UUID
	CategoryID  *uuid.UUID
	Concept     string
	AmountMinor int64
	Date        time.Time
	Metadata    meta.Metadata
	Shares      []split.Share
}

// UpdateInput carries an edit to concept, amount and/or date. Nil fields are
// left unchanged. Any trip member may edit any expense.
type UpdateInput struct {
	ExpenseID   uuid.UUID
	ActorID     uuid.UUID
	Concept     *string
	AmountMinor *int64
	Date        *time.Time
}

// Service exposes expense operations.
type Service interface {
	Create(ctx context.Context, in CreateInput) (ledger.Expense, []ledger.Split, error)
	Get(ctx context.Context, expenseID uuid.UUID) (ledger.Expense, []ledger.Split, error)
	List(ctx context.Context, tripID uuid.UUID, categoryID *uuid.UUID) ([]ledger.Expense, error)
	Update(ctx context.Context, in UpdateInput) (ledger.Expense, error)
	ReplaceShares(ctx context.Context, expenseID, actorID uuid.UUID, shares []split.Share) ([]ledger.Split, error)
	Delete(ctx context.Context, expenseID, actorID uuid.UUID) error
	CategoryTotals(ctx context.Context, tripID uuid.UUID) ([]ledger.CategoryTotal, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Create(ctx context.Context, in CreateInput) (ledger.Expense, []ledger.Split, error) {
	if in.TripID == uuid.Nil || in.PayerID == uuid.Nil {
		return ledger.Expense{}, nil, errs.ErrInvalid
	}
	in.Concept = strings.TrimSpace(in.Concept)
	if in.Concept == "" {
		return ledger.Expense{}, nil, fmt.Errorf("%w: concept is required", errs.ErrInvalid)
	}
	if in.AmountMinor <= 0 {
		return ledger.Expense{}, nil, errs.ErrInvalidSplit
	}
	t, err := s.repo.TripByID(ctx, in.TripID)
	if err != nil {
		return ledger.Expense{}, nil, err
	}
	ok, err := s.repo.IsMember(ctx, in.TripID, in.PayerID)
	if err != nil {
		return ledger.Expense{}, nil, err
	}
	if !ok {
		return ledger.Expense{}, nil, errs.ErrNotMember
	}
	if in.CategoryID != nil {
		c, err := s.repo.CategoryByID(ctx, *in.CategoryID)
		if err != nil {
			return ledger.Expense{}, nil, err
		}
		if c.TripID != in.TripID {
			return ledger.Expense{}, nil, errs.ErrForbidden
		}
	}
	if err := in.Metadata.Validate(); err != nil {
		return ledger.Expense{}, nil, fmt.Errorf("%w: %v", errs.ErrInvalid, err)
	}

	amount := ledger.AmountFromMinor(t.Currency, in.AmountMinor)
	shares := in.Shares
	if shares == nil {
		memberIDs, err := s.repo.MemberIDs(ctx, in.TripID)
		if err != nil {
			return ledger.Expense{}, nil, err
		}
		shares, err = split.Equal(memberIDs)
		if err != nil {
			return ledger.Expense{}, nil, err
		}
	}
	if err := s.checkParticipants(ctx, in.TripID, shares); err != nil {
		return ledger.Expense{}, nil, err
	}
	splits, err := split.Compute(amount, shares)
	if err != nil {
		return ledger.Expense{}, nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	e := ledger.Expense{
		ID:         uuid.New(),
		TripID:     in.TripID,
		PayerID:    in.PayerID,
		CategoryID: in.CategoryID,
		Concept:    in.Concept,
		Amount:     amount,
		Date:       date,
		Metadata:   in.Metadata.Clone(),
		CreatedAt:  time.Now().UTC(),
	}
	for i := range splits {
		splits[i].ExpenseID = e.ID
	}
	saved, err := s.writer.CreateExpense(ctx, e, splits)
	if err != nil {
		return ledger.Expense{}, nil, err
	}
	return saved, splits, nil
}

func (s *service) Get(ctx context.Context, expenseID uuid.UUID) (ledger.Expense, []ledger.Split, error) {
	if expenseID == uuid.Nil {
		return ledger.Expense{}, nil, errs.ErrInvalid
	}
	e, err := s.repo.ExpenseByID(ctx, expenseID)
	if err != nil {
		return ledger.Expense{}, nil, err
	}
	splits, err := s.repo.SplitsByExpenseID(ctx, expenseID)
	if err != nil {
		return ledger.Expense{}, nil, err
	}
	return e, splits, nil
}

func (s *service) List(ctx context.Context, tripID uuid.UUID, categoryID *uuid.UUID) ([]ledger.Expense, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ExpensesByTripID(ctx, tripID, categoryID)
}

// Update edits concept, amount and/or date. When the amount changes, the
// split amounts are recomputed from the stored shares and replaced, keeping
// the sum invariant intact. Concurrent edits are last-writer-wins.
func (s *service) Update(ctx context.Context, in UpdateInput) (ledger.Expense, error) {
	if in.ExpenseID == uuid.Nil || in.ActorID == uuid.Nil {
		return ledger.Expense{}, errs.ErrInvalid
	}
	e, err := s.repo.ExpenseByID(ctx, in.ExpenseID)
	if err != nil {
		return ledger.Expense{}, err
	}
	if err := s.requireMember(ctx, e.TripID, in.ActorID); err != nil {
		return ledger.Expense{}, err
	}
	if in.Concept != nil {
		concept := strings.TrimSpace(*in.Concept)
		if concept == "" {
			return ledger.Expense{}, fmt.Errorf("%w: concept is required", errs.ErrInvalid)
		}
		e.Concept = concept
	}
	if in.Date != nil {
		e.Date = in.Date.UTC()
	}
	amountChanged := false
	if in.AmountMinor != nil && *in.AmountMinor != ledger.MinorUnits(e.Amount) {
		if *in.AmountMinor <= 0 {
			return ledger.Expense{}, errs.ErrInvalidSplit
		}
		e.Amount = ledger.AmountFromMinor(e.Amount.Curr().Code(), *in.AmountMinor)
		amountChanged = true
	}
	if !amountChanged {
		return s.writer.UpdateExpense(ctx, e)
	}
	old, err := s.repo.SplitsByExpenseID(ctx, in.ExpenseID)
	if err != nil {
		return ledger.Expense{}, err
	}
	shares := make([]split.Share, 0, len(old))
	for _, sp := range old {
		shares = append(shares, split.Share{ParticipantID: sp.ParticipantID, BP: sp.ShareBP})
	}
	splits, err := split.Compute(e.Amount, shares)
	if err != nil {
		return ledger.Expense{}, err
	}
	for i := range splits {
		splits[i].ExpenseID = e.ID
	}
	return s.writer.UpdateExpenseWithSplits(ctx, e, splits)
}

// ReplaceShares swaps the expense's division for a new one. The whole split
// set is deleted and recreated in one store transaction.
func (s *service) ReplaceShares(ctx context.Context, expenseID, actorID uuid.UUID, shares []split.Share) ([]ledger.Split, error) {
	if expenseID == uuid.Nil || actorID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	e, err := s.repo.ExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, e.TripID, actorID); err != nil {
		return nil, err
	}
	if err := s.checkParticipants(ctx, e.TripID, shares); err != nil {
		return nil, err
	}
	splits, err := split.Compute(e.Amount, shares)
	if err != nil {
		return nil, err
	}
	for i := range splits {
		splits[i].ExpenseID = expenseID
	}
	if err := s.writer.ReplaceSplits(ctx, expenseID, splits); err != nil {
		return nil, err
	}
	return splits, nil
}

func (s *service) Delete(ctx context.Context, expenseID, actorID uuid.UUID) error {
	if expenseID == uuid.Nil || actorID == uuid.Nil {
		return errs.ErrInvalid
	}
	e, err := s.repo.ExpenseByID(ctx, expenseID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, e.TripID, actorID); err != nil {
		return err
	}
	return s.writer.DeleteExpense(ctx, expenseID)
}

func (s *service) CategoryTotals(ctx context.Context, tripID uuid.UUID) ([]ledger.CategoryTotal, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.CategoryTotals(ctx, tripID)
}

func (s *service) requireMember(ctx context.Context, tripID, userID uuid.UUID) error {
	ok, err := s.repo.IsMember(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotMember
	}
	return nil
}

// checkParticipants ensures every share participant belongs to the trip.
func (s *service) checkParticipants(ctx context.Context, tripID uuid.UUID, shares []split.Share) error {
	for _, sh := range shares {
		ok, err := s.repo.IsMember(ctx, tripID, sh.ParticipantID)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrNotMember
		}
	}
	return nil
}
