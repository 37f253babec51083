package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts two users and a trip with default categories for quick
// local testing. It is idempotent per run due to fresh UUIDs.
func (s *Store) SeedDev(ctx context.Context) (ledger.Trip, []ledger.User, error) {
	now := time.Now().UTC()
	ana := ledger.User{ID: uuid.New(), Handle: fmt.Sprintf("ana_%d", now.UnixNano()), Name: "Ana", PasswordHash: "!dev", CreatedAt: now}
	beto := ledger.User{ID: uuid.New(), Handle: fmt.Sprintf("beto_%d", now.UnixNano()), Name: "Beto", PasswordHash: "!dev", CreatedAt: now}
	for _, u := range []ledger.User{ana, beto} {
		if _, err := s.CreateUser(ctx, u); err != nil {
			return ledger.Trip{}, nil, err
		}
	}
	t := ledger.Trip{ID: uuid.New(), Name: "Demo Trip", Currency: "COP", CreatedBy: ana.ID, CreatedAt: now}
	if _, err := s.CreateTrip(ctx, t, nil); err != nil {
		return ledger.Trip{}, nil, err
	}
	if err := s.AddMember(ctx, t.ID, beto.ID); err != nil {
		return ledger.Trip{}, nil, err
	}
	return t, []ledger.User{ana, beto}, nil
}

// --- Users ---

// CreateUser inserts a user row. A handle collision maps to ErrHandleExists.
func (s *Store) CreateUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	_, err := s.pool.Exec(ctx, `
        insert into users (id, handle, name, email, password_hash, created_at)
        values ($1,$2,$3,$4,$5,$6)
    `, u.ID, u.Handle, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.User{}, errs.ErrHandleExists
		}
		return ledger.User{}, err
	}
	return u, nil
}

// UserByID fetches a user by id.
func (s *Store) UserByID(ctx context.Context, userID uuid.UUID) (ledger.User, error) {
	return s.userBy(ctx, `where id = $1`, userID)
}

// UserByHandle fetches a user by handle.
func (s *Store) UserByHandle(ctx context.Context, handle string) (ledger.User, error) {
	return s.userBy(ctx, `where handle = $1`, handle)
}

func (s *Store) userBy(ctx context.Context, where string, arg any) (ledger.User, error) {
	var u ledger.User
	err := s.pool.QueryRow(ctx, `
        select id, handle, name, email, password_hash, created_at
        from users `+where,
		arg).Scan(&u.ID, &u.Handle, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.User{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.User{}, err
	}
	return u, nil
}

// --- Trips and membership ---

// CreateTrip inserts the trip, the creator's membership row and the starter
// categories in a transaction.
func (s *Store) CreateTrip(ctx context.Context, t ledger.Trip, categories []ledger.Category) (ledger.Trip, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Trip{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
        insert into trips (id, name, description, currency, created_by, created_at)
        values ($1,$2,$3,$4,$5,$6)
    `, t.ID, t.Name, t.Description, strings.ToUpper(t.Currency), t.CreatedBy, t.CreatedAt); err != nil {
		return ledger.Trip{}, err
	}
	if _, err := tx.Exec(ctx, `
        insert into trip_members (trip_id, user_id, joined_at)
        values ($1,$2,$3)
    `, t.ID, t.CreatedBy, t.CreatedAt); err != nil {
		return ledger.Trip{}, err
	}
	for _, c := range categories {
		if _, err := tx.Exec(ctx, `
            insert into categories (id, trip_id, name, icon, color, created_at)
            values ($1,$2,$3,$4,$5,$6)
        `, c.ID, c.TripID, c.Name, c.Icon, c.Color, c.CreatedAt); err != nil {
			return ledger.Trip{}, fmt.Errorf("insert category: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Trip{}, err
	}
	return t, nil
}

// TripByID fetches a trip by id.
func (s *Store) TripByID(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error) {
	var t ledger.Trip
	err := s.pool.QueryRow(ctx, `
        select id, name, description, currency, created_by, created_at
        from trips
        where id = $1
    `, tripID).Scan(&t.ID, &t.Name, &t.Description, &t.Currency, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Trip{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Trip{}, err
	}
	return t, nil
}

// TripsByUserID returns the trips the user belongs to, oldest first.
func (s *Store) TripsByUserID(ctx context.Context, userID uuid.UUID) ([]ledger.Trip, error) {
	rows, err := s.pool.Query(ctx, `
        select t.id, t.name, t.description, t.currency, t.created_by, t.created_at
        from trips t
        join trip_members m on m.trip_id = t.id
        where m.user_id = $1
        order by t.created_at asc, t.id asc
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Trip, 0)
	for rows.Next() {
		var t ledger.Trip
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Currency, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MembersByTripID returns member users in join order.
func (s *Store) MembersByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.User, error) {
	rows, err := s.pool.Query(ctx, `
        select u.id, u.handle, u.name, u.email, u.password_hash, u.created_at
        from users u
        join trip_members m on m.user_id = u.id
        where m.trip_id = $1
        order by m.joined_at asc, u.id asc
    `, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.User, 0)
	for rows.Next() {
		var u ledger.User
		if err := rows.Scan(&u.ID, &u.Handle, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// MemberIDs returns member IDs in join order.
func (s *Store) MemberIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
        select user_id from trip_members
        where trip_id = $1
        order by joined_at asc, user_id asc
    `, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IsMember reports whether the user belongs to the trip.
func (s *Store) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `
        select exists(select 1 from trip_members where trip_id = $1 and user_id = $2)
    `, tripID, userID).Scan(&ok)
	return ok, err
}

// AddMember inserts a membership row. Duplicates map to ErrConflict.
func (s *Store) AddMember(ctx context.Context, tripID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        insert into trip_members (trip_id, user_id, joined_at)
        values ($1,$2,$3)
    `, tripID, userID, time.Now().UTC())
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

// --- Categories ---

// CategoriesByTripID returns the trip's categories sorted by name.
func (s *Store) CategoriesByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.Category, error) {
	rows, err := s.pool.Query(ctx, `
        select id, trip_id, name, icon, color, created_at
        from categories
        where trip_id = $1
        order by lower(name) asc, id asc
    `, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Category, 0)
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.TripID, &c.Name, &c.Icon, &c.Color, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryByID fetches a category by id.
func (s *Store) CategoryByID(ctx context.Context, categoryID uuid.UUID) (ledger.Category, error) {
	var c ledger.Category
	err := s.pool.QueryRow(ctx, `
        select id, trip_id, name, icon, color, created_at
        from categories
        where id = $1
    `, categoryID).Scan(&c.ID, &c.TripID, &c.Name, &c.Icon, &c.Color, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Category{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

// CreateCategory inserts a category row.
func (s *Store) CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
	_, err := s.pool.Exec(ctx, `
        insert into categories (id, trip_id, name, icon, color, created_at)
        values ($1,$2,$3,$4,$5,$6)
    `, c.ID, c.TripID, c.Name, c.Icon, c.Color, c.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.Category{}, errs.ErrConflict
	}
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes the category. Expenses referencing it are detached
// by the ON DELETE SET NULL constraint.
func (s *Store) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from categories where id = $1`, categoryID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Expenses and splits ---

// CreateExpense inserts the expense and its splits in a transaction.
func (s *Store) CreateExpense(ctx context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Expense{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	md, _ := e.Metadata.MarshalStableJSON()
	if _, err := tx.Exec(ctx, `
        insert into expenses (id, trip_id, payer_id, category_id, concept, amount_minor, currency, date, metadata, created_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, e.ID, e.TripID, e.PayerID, e.CategoryID, e.Concept, ledger.MinorUnits(e.Amount), e.Amount.Curr().Code(), e.Date, md, e.CreatedAt); err != nil {
		return ledger.Expense{}, err
	}
	if err := insertSplits(ctx, tx, e.ID, splits); err != nil {
		return ledger.Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Expense{}, err
	}
	return e, nil
}

// UpdateExpense updates mutable expense fields (concept, amount, date, category, metadata).
func (s *Store) UpdateExpense(ctx context.Context, e ledger.Expense) (ledger.Expense, error) {
	md, _ := e.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
        update expenses
        set concept=$1, amount_minor=$2, date=$3, category_id=$4, metadata=$5
        where id=$6
    `, e.Concept, ledger.MinorUnits(e.Amount), e.Date, e.CategoryID, md, e.ID)
	if err != nil {
		return ledger.Expense{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

// UpdateExpenseWithSplits updates the expense row and replaces its splits in
// one transaction.
func (s *Store) UpdateExpenseWithSplits(ctx context.Context, e ledger.Expense, splits []ledger.Split) (ledger.Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Expense{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	md, _ := e.Metadata.MarshalStableJSON()
	ct, err := tx.Exec(ctx, `
        update expenses
        set concept=$1, amount_minor=$2, date=$3, category_id=$4, metadata=$5
        where id=$6
    `, e.Concept, ledger.MinorUnits(e.Amount), e.Date, e.CategoryID, md, e.ID)
	if err != nil {
		return ledger.Expense{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Expense{}, errs.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `delete from expense_splits where expense_id = $1`, e.ID); err != nil {
		return ledger.Expense{}, err
	}
	if err := insertSplits(ctx, tx, e.ID, splits); err != nil {
		return ledger.Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Expense{}, err
	}
	return e, nil
}

// ReplaceSplits deletes the expense's split rows and inserts the new set in
// a transaction.
func (s *Store) ReplaceSplits(ctx context.Context, expenseID uuid.UUID, splits []ledger.Split) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from expense_splits where expense_id = $1`, expenseID); err != nil {
		return err
	}
	if err := insertSplits(ctx, tx, expenseID, splits); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteExpense removes the expense. Splits go with it via ON DELETE CASCADE.
func (s *Store) DeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from expenses where id = $1`, expenseID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ExpenseByID fetches an expense by id.
func (s *Store) ExpenseByID(ctx context.Context, expenseID uuid.UUID) (ledger.Expense, error) {
	var e ledger.Expense
	var minor int64
	var currency string
	var mdBytes []byte
	err := s.pool.QueryRow(ctx, `
        select id, trip_id, payer_id, category_id, concept, amount_minor, currency, date, metadata, created_at
        from expenses
        where id = $1
    `, expenseID).Scan(&e.ID, &e.TripID, &e.PayerID, &e.CategoryID, &e.Concept, &minor, &currency, &e.Date, &mdBytes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Expense{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Expense{}, err
	}
	e.Amount = ledger.AmountFromMinor(currency, minor)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			e.Metadata = m
		}
	}
	return e, nil
}

// SplitsByExpenseID returns the expense's split rows.
func (s *Store) SplitsByExpenseID(ctx context.Context, expenseID uuid.UUID) ([]ledger.Split, error) {
	currency, err := s.expenseCurrency(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select expense_id, participant_id, share_bp, amount_minor
        from expense_splits
        where expense_id = $1
        order by participant_id asc
    `, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Split, 0)
	for rows.Next() {
		var sp ledger.Split
		var minor int64
		if err := rows.Scan(&sp.ExpenseID, &sp.ParticipantID, &sp.ShareBP, &minor); err != nil {
			return nil, err
		}
		sp.Amount = ledger.AmountFromMinor(currency, minor)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// ExpensesByTripID returns the trip's expenses newest first, optionally
// filtered by category.
func (s *Store) ExpensesByTripID(ctx context.Context, tripID uuid.UUID, categoryID *uuid.UUID) ([]ledger.Expense, error) {
	q := `
        select id, trip_id, payer_id, category_id, concept, amount_minor, currency, date, metadata, created_at
        from expenses
        where trip_id = $1`
	args := []any{tripID}
	if categoryID != nil {
		q += ` and category_id = $2`
		args = append(args, *categoryID)
	}
	q += ` order by date desc, id asc`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Expense, 0)
	for rows.Next() {
		var e ledger.Expense
		var minor int64
		var currency string
		var mdBytes []byte
		if err := rows.Scan(&e.ID, &e.TripID, &e.PayerID, &e.CategoryID, &e.Concept, &minor, &currency, &e.Date, &mdBytes, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Amount = ledger.AmountFromMinor(currency, minor)
		if len(mdBytes) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(mdBytes); err == nil {
				e.Metadata = m
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CategoryTotals aggregates trip spend per category, largest first.
// Uncategorized expenses land in a zero-ID bucket.
func (s *Store) CategoryTotals(ctx context.Context, tripID uuid.UUID) ([]ledger.CategoryTotal, error) {
	t, err := s.TripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select coalesce(c.id, '00000000-0000-0000-0000-000000000000'::uuid),
               coalesce(c.name, 'Uncategorized'),
               coalesce(c.icon, ''), coalesce(c.color, ''),
               count(e.id), coalesce(sum(e.amount_minor), 0)
        from expenses e
        left join categories c on c.id = e.category_id
        where e.trip_id = $1
        group by 1, 2, 3, 4
        order by 6 desc, 2 asc
    `, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.CategoryTotal, 0)
	for rows.Next() {
		var ct ledger.CategoryTotal
		var minor int64
		if err := rows.Scan(&ct.Category.ID, &ct.Category.Name, &ct.Category.Icon, &ct.Category.Color, &ct.Count, &minor); err != nil {
			return nil, err
		}
		ct.Category.TripID = tripID
		ct.Total = ledger.AmountFromMinor(t.Currency, minor)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// --- Debt reads ---

// ObligationsByTripID derives one gross obligation per (expense, participant)
// where the participant is not the payer.
func (s *Store) ObligationsByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.Obligation, error) {
	t, err := s.TripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select e.id, e.payer_id, sp.participant_id, sp.amount_minor, e.concept
        from expenses e
        join expense_splits sp on sp.expense_id = e.id
        where e.trip_id = $1 and sp.participant_id <> e.payer_id
        order by e.id asc, sp.participant_id asc
    `, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Obligation, 0)
	for rows.Next() {
		var o ledger.Obligation
		var minor int64
		if err := rows.Scan(&o.ExpenseID, &o.PayerID, &o.DebtorID, &minor, &o.Concept); err != nil {
			return nil, err
		}
		o.Amount = ledger.AmountFromMinor(t.Currency, minor)
		out = append(out, o)
	}
	return out, rows.Err()
}

// PaidMinorByUser sums the amounts of the trip expenses the user paid for.
func (s *Store) PaidMinorByUser(ctx context.Context, tripID, userID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(amount_minor), 0)
        from expenses
        where trip_id = $1 and payer_id = $2
    `, tripID, userID).Scan(&total)
	return total, err
}

// OwedMinorByUser sums the user's split amounts across the trip's expenses.
func (s *Store) OwedMinorByUser(ctx context.Context, tripID, userID uuid.UUID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
        select coalesce(sum(sp.amount_minor), 0)
        from expense_splits sp
        join expenses e on e.id = sp.expense_id
        where e.trip_id = $1 and sp.participant_id = $2
    `, tripID, userID).Scan(&total)
	return total, err
}

// --- helpers ---

func (s *Store) expenseCurrency(ctx context.Context, expenseID uuid.UUID) (string, error) {
	var currency string
	err := s.pool.QueryRow(ctx, `select currency from expenses where id = $1`, expenseID).Scan(&currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.ErrNotFound
	}
	return currency, err
}

func insertSplits(ctx context.Context, tx pgx.Tx, expenseID uuid.UUID, splits []ledger.Split) error {
	for _, sp := range splits {
		if _, err := tx.Exec(ctx, `
            insert into expense_splits (expense_id, participant_id, share_bp, amount_minor)
            values ($1,$2,$3,$4)
        `, expenseID, sp.ParticipantID, sp.ShareBP, ledger.MinorUnits(sp.Amount)); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
