// Package trip implements trip lifecycle rules: creation with the creator as
// first member and a default category set, monotonic membership (members are
// added, never removed), and per-trip category management.
package trip

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	TripByID(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error)
	TripsByUserID(ctx context.Context, userID uuid.UUID) ([]ledger.Trip, error)
	MembersByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.User, error)
	IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	UserByHandle(ctx context.Context, handle string) (ledger.User, error)
	CategoriesByTripID(ctx context.Context, tripID uuid.UUID) ([]ledger.Category, error)
	CategoryByID(ctx context.Context, categoryID uuid.UUID) (ledger.Category, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	// CreateTrip persists the trip, its creator membership and the seed
	// categories atomically.
	CreateTrip(ctx context.Context, t ledger.Trip, categories []ledger.Category) (ledger.Trip, error)
	AddMember(ctx context.Context, tripID, userID uuid.UUID) error
	CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error)
	// DeleteCategory detaches the category from its expenses and removes it.
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
}

// Service exposes trip, membership and category operations.
type Service interface {
	Create(ctx context.Context, name, description, currency string, createdBy uuid.UUID) (ledger.Trip, error)
	Get(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error)
	List(ctx context.Context, userID uuid.UUID) ([]ledger.Trip, error)
	Members(ctx context.Context, tripID uuid.UUID) ([]ledger.User, error)
	AddMemberByHandle(ctx context.Context, tripID, actorID uuid.UUID, handle string) (ledger.User, error)
	Categories(ctx context.Context, tripID uuid.UUID) ([]ledger.Category, error)
	CreateCategory(ctx context.Context, tripID, actorID uuid.UUID, name, icon, color string) (ledger.Category, error)
	DeleteCategory(ctx context.Context, categoryID, actorID uuid.UUID) error
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// defaultCategories seeds every new trip, mirroring the categories groups
// reach for most: eating out, transport, lodging and so on.
var defaultCategories = []struct {
	Name  string
	Icon  string
	Color string
}{
	{"Restaurant", "🍽️", "#ef4444"},
	{"Coffee", "☕", "#f59e0b"},
	{"Transport", "🚗", "#3b82f6"},
	{"Lodging", "🏨", "#8b5cf6"},
	{"Tickets", "🎫", "#ec4899"},
	{"Groceries", "🛒", "#10b981"},
	{"Fuel", "⛽", "#6366f1"},
	{"Entertainment", "🎉", "#f97316"},
	{"Pharmacy", "💊", "#14b8a6"},
	{"Other", "📦", "#94a3b8"},
}

func (s *service) Create(ctx context.Context, name, description, currency string, createdBy uuid.UUID) (ledger.Trip, error) {
	if createdBy == uuid.Nil {
		return ledger.Trip{}, errs.ErrInvalid
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Trip{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return ledger.Trip{}, fmt.Errorf("%w: currency must be a 3-letter code", errs.ErrInvalid)
	}
	// Reject codes money cannot represent; amounts in this currency would
	// otherwise fail at every expense create.
	if _, err := money.ParseCurr(currency); err != nil {
		return ledger.Trip{}, fmt.Errorf("%w: unknown currency %s", errs.ErrInvalid, currency)
	}
	now := time.Now().UTC()
	t := ledger.Trip{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Currency:    currency,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	cats := make([]ledger.Category, 0, len(defaultCategories))
	for _, dc := range defaultCategories {
		cats = append(cats, ledger.Category{
			ID:        uuid.New(),
			TripID:    t.ID,
			Name:      dc.Name,
			Icon:      dc.Icon,
			Color:     dc.Color,
			CreatedAt: now,
		})
	}
	return s.writer.CreateTrip(ctx, t, cats)
}

func (s *service) Get(ctx context.Context, tripID uuid.UUID) (ledger.Trip, error) {
	if tripID == uuid.Nil {
		return ledger.Trip{}, errs.ErrInvalid
	}
	return s.repo.TripByID(ctx, tripID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ledger.Trip, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.TripsByUserID(ctx, userID)
}

func (s *service) Members(ctx context.Context, tripID uuid.UUID) ([]ledger.User, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.MembersByTripID(ctx, tripID)
}

// AddMemberByHandle adds the user with the given handle to the trip. Only
// existing members may add; adding an existing member is a conflict.
func (s *service) AddMemberByHandle(ctx context.Context, tripID, actorID uuid.UUID, handle string) (ledger.User, error) {
	if tripID == uuid.Nil || actorID == uuid.Nil {
		return ledger.User{}, errs.ErrInvalid
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return ledger.User{}, err
	}
	ok, err := s.repo.IsMember(ctx, tripID, actorID)
	if err != nil {
		return ledger.User{}, err
	}
	if !ok {
		return ledger.User{}, errs.ErrNotMember
	}
	u, err := s.repo.UserByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return ledger.User{}, err
	}
	already, err := s.repo.IsMember(ctx, tripID, u.ID)
	if err != nil {
		return ledger.User{}, err
	}
	if already {
		return ledger.User{}, errs.ErrConflict
	}
	if err := s.writer.AddMember(ctx, tripID, u.ID); err != nil {
		return ledger.User{}, err
	}
	return u, nil
}

func (s *service) Categories(ctx context.Context, tripID uuid.UUID) ([]ledger.Category, error) {
	if tripID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.CategoriesByTripID(ctx, tripID)
}

func (s *service) CreateCategory(ctx context.Context, tripID, actorID uuid.UUID, name, icon, color string) (ledger.Category, error) {
	if tripID == uuid.Nil || actorID == uuid.Nil {
		return ledger.Category{}, errs.ErrInvalid
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Category{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if _, err := s.repo.TripByID(ctx, tripID); err != nil {
		return ledger.Category{}, err
	}
	ok, err := s.repo.IsMember(ctx, tripID, actorID)
	if err != nil {
		return ledger.Category{}, err
	}
	if !ok {
		return ledger.Category{}, errs.ErrNotMember
	}
	existing, err := s.repo.CategoriesByTripID(ctx, tripID)
	if err != nil {
		return ledger.Category{}, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return ledger.Category{}, errs.ErrConflict
		}
	}
	if icon == "" {
		icon = "📦"
	}
	if color == "" {
		color = "#6366f1"
	}
	c := ledger.Category{
		ID:        uuid.New(),
		TripID:    tripID,
		Name:      name,
		Icon:      icon,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	return s.writer.CreateCategory(ctx, c)
}

func (s *service) DeleteCategory(ctx context.Context, categoryID, actorID uuid.UUID) error {
	if categoryID == uuid.Nil || actorID == uuid.Nil {
		return errs.ErrInvalid
	}
	c, err := s.repo.CategoryByID(ctx, categoryID)
	if err != nil {
		return err
	}
	ok, err := s.repo.IsMember(ctx, c.TripID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotMember
	}
	return s.writer.DeleteCategory(ctx, categoryID)
}
