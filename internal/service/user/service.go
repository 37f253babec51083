// Package user implements registration and the plain credential check.
// Passwords are stored as bcrypt hashes; handles are normalized slugs and
// unique across the system.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/slug"
)

// Repo defines read operations needed by the service.
type Repo interface {
	UserByID(ctx context.Context, userID uuid.UUID) (ledger.User, error)
	UserByHandle(ctx context.Context, handle string) (ledger.User, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateUser(ctx context.Context, u ledger.User) (ledger.User, error)
}

// Service exposes user registration, lookup and authentication.
type Service interface {
	Register(ctx context.Context, handle, name string, email *string, password string) (ledger.User, error)
	Authenticate(ctx context.Context, handle, password string) (ledger.User, error)
	Get(ctx context.Context, userID uuid.UUID) (ledger.User, error)
	FindByHandle(ctx context.Context, handle string) (ledger.User, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Register(ctx context.Context, handle, name string, email *string, password string) (ledger.User, error) {
	handle = slug.Slugify(strings.TrimSpace(handle))
	if !slug.IsSlug(handle) {
		return ledger.User{}, fmt.Errorf("%w: invalid handle", errs.ErrInvalid)
	}
	if strings.TrimSpace(name) == "" {
		return ledger.User{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if password == "" {
		return ledger.User{}, fmt.Errorf("%w: password is required", errs.ErrInvalid)
	}
	if _, err := s.repo.UserByHandle(ctx, handle); err == nil {
		return ledger.User{}, errs.ErrHandleExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return ledger.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ledger.User{}, err
	}
	u := ledger.User{
		ID:           uuid.New(),
		Handle:       handle,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	return s.writer.CreateUser(ctx, u)
}

// Authenticate verifies handle+password. It returns errs.ErrBadCredentials
// for both unknown handles and wrong passwords so callers cannot probe for
// registered handles.
func (s *service) Authenticate(ctx context.Context, handle, password string) (ledger.User, error) {
	u, err := s.repo.UserByHandle(ctx, slug.Slugify(strings.TrimSpace(handle)))
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.User{}, errs.ErrBadCredentials
	}
	if err != nil {
		return ledger.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ledger.User{}, errs.ErrBadCredentials
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (ledger.User, error) {
	if userID == uuid.Nil {
		return ledger.User{}, errs.ErrInvalid
	}
	return s.repo.UserByID(ctx, userID)
}

func (s *service) FindByHandle(ctx context.Context, handle string) (ledger.User, error) {
	handle = slug.Slugify(strings.TrimSpace(handle))
	if handle == "" {
		return ledger.User{}, errs.ErrInvalid
	}
	return s.repo.UserByHandle(ctx, handle)
}
