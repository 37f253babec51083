package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/service/user"
	"github.com/tinoosan/tripledger/internal/storage/memory"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	store := memory.New()
	svc := user.New(store, store)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ana Gomez", "Ana", nil, "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Handle != "ana_gomez" {
		t.Fatalf("expected slugified handle, got %q", u.Handle)
	}
	if u.PasswordHash == "hunter22" || u.PasswordHash == "" {
		t.Fatalf("password stored unhashed")
	}

	got, err := svc.Authenticate(ctx, "ana_gomez", "hunter22")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, got.ID)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	store := memory.New()
	svc := user.New(store, store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "beto", "Beto", nil, "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "beto", "wrong"); !errors.Is(err, errs.ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	// Unknown handle returns the same error to avoid account probing.
	if _, err := svc.Authenticate(ctx, "nobody", "secret1"); !errors.Is(err, errs.ErrBadCredentials) {
		t.Fatalf("expected bad credentials for unknown handle, got %v", err)
	}
}

func TestRegisterDuplicateHandle(t *testing.T) {
	store := memory.New()
	svc := user.New(store, store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carla", "Carla", nil, "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "carla", "Carla Dos", nil, "secret2"); !errors.Is(err, errs.ErrHandleExists) {
		t.Fatalf("expected handle conflict, got %v", err)
	}
}

func TestFindByHandle(t *testing.T) {
	store := memory.New()
	svc := user.New(store, store)
	ctx := context.Background()

	u, err := svc.Register(ctx, "dani", "Dani", nil, "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := svc.FindByHandle(ctx, "dani")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}
	if _, err := svc.FindByHandle(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
