package trip_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/errs"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/service/trip"
	"github.com/tinoosan/tripledger/internal/storage/memory"
)

func seedUser(store *memory.Store, handle string) ledger.User {
	u := ledger.User{ID: uuid.New(), Handle: handle, Name: handle, CreatedAt: time.Now().UTC()}
	store.SeedUser(u)
	return u
}

func TestCreateSeedsDefaultCategories(t *testing.T) {
	store := memory.New()
	svc := trip.New(store, store)
	ctx := context.Background()
	ana := seedUser(store, "ana")

	tr, err := svc.Create(ctx, "Cartagena", "beach week", "COP", ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.Currency != "COP" {
		t.Fatalf("expected COP, got %q", tr.Currency)
	}

	members, err := svc.Members(ctx, tr.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].ID != ana.ID {
		t.Fatalf("expected creator as sole member, got %+v", members)
	}

	cats, err := svc.Categories(ctx, tr.ID)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 10 {
		t.Fatalf("expected 10 starter categories, got %d", len(cats))
	}
	for _, c := range cats {
		if c.Icon == "" || c.Color == "" {
			t.Fatalf("starter category missing icon/color: %+v", c)
		}
	}
}

func TestCreateRejectsBadCurrency(t *testing.T) {
	store := memory.New()
	svc := trip.New(store, store)
	ctx := context.Background()
	ana := seedUser(store, "ana")

	// Wrong length or not a known ISO code, upper or lower.
	for _, cur := range []string{"", "co", "PESO", "ZZQ", "zzq"} {
		if _, err := svc.Create(ctx, "Trip", "", cur, ana.ID); !errors.Is(err, errs.ErrInvalid) {
			t.Fatalf("currency %q: expected invalid, got %v", cur, err)
		}
	}

	// Lowercase known codes are normalized, not rejected.
	tr, err := svc.Create(ctx, "Trip", "", "cop", ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.Currency != "COP" {
		t.Fatalf("expected normalized COP, got %q", tr.Currency)
	}
}

func TestAddMemberByHandle(t *testing.T) {
	store := memory.New()
	svc := trip.New(store, store)
	ctx := context.Background()
	ana := seedUser(store, "ana")
	beto := seedUser(store, "beto")
	carla := seedUser(store, "carla")

	tr, err := svc.Create(ctx, "Cartagena", "", "COP", ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	added, err := svc.AddMemberByHandle(ctx, tr.ID, ana.ID, "beto")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if added.ID != beto.ID {
		t.Fatalf("expected beto, got %s", added.ID)
	}

	// Non-members cannot invite.
	if _, err := svc.AddMemberByHandle(ctx, tr.ID, carla.ID, "carla"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("expected not-a-member, got %v", err)
	}
	// Re-adding an existing member conflicts.
	if _, err := svc.AddMemberByHandle(ctx, tr.ID, ana.ID, "beto"); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Unknown handle.
	if _, err := svc.AddMemberByHandle(ctx, tr.ID, ana.ID, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	store := memory.New()
	svc := trip.New(store, store)
	ctx := context.Background()
	ana := seedUser(store, "ana")

	tr, err := svc.Create(ctx, "Cartagena", "", "COP", ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, tr.ID, ana.ID, "Surf", "🏄", "#0ea5e9"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	// Name comparison is case-insensitive.
	if _, err := svc.CreateCategory(ctx, tr.ID, ana.ID, "surf", "", ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// "Restaurant" is a starter category.
	if _, err := svc.CreateCategory(ctx, tr.ID, ana.ID, "restaurant", "", ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict with starter category, got %v", err)
	}
}

func TestListTripsByUser(t *testing.T) {
	store := memory.New()
	svc := trip.New(store, store)
	ctx := context.Background()
	ana := seedUser(store, "ana")
	beto := seedUser(store, "beto")

	first, err := svc.Create(ctx, "Cartagena", "", "COP", ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "Lima", "", "PEN", beto.ID); err != nil {
		t.Fatalf("create: %v", err)
	}

	trips, err := svc.List(ctx, ana.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != first.ID {
		t.Fatalf("expected only ana's trip, got %+v", trips)
	}
}
