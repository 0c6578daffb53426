package userstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	userstore "github.com/dalemusser/tasktracker/internal/app/store/users"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.uber.org/zap"
)

func TestStore_CreateIfAbsent_Creates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.CreateIfAbsent(ctx, "google:1", "ada@example.com", "Ada Lovelace", "google")
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}

	u, err := store.Get(ctx, "google:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.Role != models.RoleUser {
		t.Errorf("role = %q, want user", u.Role)
	}
	if u.NameCI != "ada lovelace" {
		t.Errorf("name_ci = %q", u.NameCI)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_CreateIfAbsent_NeverOverwrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.CreateIfAbsent(ctx, "google:1", "ada@example.com", "Ada", "google"); err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if _, err := store.SetRole(ctx, "google:1", models.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}

	created, err := store.CreateIfAbsent(ctx, "google:1", "new@example.com", "Someone Else", "google")
	if err != nil {
		t.Fatalf("second CreateIfAbsent failed: %v", err)
	}
	if created {
		t.Error("expected created=false for an existing profile")
	}

	u, _ := store.Get(ctx, "google:1")
	if u.Role != models.RoleAdmin || u.Name != "Ada" || u.Email != "ada@example.com" {
		t.Errorf("existing profile was modified: %+v", u)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Get(ctx, "google:missing"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "google:2", "Bob", "bob@example.com", models.RoleUser)

	u, err := store.SetRole(ctx, "google:2", models.RoleAdmin)
	if err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("returned role = %q, want admin", u.Role)
	}

	if _, err := store.SetRole(ctx, "google:2", "owner"); !errors.Is(err, userstore.ErrInvalidRole) {
		t.Errorf("got %v, want ErrInvalidRole", err)
	}
	if _, err := store.SetRole(ctx, "google:nobody", models.RoleUser); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_Page_ConcatenationMatchesFullOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// 23 users; two share a name so the _id tie-break is exercised.
	for i := 0; i < 22; i++ {
		fixtures.CreateUser(ctx, fmt.Sprintf("google:%02d", i), fmt.Sprintf("User %02d", i), "", models.RoleUser)
	}
	fixtures.CreateUser(ctx, "microsoft:dup", "User 05", "", models.RoleUser)

	var all []string
	after := ""
	pages := 0
	for {
		p, err := store.Page(ctx, after, paging.RosterPageSize)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		pages++
		for _, u := range p.Items {
			all = append(all, u.UID)
		}
		if !p.HasMore {
			if len(p.Items) >= paging.RosterPageSize {
				t.Errorf("HasMore false on a full page")
			}
			break
		}
		after = p.Next
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 23 {
		t.Fatalf("got %d users, want 23", len(all))
	}
	seen := map[string]bool{}
	for _, id := range all {
		if seen[id] {
			t.Errorf("duplicate %s", id)
		}
		seen[id] = true
	}
	if all[5] != "google:05" || all[6] != "microsoft:dup" {
		t.Errorf("tie-break order wrong: %v", all[4:8])
	}
}

func TestStore_Page_BadCursor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Page(ctx, "%%%", 10); !errors.Is(err, userstore.ErrBadCursor) {
		t.Errorf("got %v, want ErrBadCursor", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "google:3", "Carol", "carol@example.com", models.RoleUser)
	fixtures.CreateUser(ctx, "microsoft:boss", "", testutil.SuperAdminEmail, models.RoleUser)

	f := userstore.NewFetcher(db, testutil.NewTestPolicy(), zap.NewNop())

	tests := []struct {
		name        string
		id          auth.Identity
		wantRole    string
		wantName    string
		wantProfile bool
		wantSuper   bool
	}{
		{"stored role", auth.Identity{UID: "google:3", Email: "carol@example.com"}, "user", "Carol", true, false},
		{"super-admin override", auth.Identity{UID: "microsoft:boss", Email: testutil.SuperAdminEmail}, "admin", testutil.SuperAdminEmail, true, true},
		{"no profile", auth.Identity{UID: "google:new", Email: "new@example.com", Name: "Newbie"}, "", "Newbie", false, false},
		{"super-admin without profile", auth.Identity{UID: "microsoft:x", Email: testutil.SuperAdminEmail}, "admin", testutil.SuperAdminEmail, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			su := f.FetchUser(context.Background(), tt.id)
			if su == nil {
				t.Fatal("FetchUser returned nil")
			}
			if su.Role != tt.wantRole || su.Name != tt.wantName || su.HasProfile != tt.wantProfile || su.IsSuperAdmin != tt.wantSuper {
				t.Errorf("got %+v", su)
			}
		})
	}
}
