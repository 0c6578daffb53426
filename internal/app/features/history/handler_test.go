package history_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/features/history"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.uber.org/zap"
)

func TestRows(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	items := []models.SubmittedTask{
		{TaskTitle: "Clean Lobby", Status: models.StatusPending, Timestamp: time.Date(2024, 3, 1, 13, 5, 0, 0, time.UTC)},
		{TaskTitle: "Water Plants", Status: models.StatusCompleted},
	}
	rows := history.Rows(items, loc)

	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].When != "Mar 1, 2024 3:05 PM" {
		t.Errorf("When = %q", rows[0].When)
	}
	if rows[1].When != "Just now" {
		t.Errorf("missing timestamp rendered as %q", rows[1].When)
	}
	if rows[1].Title != "Water Plants" || rows[1].Status != models.StatusCompleted {
		t.Errorf("row = %+v", rows[1])
	}
}

func TestServePage_Renders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := history.NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := testutil.RegularUser()
	testutil.NewFixtures(t, db).CreateSubmission(ctx, "Clean Lobby", user.ID, user.Name, time.Now(), models.StatusPending)

	for _, target := range []string{"/tasks/history", "/tasks/history/more?after=garbage"} {
		rec := httptest.NewRecorder()
		req := testutil.NewAuthenticatedRequest("GET", target, user)
		func() {
			defer func() { _ = recover() }()
			if target == "/tasks/history" {
				h.ServePage(rec, req)
			} else {
				h.ServeMore(rec, req)
			}
		}()
		if rec.Code >= 400 {
			t.Errorf("%s: status %d", target, rec.Code)
		}
	}
}

func TestRoutes_RequireUserRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := history.NewHandler(db, time.UTC, zap.NewNop())
	router := history.Routes(h, testutil.NewSessionManager(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/more", testutil.AdminUser()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
