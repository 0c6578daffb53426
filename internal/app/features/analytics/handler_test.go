package analytics_test

import (
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/features/analytics"
	"github.com/dalemusser/tasktracker/internal/app/system/report"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.uber.org/zap"
)

func TestParseForm(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       error
	}{
		{"both set", "2026-03-01", "2026-03-31", nil},
		{"same day", "2026-03-01", "2026-03-01", nil},
		{"missing start", "", "2026-03-31", report.ErrMissingDates},
		{"missing end", "2026-03-01", "", report.ErrMissingDates},
		{"bad format", "03/01/2026", "2026-03-31", report.ErrBadDate},
		{"inverted", "2026-03-31", "2026-03-01", report.ErrInverted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analytics.ParseForm(tt.start, tt.end, time.UTC)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseForm_EndOfDay(t *testing.T) {
	rng, err := analytics.ParseForm("2026-03-01", "2026-03-02", time.UTC)
	if err != nil {
		t.Fatalf("ParseForm failed: %v", err)
	}
	last := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	if !rng.Contains(last) {
		t.Errorf("expected %v inside %v..%v", last, rng.From, rng.To)
	}
	if rng.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Error("next midnight should be outside the range")
	}
}

func TestServeExport_CSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := analytics.NewHandler(db, time.UTC, 0, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	fx.CreateSubmission(ctx, "Clean Lobby", "google:1", "Ada", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), models.StatusPending)
	fx.CreateSubmission(ctx, "Water Plants", "google:2", "Grace", time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC), models.StatusCompleted)
	fx.CreateSubmission(ctx, "Too Late", "google:2", "Grace", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), models.StatusPending)
	fx.CreateSubmission(ctx, "Too Early", "google:2", "Grace", time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), models.StatusPending)

	req := testutil.NewAuthenticatedRequest("GET", "/admin/analytics/export.csv?start=2026-03-01&end=2026-03-02", testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ServeExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "task_report.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	if strings.Join(records[0], ",") != "Task,SubmittedBy,Date,Status" {
		t.Errorf("header = %v", records[0])
	}
	// Newest first.
	if records[1][0] != "Water Plants" || records[1][2] != "2026-03-02 23:59:59" || records[1][3] != "completed" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][0] != "Clean Lobby" || records[2][1] != "Ada" {
		t.Errorf("second row = %v", records[2])
	}
}

func TestServeExport_InvalidRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := analytics.NewHandler(db, time.UTC, 0, zap.NewNop())

	req := testutil.NewAuthenticatedRequest("GET", "/admin/analytics/export.csv?start=2026-03-01", testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ServeExport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), report.ErrMissingDates.Error()) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestServeExport_RowCap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := analytics.NewHandler(db, time.UTC, 2, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		fx.CreateSubmission(ctx, "Task", "google:1", "Ada", base.Add(time.Duration(i)*time.Minute), models.StatusPending)
	}

	req := testutil.NewAuthenticatedRequest("GET", "/admin/analytics/export.csv?start=2026-03-01&end=2026-03-01", testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.ServeExport(rec, req)

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want header + 2", len(records))
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := analytics.NewHandler(db, time.UTC, 0, zap.NewNop())
	router := analytics.Routes(h, testutil.NewSessionManager(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/export.csv", testutil.RegularUser()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
