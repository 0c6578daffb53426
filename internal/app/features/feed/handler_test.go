package feed_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/features/feed"
	submissionstore "github.com/dalemusser/tasktracker/internal/app/store/submissions"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func postStatus(h *feed.Handler, id, status string) *httptest.ResponseRecorder {
	req := testutil.NewFormRequest("/admin/feed/"+id+"/status", url.Values{"status": {status}}.Encode(), testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", id)
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }() // the row fragment needs booted templates
		h.HandleStatus(rec, req)
	}()
	return rec
}

func TestHandleStatus_UpdatesSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := feed.NewHandler(db, nil, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	sub := testutil.NewFixtures(t, db).CreateSubmission(ctx, "Clean Lobby", "google:user-1", "Ada", time.Now(), models.StatusPending)

	rec := postStatus(h, sub.ID.Hex(), models.StatusCompleted)
	if rec.Code >= 400 {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got, err := submissionstore.New(db).Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.TaskTitle != sub.TaskTitle || got.SubmitterUID != sub.SubmitterUID {
		t.Errorf("other fields changed: %+v", got)
	}
}

func TestHandleStatus_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := feed.NewHandler(db, time.UTC, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	sub := testutil.NewFixtures(t, db).CreateSubmission(ctx, "Clean Lobby", "google:user-1", "Ada", time.Now(), models.StatusPending)

	tests := []struct {
		name   string
		id     string
		status string
		want   int
	}{
		{"bad id", "not-an-id", models.StatusCompleted, http.StatusBadRequest},
		{"unknown status", sub.ID.Hex(), "archived", http.StatusBadRequest},
		{"blank status", sub.ID.Hex(), "", http.StatusBadRequest},
		{"missing submission", primitive.NewObjectID().Hex(), models.StatusCompleted, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postStatus(h, tt.id, tt.status); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	got, _ := submissionstore.New(db).Get(ctx, sub.ID)
	if got.Status != models.StatusPending {
		t.Errorf("rejected requests changed the status to %q", got.Status)
	}
}

func TestRedirectToFeed(t *testing.T) {
	rec := httptest.NewRecorder()
	feed.RedirectToFeed(rec, httptest.NewRequest("GET", "/admin", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/feed" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := feed.Routes(feed.NewHandler(db, nil, zap.NewNop()), testutil.NewSessionManager(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewFormRequest("/x/status", "status=completed", testutil.RegularUser()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("user: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
