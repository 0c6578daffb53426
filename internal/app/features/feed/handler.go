// internal/app/features/feed/handler.go
package feed

import (
	"context"
	"errors"
	"net/http"
	"time"

	submissionstore "github.com/dalemusser/tasktracker/internal/app/store/submissions"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/formval"
	"github.com/dalemusser/tasktracker/internal/app/system/limits"
	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/app/system/report"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin submissions feed.
type Handler struct {
	Log         *zap.Logger
	Submissions *submissionstore.Store
	Loc         *time.Location
}

func NewHandler(db *mongo.Database, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Log:         logger,
		Submissions: submissionstore.New(db),
		Loc:         loc,
	}
}

// Row is one submission in the feed.
type Row struct {
	ID          string
	Title       string
	SubmittedBy string
	When        string
	Status      string
	Statuses    []string
}

type rowsData struct {
	Rows    []Row
	Next    string
	HasMore bool
}

type pageData struct {
	viewdata.BaseVM
	List rowsData
}

type statusForm struct {
	Status string `form:"status" validate:"required,oneof=pending in-progress completed"`
}

func (h *Handler) row(s models.SubmittedTask) Row {
	return Row{
		ID:          s.ID.Hex(),
		Title:       s.TaskTitle,
		SubmittedBy: s.SubmitterName,
		When:        report.FormatTime(s.Timestamp, h.Loc),
		Status:      s.Status,
		Statuses:    models.Statuses,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/feed                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "feed_page", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Submissions"),
		List:   h.load(r, ""),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/feed/more?after=<cursor>                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMore(w http.ResponseWriter, r *http.Request) {
	templates.RenderSnippet(w, "feed_rows", h.load(r, paging.ParseAfter(r)))
}

func (h *Handler) load(r *http.Request, after string) rowsData {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Submissions.FeedPage(ctx, after, paging.FeedPageSize)
	if err != nil {
		h.Log.Error("feed: load page failed", zap.Bool("continuation", after != ""), zap.Error(err))
		return rowsData{}
	}
	rows := make([]Row, 0, len(page.Items))
	for _, s := range page.Items {
		rows = append(rows, h.row(s))
	}
	return rowsData{Rows: rows, Next: page.Next, HasMore: page.HasMore}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/feed/{id}/status                                                |
| Returns the updated row so the page reflects the change at once.            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad submission id", http.StatusBadRequest)
		return
	}
	if err := limits.ParseForm(w, r); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	f := statusForm{Status: r.PostForm.Get("status")}
	if p := formval.Check(f); p != nil {
		h.Log.Warn("feed: rejected status", zap.String("status", f.Status), zap.String("rule", p.Rule))
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Submissions.SetStatus(ctx, id, f.Status)
	switch {
	case errors.Is(err, submissionstore.ErrNotFound):
		http.Error(w, "submission not found", http.StatusNotFound)
		return
	case err != nil:
		h.Log.Error("feed: set status failed", zap.String("id", id.Hex()), zap.Error(err))
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	actor := ""
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.ID
	}
	h.Log.Info("submission status changed",
		zap.String("id", id.Hex()),
		zap.String("status", updated.Status),
		zap.String("by", actor))

	templates.RenderSnippet(w, "feed_row", h.row(updated))
}

// RedirectToFeed handles GET /admin.
func RedirectToFeed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/feed", http.StatusSeeOther)
}
