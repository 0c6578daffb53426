// internal/app/features/history/handler.go
package history

import (
	"context"
	"net/http"
	"time"

	submissionstore "github.com/dalemusser/tasktracker/internal/app/store/submissions"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler shows the signed-in user's own submissions, newest first.
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

// Row is one history entry.
type Row struct {
	Title  string
	Status string
	When   string
}

// rowsData feeds the history_rows snippet: the rows plus the "Load more"
// control when another page may exist.
type rowsData struct {
	Rows    []Row
	Next    string
	HasMore bool
}

type pageData struct {
	viewdata.BaseVM
	List rowsData
}

// Rows formats submissions for display. A submission without a timestamp
// shows "Just now": it was written a moment ago and the clock has not
// been read back yet.
func Rows(items []models.SubmittedTask, loc *time.Location) []Row {
	out := make([]Row, 0, len(items))
	for _, s := range items {
		when := "Just now"
		if !s.Timestamp.IsZero() {
			when = s.Timestamp.In(loc).Format("Jan 2, 2006 3:04 PM")
		}
		out = append(out, Row{Title: s.TaskTitle, Status: s.Status, When: when})
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tasks/history                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "history_page", pageData{
		BaseVM: viewdata.NewBaseVM(r, "My submissions"),
		List:   h.load(r, ""),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tasks/history/more?after=<cursor>                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMore(w http.ResponseWriter, r *http.Request) {
	templates.RenderSnippet(w, "history_rows", h.load(r, paging.ParseAfter(r)))
}

func (h *Handler) load(r *http.Request, after string) rowsData {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return rowsData{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Submissions.HistoryPage(ctx, u.ID, after, paging.HistoryPageSize)
	if err != nil {
		h.Log.Error("history: load page failed",
			zap.String("uid", u.ID),
			zap.Bool("continuation", after != ""),
			zap.Error(err))
		return rowsData{}
	}
	return rowsData{
		Rows:    Rows(page.Items, h.Loc),
		Next:    page.Next,
		HasMore: page.HasMore,
	}
}
