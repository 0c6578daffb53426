// internal/app/features/submit/handler.go
package submit

import (
	"context"
	"net/http"
	"strings"

	catalogstore "github.com/dalemusser/tasktracker/internal/app/store/catalog"
	submissionstore "github.com/dalemusser/tasktracker/internal/app/store/submissions"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/formval"
	"github.com/dalemusser/tasktracker/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tasktracker/internal/app/system/limits"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result panel messages.
const (
	msgNoTask = "Please select a task before submitting."
	msgFailed = "Failed to submit task. Please try again."
)

func msgSubmitted(title string) string {
	return "Task \"" + title + "\" submitted successfully!"
}

type Handler struct {
	Log         *zap.Logger
	Catalog     *catalogstore.Store
	Submissions *submissionstore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:         logger,
		Catalog:     catalogstore.New(db),
		Submissions: submissionstore.New(db),
	}
}

type submitForm struct {
	Task string `form:"task" validate:"notblank,max=200"`
}

// resultVM is the content of the result panel.
type resultVM struct {
	Show    bool
	OK      bool
	Message string
}

type pageData struct {
	viewdata.BaseVM
	Tasks    []models.AvailableTask
	Selected string
	Result   resultVM
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /tasks                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "submit_page", h.page(r, "", resultVM{}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /tasks                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	if err := limits.ParseForm(w, r); err != nil {
		h.Log.Warn("submit: bad form", zap.Error(err))
		h.respond(w, r, "", resultVM{Show: true, Message: msgNoTask})
		return
	}
	f := submitForm{Task: htmlsanitize.PlainText(r.PostForm.Get("task"))}
	if p := formval.Check(f); p != nil || u == nil {
		h.respond(w, r, "", resultVM{Show: true, Message: msgNoTask})
		return
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = u.Email
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Submissions.Create(ctx, f.Task, u.ID, name)
	if err != nil {
		h.Log.Error("submit: create submission failed",
			zap.String("uid", u.ID),
			zap.String("task", f.Task),
			zap.Error(err))
		h.respond(w, r, f.Task, resultVM{Show: true, Message: msgFailed})
		return
	}

	h.Log.Info("task submitted",
		zap.String("uid", u.ID),
		zap.String("task", st.TaskTitle),
		zap.String("id", st.ID.Hex()))
	h.respond(w, r, f.Task, resultVM{Show: true, OK: true, Message: msgSubmitted(st.TaskTitle)})
}

// respond renders only the result panel for HTMX posts and the whole page
// otherwise.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, selected string, res resultVM) {
	if r.Header.Get("HX-Request") == "true" {
		templates.RenderSnippet(w, "submit_result", res)
		return
	}
	templates.Render(w, r, "submit_page", h.page(r, selected, res))
}

func (h *Handler) page(r *http.Request, selected string, res resultVM) pageData {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, err := h.Catalog.List(ctx)
	if err != nil {
		h.Log.Error("submit: list catalog failed", zap.Error(err))
		tasks = nil
	}
	return pageData{
		BaseVM:   viewdata.NewBaseVM(r, "Submit a task"),
		Tasks:    tasks,
		Selected: DefaultSelection(tasks, selected),
		Result:   res,
	}
}

// DefaultSelection keeps current when it is still in the catalog and falls
// back to the first entry otherwise.
func DefaultSelection(tasks []models.AvailableTask, current string) string {
	for _, t := range tasks {
		if t.Title == current {
			return current
		}
	}
	if len(tasks) > 0 {
		return tasks[0].Title
	}
	return ""
}
