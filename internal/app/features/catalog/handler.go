// internal/app/features/catalog/handler.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	catalogstore "github.com/dalemusser/tasktracker/internal/app/store/catalog"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"github.com/dalemusser/tasktracker/internal/app/system/formval"
	"github.com/dalemusser/tasktracker/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tasktracker/internal/app/system/limits"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	msgTitleRequired = "Please enter a task title."
	msgAddFailed     = "Failed to add task. Please try again."
	msgConfirmDelete = "Are you sure you want to delete this task? This action cannot be undone."
)

var msgTitleTooLong = fmt.Sprintf("Task titles are limited to %d characters.", catalogstore.MaxTitleLen)

// DefaultKeepalive is how often an idle catalog stream sends a comment.
const DefaultKeepalive = 25 * time.Second

// Handler serves catalog management and the live catalog stream.
type Handler struct {
	Log       *zap.Logger
	Catalog   *catalogstore.Store
	Hub       *catalogsync.Hub
	Keepalive time.Duration
}

func NewHandler(db *mongo.Database, hub *catalogsync.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Log:       logger,
		Catalog:   catalogstore.New(db),
		Hub:       hub,
		Keepalive: DefaultKeepalive,
	}
}

// The length limit lives in catalogstore.Create.
type titleForm struct {
	Title string `form:"title" validate:"notblank"`
}

type taskRow struct {
	ID      string
	Title   string
	Created string
}

type pageData struct {
	viewdata.BaseVM
	Tasks   []taskRow
	Title   string
	Message string
}

type confirmData struct {
	viewdata.BaseVM
	ID      string
	Task    string
	Message string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/catalog                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "", "")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, title, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, err := h.Catalog.List(ctx)
	if err != nil {
		h.Log.Error("catalog: list failed", zap.Error(err))
		tasks = nil
	}
	rows := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, taskRow{
			ID:      t.ID.Hex(),
			Title:   t.Title,
			Created: t.CreatedAt.UTC().Format("Jan 2, 2006"),
		})
	}

	templates.Render(w, r, "catalog_page", pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Task catalog"),
		Tasks:   rows,
		Title:   title,
		Message: msg,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/catalog                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := limits.ParseForm(w, r); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	f := titleForm{Title: htmlsanitize.PlainText(r.PostForm.Get("title"))}

	if p := formval.Check(f); p != nil {
		h.renderList(w, r, f.Title, msgTitleRequired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Catalog.Create(ctx, f.Title)
	if errors.Is(err, catalogstore.ErrEmptyTitle) {
		h.renderList(w, r, "", msgTitleRequired)
		return
	}
	if errors.Is(err, catalogstore.ErrTitleTooLong) {
		h.renderList(w, r, f.Title, msgTitleTooLong)
		return
	}
	if err != nil {
		h.Log.Error("catalog: create failed", zap.Error(err))
		h.renderList(w, r, f.Title, msgAddFailed)
		return
	}

	h.Log.Info("catalog task added", zap.String("id", t.ID.Hex()), zap.String("title", t.Title))
	h.Hub.Notify(context.WithoutCancel(ctx))
	http.Redirect(w, r, "/admin/catalog", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/catalog/{id}/delete (confirmation)                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	templates.Render(w, r, "catalog_delete", confirmData{
		BaseVM:  viewdata.NewBaseVM(r, "Delete task"),
		ID:      t.ID.Hex(),
		Task:    t.Title,
		Message: msgConfirmDelete,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/catalog/{id}/delete                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Catalog.Delete(ctx, id)
	if errors.Is(err, catalogstore.ErrNotFound) {
		// Already gone; the list is what the admin wanted to see.
		http.Redirect(w, r, "/admin/catalog", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.Log.Error("catalog: delete failed", zap.String("id", id.Hex()), zap.Error(err))
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}

	h.Log.Info("catalog task deleted", zap.String("id", id.Hex()))
	h.Hub.Notify(context.WithoutCancel(ctx))
	http.Redirect(w, r, "/admin/catalog", http.StatusSeeOther)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (models.AvailableTask, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return models.AvailableTask{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Catalog.Get(ctx, id)
	if errors.Is(err, catalogstore.ErrNotFound) {
		http.Redirect(w, r, "/admin/catalog", http.StatusSeeOther)
		return models.AvailableTask{}, false
	}
	if err != nil {
		h.Log.Error("catalog: load failed", zap.String("id", id.Hex()), zap.Error(err))
		http.Error(w, "load failed", http.StatusInternalServerError)
		return models.AvailableTask{}, false
	}
	return t, true
}
