// internal/app/features/roster/handler.go
package roster

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/tasktracker/internal/app/store/users"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/app/system/formval"
	"github.com/dalemusser/tasktracker/internal/app/system/limits"
	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin user roster and role changes.
type Handler struct {
	Log    *zap.Logger
	Users  *userstore.Store
	Policy *authz.Policy
}

func NewHandler(db *mongo.Database, policy *authz.Policy, logger *zap.Logger) *Handler {
	return &Handler{
		Log:    logger,
		Users:  userstore.New(db),
		Policy: policy,
	}
}

// Row is one profile in the roster.
//
// Locked rows belong to super-admins and show "Admin 🔒". CanEdit is true
// only when the viewer is a super-admin and the row is not locked.
type Row struct {
	UID     string
	Name    string
	Email   string
	Role    string
	Locked  bool
	CanEdit bool
	Roles   []string
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

type roleForm struct {
	Role string `form:"role" validate:"required,oneof=user admin"`
}

var assignable = []string{models.RoleUser, models.RoleAdmin}

// BuildRow decides how a profile is shown to a viewer.
func BuildRow(p models.UserProfile, policy *authz.Policy, viewerIsSuperAdmin bool) Row {
	locked := policy.IsSuperAdmin(p.Email)
	return Row{
		UID:     p.UID,
		Name:    p.DisplayName(),
		Email:   p.Email,
		Role:    p.Role,
		Locked:  locked,
		CanEdit: viewerIsSuperAdmin && !locked,
		Roles:   assignable,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/users                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "roster_page", pageData{
		BaseVM: viewdata.NewBaseVM(r, "Users"),
		List:   h.load(r, ""),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/users/more?after=<cursor>                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMore(w http.ResponseWriter, r *http.Request) {
	templates.RenderSnippet(w, "roster_rows", h.load(r, paging.ParseAfter(r)))
}

func (h *Handler) load(r *http.Request, after string) rowsData {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.Page(ctx, after, paging.RosterPageSize)
	if err != nil {
		h.Log.Error("roster: load page failed", zap.Bool("continuation", after != ""), zap.Error(err))
		return rowsData{}
	}
	viewerSuper := authz.IsSuperAdmin(r)
	rows := make([]Row, 0, len(page.Items))
	for _, p := range page.Items {
		rows = append(rows, BuildRow(p, h.Policy, viewerSuper))
	}
	return rowsData{Rows: rows, Next: page.Next, HasMore: page.HasMore}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/users/{uid}/role                                                |
| Super-admins only; super-admin rows cannot be changed.                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	uid := chi.URLParam(r, "uid")
	if err := limits.ParseForm(w, r); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	f := roleForm{Role: r.PostForm.Get("role")}
	if p := formval.Check(f); p != nil {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	target, err := h.Users.Get(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("roster: load target failed", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	if err := h.Policy.CanChangeRole(actor.Email, *target, f.Role); err != nil {
		h.Log.Warn("roster: role change denied",
			zap.String("actor", actor.ID),
			zap.String("target", uid),
			zap.String("role", f.Role),
			zap.Error(err))
		if errors.Is(err, authz.ErrInvalidRole) {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	updated, err := h.Users.SetRole(ctx, uid, f.Role)
	if err != nil {
		h.Log.Error("roster: set role failed", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	h.Log.Info("user role changed",
		zap.String("uid", uid),
		zap.String("from", target.Role),
		zap.String("to", updated.Role),
		zap.String("by", actor.ID))

	templates.RenderSnippet(w, "roster_row", BuildRow(*updated, h.Policy, true))
}
