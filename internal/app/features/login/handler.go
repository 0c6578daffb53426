// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/tasktracker/internal/app/store/users"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tasktracker/internal/app/system/identity"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/app/system/viewstate"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// stateTTL bounds how long a user may linger on the consent screen.
const stateTTL = 10 * time.Minute

// Handler runs the OAuth2 sign-in flows for every configured provider.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	States     *oauthstate.Store
	Users      *userstore.Store
	Policy     *authz.Policy
	Providers  map[string]identity.Provider
}

// NewHandler creates the sign-in handler. Providers missing from the list
// (not configured) simply send the visitor back home.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, policy *authz.Policy, providers []identity.Provider, logger *zap.Logger) *Handler {
	byName := make(map[string]identity.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		States:     oauthstate.New(db),
		Users:      userstore.New(db),
		Policy:     policy,
		Providers:  byName,
	}
}

type popupData struct {
	viewdata.BaseVM
	OK   bool
	Dest string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login/{provider}                                                       |
| Redirects to the provider's consent screen.                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, ok := h.Providers[name]
	if !ok {
		h.Log.Warn("sign-in requested for unconfigured provider", zap.String("provider", name))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := identity.NewState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	mode := oauthstate.ModeRedirect
	if query.Get(r, "mode") == oauthstate.ModePopup {
		mode = oauthstate.ModePopup
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st := oauthstate.State{
		State:     state,
		Provider:  name,
		ReturnURL: urlutil.SafeReturn(query.Get(r, "return"), "", ""),
		Mode:      mode,
	}
	if err := h.States.Save(ctx, st, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.Log.Debug("initiating OAuth flow",
		zap.String("provider", name),
		zap.String("mode", mode),
		zap.String("return_url", st.ReturnURL))

	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/{provider}/callback                                               |
| Exchanges the code, creates the profile if absent and signs the user in.    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, ok := h.Providers[name]
	if !ok {
		h.Log.Warn("callback for unconfigured provider", zap.String("provider", name))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("OAuth provider returned an error",
			zap.String("provider", name),
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.consumeQuietly(r, name)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter", zap.String("provider", name))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, valid, err := h.States.Consume(ctx, state, name)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state", zap.String("provider", name))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter", zap.String("provider", name))
		h.fail(w, r, st)
		return
	}

	id, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.Log.Error("OAuth exchange failed", zap.String("provider", name), zap.Error(err))
		h.fail(w, r, st)
		return
	}
	id.Name = htmlsanitize.PlainText(id.Name)
	if id.Name == "" {
		id.Name = id.Email
	}

	created, err := h.Users.CreateIfAbsent(ctx, id.UID, id.Email, id.Name, id.Provider)
	if err != nil {
		h.Log.Error("failed to create profile", zap.String("uid", id.UID), zap.Error(err))
		h.fail(w, r, st)
		return
	}
	if created {
		h.Log.Info("profile created on first sign-in",
			zap.String("uid", id.UID),
			zap.String("provider", id.Provider))
	}

	if err := h.SessionMgr.SignIn(w, r, id); err != nil {
		h.Log.Error("save session failed", zap.String("uid", id.UID), zap.Error(err))
		h.fail(w, r, st)
		return
	}

	dest := urlutil.SafeReturn(st.ReturnURL, "", "")
	if dest == "" {
		dest = h.homeFor(ctx, id)
	}

	h.Log.Info("user signed in",
		zap.String("uid", id.UID),
		zap.String("provider", id.Provider),
		zap.String("dest", dest))

	if st.Mode == oauthstate.ModePopup {
		templates.Render(w, r, "login_popup", popupData{
			BaseVM: viewdata.NewBaseVM(r, "Signed in"),
			OK:     true,
			Dest:   dest,
		})
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// homeFor is the dashboard the freshly signed-in identity lands on.
func (h *Handler) homeFor(ctx context.Context, id auth.Identity) string {
	profile, err := h.Users.Get(ctx, id.UID)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		h.Log.Warn("profile lookup after sign-in failed", zap.String("uid", id.UID), zap.Error(err))
	}
	role := authz.ResolveEffectiveRole(profile, id.Email, h.Policy)
	return viewstate.HomePath(viewstate.DashboardFor(role))
}

// fail ends a flow whose state was valid. Popups report back to the opener;
// redirects go home.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, st oauthstate.State) {
	if st.Mode == oauthstate.ModePopup {
		templates.Render(w, r, "login_popup", popupData{
			BaseVM: viewdata.NewBaseVM(r, "Sign-in failed"),
			Dest:   "/",
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// consumeQuietly drops the pending state of a flow the user abandoned.
func (h *Handler) consumeQuietly(r *http.Request, provider string) {
	state := query.Get(r, "state")
	if state == "" {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if _, _, err := h.States.Consume(ctx, state, provider); err != nil {
		h.Log.Debug("failed to drop abandoned OAuth state", zap.Error(err))
	}
}
