package home

import (
	"encoding/base64"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/app/system/viewstate"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// qrSize is the edge length of the landing-page QR codes, in pixels.
const qrSize = 192

// Handler serves the landing page, the sign-in chooser and the role
// router.
type Handler struct {
	Log *zap.Logger

	// Data URIs of QR codes pointing at the provider login routes.
	GoogleQR    template.URL
	MicrosoftQR template.URL
}

// NewHandler builds the handler. baseURL is the public origin the QR codes
// point at; without it the codes are omitted.
func NewHandler(baseURL string, logger *zap.Logger) *Handler {
	h := &Handler{Log: logger}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return h
	}
	h.GoogleQR = qrDataURI(base+"/login/google", logger)
	h.MicrosoftQR = qrDataURI(base+"/login/microsoft", logger)
	return h
}

func qrDataURI(target string, logger *zap.Logger) template.URL {
	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		logger.Warn("qr code generation failed", zap.String("target", target), zap.Error(err))
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

type landingData struct {
	viewdata.BaseVM
	GoogleQR    template.URL
	MicrosoftQR template.URL
}

type chooserData struct {
	viewdata.BaseVM
	EmployeeURL string // Microsoft
	VisitorURL  string // Google
}

type noDashboardData struct {
	viewdata.BaseVM
	Email string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – role router                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot sends signed-in users to their dashboard and shows anonymous
// visitors the landing page or, with ?step=choose, the chooser.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	switch viewstate.Resolve(r) {
	case viewstate.Authenticated:
		u, _ := auth.CurrentUser(r)
		dash := viewstate.DashboardFor(u.Role)
		if dash != viewstate.DashboardNone {
			http.Redirect(w, r, viewstate.HomePath(dash), http.StatusSeeOther)
			return
		}
		h.Log.Info("signed-in user has no dashboard",
			zap.String("uid", u.ID),
			zap.String("role", u.Role),
			zap.Bool("has_profile", u.HasProfile))
		templates.Render(w, r, "home_none", noDashboardData{
			BaseVM: viewdata.NewBaseVM(r, "No dashboard"),
			Email:  u.Email,
		})

	case viewstate.AnonymousChoosing:
		ret := urlutil.SafeReturn(query.Get(r, "return"), "", "")
		templates.Render(w, r, "home_chooser", chooserData{
			BaseVM:      viewdata.NewBaseVM(r, "Sign in"),
			EmployeeURL: loginURL("microsoft", ret),
			VisitorURL:  loginURL("google", ret),
		})

	default:
		templates.Render(w, r, "home_landing", landingData{
			BaseVM:      viewdata.NewBaseVM(r, "Welcome"),
			GoogleQR:    h.GoogleQR,
			MicrosoftQR: h.MicrosoftQR,
		})
	}
}

// loginURL is the sign-in initiator for provider, carrying ret when set.
func loginURL(provider, ret string) string {
	u := "/login/" + provider
	if ret != "" {
		u += "?return=" + url.QueryEscape(ret)
	}
	return u
}
