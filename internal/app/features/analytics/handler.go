// internal/app/features/analytics/handler.go
package analytics

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	submissionstore "github.com/dalemusser/tasktracker/internal/app/store/submissions"
	"github.com/dalemusser/tasktracker/internal/app/system/formval"
	"github.com/dalemusser/tasktracker/internal/app/system/report"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxRows caps a single analytics query when no limit is configured.
const DefaultMaxRows = 50000

// Handler serves the analytics page and CSV export.
type Handler struct {
	Log         *zap.Logger
	Submissions *submissionstore.Store
	Loc         *time.Location
	MaxRows     int
}

func NewHandler(db *mongo.Database, loc *time.Location, maxRows int, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Handler{
		Log:         logger,
		Submissions: submissionstore.New(db),
		Loc:         loc,
		MaxRows:     maxRows,
	}
}

type rangeForm struct {
	Start string `form:"start" validate:"required,datetime=2006-01-02"`
	End   string `form:"end" validate:"required,datetime=2006-01-02"`
}

type pageData struct {
	viewdata.BaseVM
	Start     string
	End       string
	Message   string
	Ran       bool
	Truncated bool
	Total     int
	Summary   []report.Count
	Rows      []report.Row
	ExportURL string
}

// ParseForm validates the start and end query values and resolves them to
// an inclusive window in loc. The returned error text is user-facing.
func ParseForm(start, end string, loc *time.Location) (report.Range, error) {
	f := rangeForm{Start: start, End: end}
	if p := formval.Check(f); p != nil {
		if p.Rule == "required" {
			return report.Range{}, report.ErrMissingDates
		}
		return report.Range{}, report.ErrBadDate
	}
	return report.ParseRange(f.Start, f.End, loc)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/analytics?start=YYYY-MM-DD&end=YYYY-MM-DD                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		BaseVM: viewdata.NewBaseVM(r, "Analytics"),
		Start:  query.Get(r, "start"),
		End:    query.Get(r, "end"),
	}

	// First visit: just the form.
	if data.Start == "" && data.End == "" && !r.URL.Query().Has("run") {
		templates.Render(w, r, "analytics_page", data)
		return
	}

	rng, err := ParseForm(data.Start, data.End, h.Loc)
	if err != nil {
		data.Message = err.Error()
		templates.Render(w, r, "analytics_page", data)
		return
	}

	subs, truncated, ok := h.query(r, rng)
	data.Ran = true
	if !ok {
		data.Message = "Could not load submissions. Please try again."
		templates.Render(w, r, "analytics_page", data)
		return
	}
	data.Truncated = truncated
	data.Total = len(subs)
	data.Summary = report.Summarize(subs)
	data.Rows = report.Rows(subs, h.Loc)
	data.ExportURL = "/admin/analytics/export.csv?" + url.Values{"start": {data.Start}, "end": {data.End}}.Encode()

	templates.Render(w, r, "analytics_page", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/analytics/export.csv                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseForm(query.Get(r, "start"), query.Get(r, "end"), h.Loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subs, _, ok := h.query(r, rng)
	if !ok {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	// Buffer so a write error can still become a 500.
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.Rows(subs, h.Loc)); err != nil {
		h.Log.Error("analytics: csv encode failed", zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.CSVFilename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Log.Warn("analytics: csv write failed", zap.Error(err))
	}
}

func (h *Handler) query(r *http.Request, rng report.Range) (subs []models.SubmittedTask, truncated bool, ok bool) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "analytics range query")
	defer cancel()

	subs, truncated, err := h.Submissions.Range(ctx, rng.From, rng.To, h.MaxRows)
	if err != nil {
		h.Log.Error("analytics: range query failed",
			zap.Time("from", rng.From),
			zap.Time("to", rng.To),
			zap.Error(err))
		return nil, false, false
	}
	if truncated {
		h.Log.Warn("analytics: row cap reached, result truncated",
			zap.Time("from", rng.From),
			zap.Time("to", rng.To),
			zap.Int("max_rows", h.MaxRows))
	}
	return subs, truncated, true
}
