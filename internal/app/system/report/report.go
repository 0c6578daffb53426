// Package report builds the analytics summary and CSV export for a date
// range of submissions.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/tasktracker/internal/domain/models"
)

// DateLayout is the form format of the start and end inputs.
const DateLayout = "2006-01-02"

// Missing is shown for a submission without a timestamp.
const Missing = "N/A"

// CSVFilename is the download name of the export.
const CSVFilename = "task_report.csv"

// CSVHeader is the fixed column order of the export.
var CSVHeader = []string{"Task", "SubmittedBy", "Date", "Status"}

// Validation failures. Their text is shown to the user as is.
var (
	ErrMissingDates = errors.New("Please select both a start and end date.")
	ErrBadDate      = errors.New("Dates must be in YYYY-MM-DD format.")
	ErrInverted     = errors.New("The start date must be on or before the end date.")
)

// Range is an inclusive time window.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// ParseRange reads the start and end dates in loc. The window runs from
// the start of the first day to the last instant of the end day.
func ParseRange(start, end string, loc *time.Location) (Range, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return Range{}, ErrMissingDates
	}
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation(DateLayout, start, loc)
	if err != nil {
		return Range{}, ErrBadDate
	}
	to, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return Range{}, ErrBadDate
	}
	if to.Before(from) {
		return Range{}, ErrInverted
	}
	return Range{From: from, To: EndOfDay(to)}, nil
}

// EndOfDay returns 23:59:59.999999999 on t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Count is one line of the summary.
type Count struct {
	Title string
	Count int
}

// Summarize counts submissions per task title. The result is ordered by
// count descending, then title ascending.
func Summarize(subs []models.SubmittedTask) []Count {
	byTitle := make(map[string]int)
	for _, s := range subs {
		byTitle[s.TaskTitle]++
	}
	out := make([]Count, 0, len(byTitle))
	for title, n := range byTitle {
		out = append(out, Count{Title: title, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// Row is one flattened submission, ready for the table and the CSV.
type Row struct {
	Task        string
	SubmittedBy string
	Date        string
	Status      string
}

// Rows flattens subs, formatting timestamps in loc.
func Rows(subs []models.SubmittedTask, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Row, 0, len(subs))
	for _, s := range subs {
		out = append(out, Row{
			Task:        s.TaskTitle,
			SubmittedBy: s.SubmitterName,
			Date:        FormatTime(s.Timestamp, loc),
			Status:      s.Status,
		})
	}
	return out
}

// FormatTime renders t in loc, or Missing for the zero time.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Missing
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Task, r.SubmittedBy, r.Date, r.Status}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
