package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/export"
)

// Exporter renders status records as a spreadsheet.
type Exporter interface {
	StatusXLSX(ctx context.Context, filter export.Filter) ([]byte, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportJobs serves GET /v1/exports/jobs.xlsx?from=&to=&type=&state=.
// Dates are YYYY-MM-DD; only from means from..today.
func (h *JobsHandler) exportJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseExportFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	xlsx, err := h.exporter.StatusXLSX(r.Context(), filter)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "err", err)
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="jobs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func parseExportFilter(r *http.Request) (export.Filter, error) {
	q := r.URL.Query()
	var f export.Filter

	parseDate := func(name string) (*time.Time, error) {
		s := strings.TrimSpace(q.Get(name))
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, common.Validationf("%s must be YYYY-MM-DD", name)
		}
		return &t, nil
	}

	var err error
	if f.From, err = parseDate("from"); err != nil {
		return f, err
	}
	if f.To, err = parseDate("to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To == nil {
		today := time.Now().UTC()
		f.To = &today
	}

	if s := strings.TrimSpace(q.Get("type")); s != "" {
		t, ok := constants.ParseJobType(s)
		if !ok {
			return f, common.Validationf("unknown job type %q", s)
		}
		f.Type = t
	}
	if s := strings.ToUpper(strings.TrimSpace(q.Get("state"))); s != "" {
		switch st := constants.JobState(s); st {
		case constants.JobStatePending, constants.JobStateProgress, constants.JobStateSuccess, constants.JobStateFailure:
			f.State = st
		default:
			return f, common.Validationf("unknown state %q", s)
		}
	}
	return f, nil
}
