package api

import (
	"net/http"
	"strings"
	"time"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/report"
)

const defaultDateColumn = "Fecha Recepcion"

type dashboardResponse struct {
	Stage     pipeline.Stage  `json:"etapa"`
	Columns   []string        `json:"columnas"`
	Metrics   []string        `json:"metricas"`
	Skipped   []string        `json:"omitidos"`
	Summary   *report.Summary `json:"resumen,omitempty"`
	RowsTotal int             `json:"filas"`
}

// dashboardQuery reads etapa, metrica, agrupar, proveedor, producto, desde,
// hasta and fecha from the query string.
type dashboardQuery struct {
	stage   pipeline.Stage
	metric  string
	groupBy []string
	filter  report.Filter
}

func parseDashboardQuery(r *http.Request) (dashboardQuery, error) {
	q := r.URL.Query()
	var dq dashboardQuery

	raw := q.Get("etapa")
	if raw == "" {
		raw = pipeline.StageReceipt.Roman()
	}
	st, err := pipeline.ParseStage(raw)
	if err != nil || st == pipeline.StageNone {
		return dq, badRequest(constants.ErrUnknownStage, raw)
	}
	dq.stage = st
	dq.metric = strings.TrimSpace(q.Get("metrica"))
	dq.groupBy = splitList(q.Get("agrupar"))

	dq.filter = report.Filter{
		Suppliers:  splitList(q.Get("proveedor")),
		Products:   splitList(q.Get("producto")),
		DateColumn: defaultDateColumn,
	}
	if col := strings.TrimSpace(q.Get("fecha")); col != "" {
		dq.filter.DateColumn = col
	}
	if dq.filter.From, err = parseDay("desde", q.Get("desde")); err != nil {
		return dq, err
	}
	if dq.filter.To, err = parseDay("hasta", q.Get("hasta")); err != nil {
		return dq, err
	}
	return dq, nil
}

// summarize consolidates the stage directory, filters it and, when a metric
// and grouping were asked for, sums it.
func (h *Handler) summarize(dq dashboardQuery) (report.Table, *report.Summary, error) {
	tbl, err := report.Consolidate(h.app.StageDir(dq.stage))
	if err != nil {
		return report.Table{}, nil, err
	}
	tbl = dq.filter.Apply(tbl)
	if dq.metric == "" || len(dq.groupBy) == 0 {
		return tbl, nil, nil
	}
	s, err := report.Summarize(tbl, dq.metric, dq.groupBy)
	if err != nil {
		return tbl, nil, &requestError{msg: err.Error()}
	}
	return tbl, &s, nil
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dq, err := parseDashboardQuery(r)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	tbl, s, err := h.summarize(dq)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	RespondWithPayload(w, true, "", dashboardResponse{
		Stage:     dq.stage,
		Columns:   tbl.Columns,
		Metrics:   report.Available(tbl),
		Skipped:   tbl.Skipped,
		Summary:   s,
		RowsTotal: len(tbl.Rows),
	})
}

// DashboardExport handles GET /api/dashboard/export and streams the filtered
// rows and summary as RESUMEN_<etapa>.xlsx.
func (h *Handler) DashboardExport(w http.ResponseWriter, r *http.Request) {
	dq, err := parseDashboardQuery(r)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	tbl, s, err := h.summarize(dq)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	if len(tbl.Rows) == 0 {
		RespondWithError(w, http.StatusNotFound, constants.ErrNoDataFound)
		return
	}
	var summary report.Summary
	if s != nil {
		summary = *s
	}
	f, err := report.Workbook(tbl, summary)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer+": "+err.Error())
		return
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, constants.ErrInternalServer+": "+err.Error())
		return
	}
	sendWorkbook(w, report.FileName(dq.stage), buf.Bytes())
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDay(param, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(constants.DateFormat, raw)
	if err != nil {
		return time.Time{}, &requestError{msg: constants.FormatFieldError(param, "expected YYYY-MM-DD")}
	}
	return d, nil
}
