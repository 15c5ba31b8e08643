package httpapi

import (
	"fmt"
	"net/http"

	"hotelhub-linencount/internal/service"

	"go.uber.org/zap"
)

// ReportHandler 报表 Handler
type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

// NewReportHandler 创建报表 Handler
func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Today 当日看板
// GET /linen/api/v1/reports/today?location_id=&date=
func (h *ReportHandler) Today(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.reports.TodayBoard(r.Context(), service.TodayBoardRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		Date:       q.Get("date"),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Today board failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Totals 当日按条目合计
// GET /linen/api/v1/reports/totals?location_id=&date=
func (h *ReportHandler) Totals(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.reports.TodayTotals(r.Context(), service.TodayTotalsRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		Date:       q.Get("date"),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Totals failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Range 日期区间报表
// GET /linen/api/v1/reports/range?location_id=&from=&to=
func (h *ReportHandler) Range(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.reports.RangeReport(r.Context(), service.RangeReportRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Range report failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Calendar 日历汇总
// GET /linen/api/v1/reports/calendar?location_id=&from=&to=
func (h *ReportHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	resp, err := h.reports.Calendar(r.Context(), service.CalendarRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Calendar failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Export 导出 CSV / XLSX
// GET /linen/api/v1/reports/export?location_id=&from=&to=&format=csv|xlsx
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "csv"
	}

	result, err := h.reports.Export(r.Context(), service.ExportRequest{
		LocationID: parseInt64(q.Get("location_id"), 0),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Format:     format,
		Actor:      actor,
	})
	if err != nil {
		h.logger.Warn("Export failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
