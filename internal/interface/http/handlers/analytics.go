package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
	"github.com/campus-hub/campus-data-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLER
// GET /api/reports/audience               — audience sizes + material needs
// GET /api/reports/groups/{id}/study      — per-student planned vs attended
// Both read the graph mirror directly; no ranking engine involved.
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsHandler serves the traversal-shaped graph reports.
type AnalyticsHandler struct {
	audience report.AudienceReporter
	groups   report.GroupReporter
	log      *logger.Logger
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(audience report.AudienceReporter, groups report.GroupReporter, log *logger.Logger) *AnalyticsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AnalyticsHandler{
		audience: audience,
		groups:   groups,
		log:      log.With(logger.Component("http")),
	}
}

type audienceRowResponse struct {
	SessionID     int64    `json:"sessionId"`
	CourseName    string   `json:"courseName"`
	Topic         string   `json:"topic"`
	Materials     []string `json:"materials"`
	TotalStudents int      `json:"totalStudents"`
}

type groupStudyRowResponse struct {
	StudentID       int64  `json:"studentId"`
	StudentName     string `json:"studentName"`
	CourseName      string `json:"courseName"`
	PlannedMinutes  int    `json:"plannedMinutes"`
	AttendedMinutes int    `json:"attendedMinutes"`
}

// Audience handles GET /api/reports/audience. The period comes from
// start_date/end_date query parameters, or year+semester as the academic
// window shortcut.
func (h *AnalyticsHandler) Audience(w http.ResponseWriter, r *http.Request) {
	period, ok := periodFromQuery(w, r.URL.Query())
	if !ok {
		return
	}

	rows, err := h.audience.AudienceReport(r.Context(), period)
	if err != nil {
		h.analyticsFailure(w, r, err)
		return
	}

	lectures := make([]audienceRowResponse, 0, len(rows))
	for _, row := range rows {
		materials := row.Materials
		if materials == nil {
			materials = []string{}
		}
		lectures = append(lectures, audienceRowResponse{
			SessionID:     int64(row.SessionID),
			CourseName:    row.CourseName,
			Topic:         row.Topic,
			Materials:     materials,
			TotalStudents: row.TotalStudents,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report": map[string]any{
			"period":   period.String(),
			"lectures": lectures,
		},
		"meta": map[string]any{"status": "success", "results": len(lectures)},
	})
}

// GroupStudy handles GET /api/reports/groups/{id}/study. An unknown group
// produces an empty report; the mirror cannot tell "no such group" from
// "group with nothing scheduled".
func (h *AnalyticsHandler) GroupStudy(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || groupID <= 0 {
		writeError(w, http.StatusBadRequest, "group id must be a positive integer")
		return
	}

	rows, err := h.groups.GroupStudyReport(r.Context(), catalog.SourceID(groupID))
	if err != nil {
		h.analyticsFailure(w, r, err)
		return
	}

	students := make([]groupStudyRowResponse, 0, len(rows))
	for _, row := range rows {
		students = append(students, groupStudyRowResponse{
			StudentID:       int64(row.StudentID),
			StudentName:     row.StudentName,
			CourseName:      row.CourseName,
			PlannedMinutes:  row.PlannedMinutes,
			AttendedMinutes: row.AttendedMinutes,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report": map[string]any{
			"group_id": groupID,
			"students": students,
		},
		"meta": map[string]any{"status": "success", "results": len(students)},
	})
}

// periodFromQuery parses the period query parameters, mirroring the report
// request body rules.
func periodFromQuery(w http.ResponseWriter, values url.Values) (report.Period, bool) {
	startDate := values.Get("start_date")
	endDate := values.Get("end_date")
	year, _ := strconv.Atoi(values.Get("year"))
	semester, _ := strconv.Atoi(values.Get("semester"))

	var period report.Period
	switch {
	case startDate != "" && endDate != "":
		start, err := timeutil.ParseDate(startDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be formatted YYYY-MM-DD")
			return report.Period{}, false
		}
		end, err := timeutil.ParseDate(endDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be formatted YYYY-MM-DD")
			return report.Period{}, false
		}
		period = report.Period{Start: start, End: end}
	case year != 0 && semester != 0:
		if semester != 1 && semester != 2 {
			writeError(w, http.StatusBadRequest, "semester must be 1 or 2")
			return report.Period{}, false
		}
		period.Start, period.End = timeutil.SemesterWindow(year, semester)
	default:
		writeError(w, http.StatusBadRequest, "either start_date and end_date or year and semester are required")
		return report.Period{}, false
	}

	if err := period.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return report.Period{}, false
	}
	return period, true
}

func (h *AnalyticsHandler) analyticsFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("analytics request failed",
		logger.Err(err),
		logger.RequestID(RequestIDFromContext(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, "report processing failed")
}
