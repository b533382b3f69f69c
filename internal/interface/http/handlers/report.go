package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campus-hub/campus-data-hub/internal/application/query"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
	"github.com/campus-hub/campus-data-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLER
// POST /api/reports/attendance               — free-text scope
// POST /api/reports/attendance/by-session-type — plus exact type filter
// ══════════════════════════════════════════════════════════════════════════════

// ReportHandler serves the attendance report endpoints.
type ReportHandler struct {
	resolver     report.SearchResolver
	sessionTypes catalog.SessionTypeLookup
	engine       *query.Engine
	log          *logger.Logger
}

// NewReportHandler creates the handler.
func NewReportHandler(resolver report.SearchResolver, sessionTypes catalog.SessionTypeLookup, engine *query.Engine, log *logger.Logger) *ReportHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ReportHandler{
		resolver:     resolver,
		sessionTypes: sessionTypes,
		engine:       engine,
		log:          log.With(logger.Component("http")),
	}
}

type reportRequest struct {
	Term      string `json:"term"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// Year + Semester are a shortcut for the academic semester window,
	// accepted instead of explicit dates.
	Year     int `json:"year"`
	Semester int `json:"semester"`

	TopN int `json:"top_n"`
}

type attendeeResponse struct {
	StudentID         int64   `json:"studentId"`
	StudentName       *string `json:"studentName"`
	AttendedCount     int     `json:"attendedCount"`
	TotalCount        int     `json:"totalCount"`
	AttendancePercent int     `json:"attendancePercent"`
	EnrollmentYear    *int    `json:"enrollmentYear"`
	DateOfBirth       *string `json:"dateOfBirth"`
	Email             *string `json:"email"`
	BookNumber        *string `json:"bookNumber"`
	GroupName         *string `json:"groupName"`
}

type reportResponse struct {
	Report struct {
		SearchTerm     string             `json:"search_term"`
		Period         string             `json:"period"`
		FoundLectures  int                `json:"found_lectures"`
		WorstAttendees []attendeeResponse `json:"worst_attendees"`
	} `json:"report"`
	Meta struct {
		Status  string `json:"status"`
		Results int    `json:"results"`
	} `json:"meta"`
}

// Attendance handles POST /api/reports/attendance.
func (h *ReportHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	req, period, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	h.buildReport(w, r, req, period, 0)
}

// AttendanceBySessionType handles POST /api/reports/attendance/by-session-type.
// The type name is resolved through the cache index and passed to the
// search resolver as an exact filter.
func (h *ReportHandler) AttendanceBySessionType(w http.ResponseWriter, r *http.Request) {
	req, period, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "field name is required")
		return
	}

	sessionType, err := h.sessionTypes.SessionTypeByName(r.Context(), req.Name)
	if errors.Is(err, shared.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown session type")
		return
	}
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}
	h.buildReport(w, r, req, period, sessionType.ID)
}

// decodeRequest parses and validates the shared request fields.
func (h *ReportHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (reportRequest, report.Period, bool) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return req, report.Period{}, false
	}
	if req.Term == "" {
		writeError(w, http.StatusBadRequest, "field term is required")
		return req, report.Period{}, false
	}
	var period report.Period
	switch {
	case req.StartDate != "" && req.EndDate != "":
		start, err := timeutil.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be formatted YYYY-MM-DD")
			return req, report.Period{}, false
		}
		end, err := timeutil.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be formatted YYYY-MM-DD")
			return req, report.Period{}, false
		}
		period = report.Period{Start: start, End: end}
	case req.Year != 0 && req.Semester != 0:
		if req.Semester != 1 && req.Semester != 2 {
			writeError(w, http.StatusBadRequest, "semester must be 1 or 2")
			return req, report.Period{}, false
		}
		period.Start, period.End = timeutil.SemesterWindow(req.Year, req.Semester)
	default:
		writeError(w, http.StatusBadRequest, "either start_date and end_date or year and semester are required")
		return req, report.Period{}, false
	}

	if err := period.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, report.Period{}, false
	}
	return req, period, true
}

// buildReport runs resolve → aggregate → rank → enrich and renders the
// response.
func (h *ReportHandler) buildReport(w http.ResponseWriter, r *http.Request, req reportRequest, period report.Period, sessionTypeID catalog.SourceID) {
	ctx := r.Context()

	sessionIDs, err := h.resolver.ResolveSessions(ctx, req.Term, sessionTypeID)
	if errors.Is(err, shared.ErrScopeEmpty) {
		writeError(w, http.StatusNotFound, "no lectures found")
		return
	}
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}

	rows, err := h.engine.FindWorstAttendees(ctx, sessionIDs, req.TopN, period)
	if err != nil {
		h.storeFailure(w, r, err)
		return
	}

	var resp reportResponse
	resp.Report.SearchTerm = req.Term
	resp.Report.Period = period.String()
	resp.Report.FoundLectures = len(sessionIDs)
	resp.Report.WorstAttendees = make([]attendeeResponse, 0, len(rows))
	for _, row := range rows {
		resp.Report.WorstAttendees = append(resp.Report.WorstAttendees, toAttendee(row))
	}
	resp.Meta.Status = "success"
	resp.Meta.Results = len(rows)

	writeJSON(w, http.StatusOK, resp)
}

// storeFailure logs the real error and answers with a generic 500; store
// internals never leak to clients.
func (h *ReportHandler) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("report request failed",
		logger.Err(err),
		logger.RequestID(RequestIDFromContext(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, "report processing failed")
}

func toAttendee(row report.Row) attendeeResponse {
	a := attendeeResponse{
		StudentID:         int64(row.StudentID),
		AttendedCount:     row.AttendedCount,
		TotalCount:        row.TotalCount,
		AttendancePercent: row.AttendancePercent,
	}
	if d := row.Details; d != nil {
		a.StudentName = &d.Name
		a.EnrollmentYear = &d.EnrollmentYear
		a.Email = &d.Email
		a.BookNumber = &d.BookNumber
		a.GroupName = &d.GroupName
		if !d.DateOfBirth.IsZero() {
			dob := timeutil.FormatDate(d.DateOfBirth)
			a.DateOfBirth = &dob
		}
	}
	return a
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"meta":  map[string]any{"status": "error"},
		"error": message,
	})
}
