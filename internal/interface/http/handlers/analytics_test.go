package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

type fakeAudienceReporter struct {
	rows       []report.AudienceRow
	err        error
	lastPeriod report.Period
}

func (f *fakeAudienceReporter) AudienceReport(_ context.Context, period report.Period) ([]report.AudienceRow, error) {
	f.lastPeriod = period
	return f.rows, f.err
}

type fakeGroupReporter struct {
	rows        []report.GroupStudyRow
	err         error
	lastGroupID catalog.SourceID
}

func (f *fakeGroupReporter) GroupStudyReport(_ context.Context, groupID catalog.SourceID) ([]report.GroupStudyRow, error) {
	f.lastGroupID = groupID
	return f.rows, f.err
}

func TestAudienceRequiresPeriod(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAudienceReporter{}, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/audience", nil)
	rec := httptest.NewRecorder()
	h.Audience(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudienceSemesterWindow(t *testing.T) {
	audience := &fakeAudienceReporter{rows: []report.AudienceRow{
		{SessionID: 10, CourseName: "Databases", Topic: "Indexing", Materials: []string{"files/indexing.pdf"}, TotalStudents: 54},
	}}
	h := NewAnalyticsHandler(audience, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/audience?year=2023&semester=1", nil)
	rec := httptest.NewRecorder()
	h.Audience(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2023-09-01", audience.lastPeriod.Start.Format("2006-01-02"))
	assert.Equal(t, "2023-12-31", audience.lastPeriod.End.Format("2006-01-02"))

	var resp struct {
		Report struct {
			Period   string                `json:"period"`
			Lectures []audienceRowResponse `json:"lectures"`
		} `json:"report"`
		Meta struct {
			Results int `json:"results"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Report.Lectures, 1)
	assert.Equal(t, int64(10), resp.Report.Lectures[0].SessionID)
	assert.Equal(t, 54, resp.Report.Lectures[0].TotalStudents)
	assert.Equal(t, []string{"files/indexing.pdf"}, resp.Report.Lectures[0].Materials)
	assert.Equal(t, 1, resp.Meta.Results)
}

func TestAudienceRendersEmptyMaterialsAsList(t *testing.T) {
	audience := &fakeAudienceReporter{rows: []report.AudienceRow{
		{SessionID: 11, CourseName: "Databases", Topic: "Recovery", TotalStudents: 20},
	}}
	h := NewAnalyticsHandler(audience, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/audience?start_date=2023-09-01&end_date=2023-12-31", nil)
	rec := httptest.NewRecorder()
	h.Audience(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"materials":[]`)
}

func TestAudienceStoreFailureIsGeneric500(t *testing.T) {
	audience := &fakeAudienceReporter{err: shared.NewStoreError("neo4j", "audience report", errors.New("bolt handshake failed"))}
	h := NewAnalyticsHandler(audience, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/audience?year=2023&semester=2", nil)
	rec := httptest.NewRecorder()
	h.Audience(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "bolt handshake")
}

func TestGroupStudyRejectsBadID(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAudienceReporter{}, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/groups/abc/study", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.GroupStudy(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupStudyReportShape(t *testing.T) {
	groups := &fakeGroupReporter{rows: []report.GroupStudyRow{
		{StudentID: 700, StudentName: "Aruzhan Bekova", CourseName: "Databases", PlannedMinutes: 360, AttendedMinutes: 270},
		{StudentID: 700, StudentName: "Aruzhan Bekova", CourseName: "Networks", PlannedMinutes: 180, AttendedMinutes: 180},
	}}
	h := NewAnalyticsHandler(&fakeAudienceReporter{}, groups, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/groups/42/study", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.GroupStudy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.SourceID(42), groups.lastGroupID)

	var resp struct {
		Report struct {
			GroupID  int64                   `json:"group_id"`
			Students []groupStudyRowResponse `json:"students"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Report.GroupID)
	require.Len(t, resp.Report.Students, 2)
	assert.Equal(t, 360, resp.Report.Students[0].PlannedMinutes)
	assert.Equal(t, 270, resp.Report.Students[0].AttendedMinutes)
}

func TestGroupStudyUnknownGroupIsEmptyReport(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAudienceReporter{}, &fakeGroupReporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/groups/999/study", nil)
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.GroupStudy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"students":[]`)
}
