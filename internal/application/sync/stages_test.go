package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/schedule"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// Optional attributes must appear in every row's props map, null when
// unset, so a value emptied in the source is also removed from the mirror
// by the additive SET instead of surviving from an earlier sync.

func TestStudentRequestEmitsNullDateOfBirth(t *testing.T) {
	req := studentRequest([]student.Student{
		{ID: 700, GroupID: 42, Name: "Aruzhan Bekova", DateOfBirth: time.Date(2004, 5, 17, 0, 0, 0, 0, time.UTC)},
		{ID: 701, GroupID: 42, Name: "Dias Omarov"},
	})

	require.Len(t, req.Rows, 2)
	assert.Equal(t, "2004-05-17", req.Rows[0].Props["date_of_birth"])

	dob, present := req.Rows[1].Props["date_of_birth"]
	assert.True(t, present, "unset date_of_birth must still be emitted")
	assert.Nil(t, dob)
}

func TestAttendanceRequestEmitsNullAbsenceReason(t *testing.T) {
	req := attendanceRequest([]schedule.AttendanceFact{
		{StudentID: 700, ScheduleID: 900, Attended: false, AbsenceReason: "sick leave"},
		{StudentID: 701, ScheduleID: 900, Attended: true},
	})

	require.Len(t, req.Rows, 2)
	assert.Equal(t, "sick leave", req.Rows[0].Props["absence_reason"])

	reason, present := req.Rows[1].Props["absence_reason"]
	assert.True(t, present, "unset absence_reason must still be emitted")
	assert.Nil(t, reason)
}

func TestMaterialRequestEmitsNullUploadedAt(t *testing.T) {
	req := materialRequest([]catalog.Material{
		{ID: 50, SessionID: 10, Type: "slides", FilePath: "files/indexing.pdf"},
	})

	require.Len(t, req.Rows, 1)
	uploadedAt, present := req.Rows[0].Props["uploaded_at"]
	assert.True(t, present, "unset uploaded_at must still be emitted")
	assert.Nil(t, uploadedAt)
}
