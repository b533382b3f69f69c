package sync

import (
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/internal/domain/schedule"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/neo4j"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAGE REQUEST BUILDERS
// Each builder flattens one entity type into the canonical attribute-map
// form the graph writer merges by (label, source_id). Parent ids always
// reference an entity type mirrored by an earlier stage.
// ══════════════════════════════════════════════════════════════════════════════

func universityRequest(rows []catalog.University) neo4j.MergeRequest {
	req := neo4j.MergeRequest{Label: "University"}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID: int64(r.ID),
			Props:    map[string]any{"name": r.Name, "address": r.Address},
		})
	}
	return req
}

func instituteRequest(rows []catalog.Institute) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Institute",
		Parents: []neo4j.ParentRef{{Label: "University", RelType: "HAS_INSTITUTE", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     map[string]any{"name": r.Name},
			ParentIDs: []int64{int64(r.UniversityID)},
		})
	}
	return req
}

func departmentRequest(rows []catalog.Department) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Department",
		Parents: []neo4j.ParentRef{{Label: "Institute", RelType: "HAS_DEPARTMENT", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     map[string]any{"name": r.Name},
			ParentIDs: []int64{int64(r.InstituteID)},
		})
	}
	return req
}

func specialtyRequest(rows []catalog.Specialty) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Specialty",
		Parents: []neo4j.ParentRef{{Label: "Department", RelType: "HAS_SPECIALTY", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     map[string]any{"code": r.Code, "name": r.Name},
			ParentIDs: []int64{int64(r.DepartmentID)},
		})
	}
	return req
}

func groupRequest(rows []catalog.StudentGroup) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "StudentGroup",
		Parents: []neo4j.ParentRef{{Label: "Specialty", RelType: "HAS_GROUP", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     map[string]any{"name": r.Name, "course_year": r.CourseYear},
			ParentIDs: []int64{int64(r.SpecialtyID)},
		})
	}
	return req
}

func courseRequest(rows []catalog.Course) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Course",
		Parents: []neo4j.ParentRef{{Label: "Department", RelType: "OFFERS_COURSE", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     map[string]any{"name": r.Name, "description": r.Description},
			ParentIDs: []int64{int64(r.DepartmentID)},
		})
	}
	return req
}

// sessionRequest carries the session type as a plain property; types are a
// closed enumeration, not part of the mirrored hierarchy.
func sessionRequest(rows []catalog.LectureSession) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "LectureSession",
		Parents: []neo4j.ParentRef{{Label: "Course", RelType: "HAS_SESSION", FromParent: true}},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID: int64(r.ID),
			Props: map[string]any{
				"topic":            r.Topic,
				"duration_minutes": r.DurationMinutes,
				"description":      r.Description,
				"session_type_id":  int64(r.SessionTypeID),
			},
			ParentIDs: []int64{int64(r.CourseID)},
		})
	}
	return req
}

func studentRequest(rows []student.Student) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Student",
		Parents: []neo4j.ParentRef{{Label: "StudentGroup", RelType: "MEMBER_OF"}},
	}
	for _, r := range rows {
		// Optional keys are emitted as null when unset: SET += with a null
		// value removes the property, so a value emptied in the source also
		// disappears from the mirror.
		var dob any
		if !r.DateOfBirth.IsZero() {
			dob = r.DateOfBirth.Format(report.DateLayout)
		}
		props := map[string]any{
			"name":            r.Name,
			"enrollment_year": r.EnrollmentYear,
			"email":           r.Email,
			"book_number":     r.BookNumber,
			"date_of_birth":   dob,
		}
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     props,
			ParentIDs: []int64{int64(r.GroupID)},
		})
	}
	return req
}

// scheduleRequest stores dates as ISO strings so period filters compare
// lexicographically.
func scheduleRequest(rows []schedule.Event) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label: "ScheduleEvent",
		Parents: []neo4j.ParentRef{
			{Label: "StudentGroup", RelType: "SCHEDULED_FOR"},
			{Label: "LectureSession", RelType: "OF_SESSION"},
		},
	}
	for _, r := range rows {
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID: int64(r.ID),
			Props: map[string]any{
				"room":       r.Room,
				"date":       r.Date.Format(report.DateLayout),
				"start_time": r.StartTime,
			},
			ParentIDs: []int64{int64(r.GroupID), int64(r.SessionID)},
		})
	}
	return req
}

// attendanceRequest merges attendance as edges; the fact has no node of its
// own in the mirror.
func attendanceRequest(rows []schedule.AttendanceFact) neo4j.EdgeMergeRequest {
	req := neo4j.EdgeMergeRequest{
		FromLabel: "Student",
		ToLabel:   "ScheduleEvent",
		RelType:   "ATTENDED",
	}
	for _, r := range rows {
		var reason any
		if r.AbsenceReason != "" {
			reason = r.AbsenceReason
		}
		props := map[string]any{"attended": r.Attended, "absence_reason": reason}
		req.Rows = append(req.Rows, neo4j.EdgeRow{
			FromID: int64(r.StudentID),
			ToID:   int64(r.ScheduleID),
			Props:  props,
		})
	}
	return req
}

func materialRequest(rows []catalog.Material) neo4j.MergeRequest {
	req := neo4j.MergeRequest{
		Label:   "Material",
		Parents: []neo4j.ParentRef{{Label: "LectureSession", RelType: "USES_MATERIAL", FromParent: true}},
	}
	for _, r := range rows {
		var uploadedAt any
		if !r.UploadedAt.IsZero() {
			uploadedAt = r.UploadedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		props := map[string]any{"type": r.Type, "file_path": r.FilePath, "uploaded_at": uploadedAt}
		req.Rows = append(req.Rows, neo4j.NodeRow{
			SourceID:  int64(r.ID),
			Props:     props,
			ParentIDs: []int64{int64(r.SessionID)},
		})
	}
	return req
}
