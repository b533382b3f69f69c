// Package schedule contains concrete lecture occurrences and the attendance
// fact table that records who showed up.
package schedule

import (
	"context"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
)

// Event is one concrete occurrence of a LectureSession for a StudentGroup
// on a date.
type Event struct {
	ID        catalog.SourceID
	GroupID   catalog.SourceID
	SessionID catalog.SourceID
	Room      string
	Date      time.Time
	StartTime string
}

// AttendanceFact records whether a student attended one scheduled event.
// The source keeps exactly one fact per (student, event) pair.
type AttendanceFact struct {
	ID            catalog.SourceID
	ScheduleID    catalog.SourceID
	StudentID     catalog.SourceID
	Attended      bool
	AbsenceReason string
}

// SnapshotReader provides full-snapshot access to schedule and attendance.
type SnapshotReader interface {
	Events(ctx context.Context) ([]Event, error)
	AttendanceFacts(ctx context.Context) ([]AttendanceFact, error)
}
