// Package catalog contains the academic structure of the university:
// the organizational hierarchy, courses, lecture sessions and teaching
// materials. This is the read-side model of the relational source; all
// mutation happens in out-of-scope processes.
package catalog

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// SourceID is the immutable primary key an entity carries in the relational
// source. It is the cross-store identity: every mirror (graph node, cache
// record, search document) is keyed by it, so a merge-by-key upsert can never
// produce duplicates.
type SourceID int64

// IsValid reports whether the id looks like a real source key.
func (id SourceID) IsValid() bool { return id > 0 }

// ══════════════════════════════════════════════════════════════════════════════
// ORGANIZATIONAL HIERARCHY
// University → Institute → Department → Specialty → StudentGroup.
// A child row always references an existing parent; the sync pipeline relies
// on this when it mirrors the hierarchy top-down.
// ══════════════════════════════════════════════════════════════════════════════

// University is the root of the organizational hierarchy.
type University struct {
	ID      SourceID
	Name    string
	Address string
}

// Institute belongs to a University.
type Institute struct {
	ID           SourceID
	UniversityID SourceID
	Name         string
}

// Department belongs to an Institute.
type Department struct {
	ID          SourceID
	InstituteID SourceID
	Name        string
}

// Specialty belongs to a Department.
type Specialty struct {
	ID           SourceID
	DepartmentID SourceID
	Code         string
	Name         string
}

// StudentGroup belongs to a Specialty.
type StudentGroup struct {
	ID          SourceID
	SpecialtyID SourceID
	Name        string
	CourseYear  int
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES AND SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// Course is offered by a Department.
type Course struct {
	ID           SourceID
	DepartmentID SourceID
	Name         string
	Description  string
}

// SessionType classifies a LectureSession (lecture, seminar, lab, ...).
type SessionType struct {
	ID   SourceID
	Name string
}

// LectureSession is one teachable unit of a Course.
type LectureSession struct {
	ID              SourceID
	CourseID        SourceID
	SessionTypeID   SourceID
	Topic           string
	DurationMinutes int
	Description     string
	Tags            map[string]string
}

// Material is a file attached to a LectureSession.
type Material struct {
	ID         SourceID
	SessionID  SourceID
	Type       string
	FilePath   string
	UploadedAt time.Time
}
