// Package report contains the federated attendance-report model: the
// aggregate row, the ranking rules, and the store-facing contracts the
// query engine composes. The engine itself lives in application/query;
// backends live in infrastructure/persistence.
package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD
// ══════════════════════════════════════════════════════════════════════════════

// Period is an inclusive date range. Only the date part matters; events are
// matched on their scheduled date.
type Period struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the range is well-formed.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("period bounds must be set")
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("period end %s before start %s",
			p.End.Format(DateLayout), p.Start.Format(DateLayout))
	}
	return nil
}

// String renders the period the way reports present it.
func (p Period) String() string {
	return p.Start.Format(DateLayout) + " - " + p.End.Format(DateLayout)
}

// DateLayout is the wire format for report dates.
const DateLayout = "2006-01-02"

// ══════════════════════════════════════════════════════════════════════════════
// ROWS
// ══════════════════════════════════════════════════════════════════════════════

// Row is one student's aggregate over the resolved scope.
// AttendancePercent is always computed by the engine from the two counts,
// never trusted from a backend, so the rounding rule is uniform across
// backend technologies.
type Row struct {
	StudentID         catalog.SourceID
	GroupID           catalog.SourceID
	AttendedCount     int
	TotalCount        int
	AttendancePercent int

	// Details holds the secondary-store enrichment. nil means the lookup
	// was degraded (store down or student missing from the mirror); the
	// row itself is still valid.
	Details *StudentDetails
}

// StudentDetails are the descriptive attributes joined in from the mirror.
// They are either fully populated or absent as a whole.
type StudentDetails struct {
	Name           string
	EnrollmentYear int
	DateOfBirth    time.Time
	Email          string
	BookNumber     string
	GroupName      string
}

// Percent applies the canonical rounding rule: round(attended/total*100).
// Callers must filter total == 0 before calling.
func Percent(attended, total int) int {
	return int(math.Round(float64(attended) / float64(total) * 100))
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// Worst-first ranking orders ascending by percent; ties break on student id
// ascending so repeated runs over the same data return the same sequence.
// Summary ordering is student id ascending.
// ══════════════════════════════════════════════════════════════════════════════

// WorstFirst is the sort rule for "worst attendees" reports.
func WorstFirst(a, b Row) bool {
	if a.AttendancePercent != b.AttendancePercent {
		return a.AttendancePercent < b.AttendancePercent
	}
	return a.StudentID < b.StudentID
}

// ByStudentID is the sort rule for summary reports.
func ByStudentID(a, b Row) bool {
	return a.StudentID < b.StudentID
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// SearchResolver turns free text (plus an optional exact session-type
// filter) into an ordered list of session ids. The order is owned by the
// search store; the engine never re-ranks it. A zero sessionTypeID means
// no filter. A search that matches nothing returns shared.ErrScopeEmpty,
// never an empty list, so callers can tell "no lectures" from a degraded
// store.
type SearchResolver interface {
	ResolveSessions(ctx context.Context, term string, sessionTypeID catalog.SourceID) ([]catalog.SourceID, error)
}

// ScopeResolver maps one session id to the concrete schedule events falling
// inside the period. Independent session ids may be resolved concurrently.
type ScopeResolver interface {
	EventsForSession(ctx context.Context, sessionID catalog.SourceID, period Period) ([]catalog.SourceID, error)
}

// Aggregate is the per-student raw count pair a backend produces for a set
// of schedule events.
type Aggregate struct {
	StudentID     catalog.SourceID
	GroupID       catalog.SourceID
	AttendedCount int
	TotalCount    int
}

// Aggregator groups attendance facts by student over the given events.
// Backends may include students with TotalCount == 0; the engine filters
// them out.
type Aggregator interface {
	AggregateAttendance(ctx context.Context, eventIDs []catalog.SourceID) ([]Aggregate, error)
}

// Enricher performs the left-join lookup into the secondary store.
// Missing students are simply absent from the returned map; that is not an
// error. An error from the enricher degrades the whole enrichment phase,
// never the report.
type Enricher interface {
	StudentDetails(ctx context.Context, studentIDs []catalog.SourceID) (map[catalog.SourceID]StudentDetails, error)
}

// Backend bundles the pluggable half of the engine: one store technology
// answering scope resolution and aggregation with a single dialect.
type Backend interface {
	ScopeResolver
	Aggregator

	// Name identifies the backend in logs and config ("postgres", "neo4j").
	Name() string
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICAL REPORTS
// Traversal-shaped reports answered by the graph mirror directly; no
// ranking or enrichment phase, so they bypass the engine.
// ══════════════════════════════════════════════════════════════════════════════

// AudienceRow is one lecture session's expected audience over a period:
// the summed size of every group scheduled for it, plus the materials the
// session requires.
type AudienceRow struct {
	SessionID     catalog.SourceID
	CourseName    string
	Topic         string
	Materials     []string
	TotalStudents int
}

// AudienceReporter lists sessions scheduled inside the period with their
// audience sizes, ordered by course name then topic.
type AudienceReporter interface {
	AudienceReport(ctx context.Context, period Period) ([]AudienceRow, error)
}

// GroupStudyRow is one (student, course) pair of a group: minutes of
// lecture time scheduled for the group against minutes the student
// actually attended.
type GroupStudyRow struct {
	StudentID       catalog.SourceID
	StudentName     string
	CourseName      string
	PlannedMinutes  int
	AttendedMinutes int
}

// GroupReporter breaks one group's schedule down per student and course,
// ordered by student name then course name. An unknown group yields an
// empty report, not an error.
type GroupReporter interface {
	GroupStudyReport(ctx context.Context, groupID catalog.SourceID) ([]GroupStudyRow, error)
}
