package neo4j

import (
	"context"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRAPH REPORT BACKEND
// The graph-native aggregation dialect behind report.Backend, plus the
// enricher that serves the left-join student lookup. Dates are stored on
// ScheduleEvent nodes as ISO strings, so lexicographic comparison is date
// comparison.
// ══════════════════════════════════════════════════════════════════════════════

// ReportBackend answers scope resolution and attendance aggregation over
// the graph mirror. Results are only as fresh as the last successful sync.
type ReportBackend struct {
	store *Store
}

// NewReportBackend creates the graph report backend.
func NewReportBackend(store *Store) *ReportBackend {
	return &ReportBackend{store: store}
}

// Name identifies the backend in logs and config.
func (b *ReportBackend) Name() string { return "neo4j" }

// EventsForSession resolves the mirrored schedule events of one session
// inside the period, bounds inclusive.
func (b *ReportBackend) EventsForSession(ctx context.Context, sessionID catalog.SourceID, period report.Period) ([]catalog.SourceID, error) {
	records, err := b.store.readRecords(ctx, "resolve schedule events", `
		MATCH (s:LectureSession {source_id: $session_id})<-[:OF_SESSION]-(e:ScheduleEvent)
		WHERE e.date >= $start AND e.date <= $end
		RETURN e.source_id AS id ORDER BY id`,
		map[string]any{
			"session_id": int64(sessionID),
			"start":      period.Start.Format(report.DateLayout),
			"end":        period.End.Format(report.DateLayout),
		})
	if err != nil {
		return nil, err
	}

	out := make([]catalog.SourceID, 0, len(records))
	for _, rec := range records {
		if id, ok := asInt64(rec.AsMap()["id"]); ok {
			out = append(out, catalog.SourceID(id))
		}
	}
	return out, nil
}

// AggregateAttendance groups mirrored attendance edges by student over the
// given events. Counting ATTENDED edges matches the relational dialect:
// one edge per (student, event) the student was scheduled for.
func (b *ReportBackend) AggregateAttendance(ctx context.Context, eventIDs []catalog.SourceID) ([]report.Aggregate, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		ids[i] = int64(id)
	}

	records, err := b.store.readRecords(ctx, "aggregate attendance", `
		UNWIND $event_ids AS eid
		MATCH (e:ScheduleEvent {source_id: eid})
		MATCH (st:Student)-[a:ATTENDED]->(e)
		MATCH (st)-[:MEMBER_OF]->(g:StudentGroup)
		WITH st.source_id AS studentId, g.source_id AS groupId,
		     collect(a.attended) AS flags
		RETURN studentId, groupId,
		       size([f IN flags WHERE f]) AS attended,
		       size(flags) AS total`,
		map[string]any{"event_ids": ids})
	if err != nil {
		return nil, err
	}

	out := make([]report.Aggregate, 0, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		studentID, ok := asInt64(m["studentId"])
		if !ok {
			continue
		}
		groupID, _ := asInt64(m["groupId"])
		attended, _ := asInt64(m["attended"])
		total, _ := asInt64(m["total"])
		out = append(out, report.Aggregate{
			StudentID:     catalog.SourceID(studentID),
			GroupID:       catalog.SourceID(groupID),
			AttendedCount: int(attended),
			TotalCount:    int(total),
		})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICAL REPORTS
// Traversal-shaped reports that only the graph answers; they read the
// mirror directly and bypass the ranking engine.
// ══════════════════════════════════════════════════════════════════════════════

// AudienceReport sums, per lecture session scheduled inside the period,
// the sizes of every group scheduled for it, and collects the materials
// the session requires.
func (b *ReportBackend) AudienceReport(ctx context.Context, period report.Period) ([]report.AudienceRow, error) {
	records, err := b.store.readRecords(ctx, "audience report", `
		MATCH (e:ScheduleEvent) WHERE e.date >= $start AND e.date <= $end
		MATCH (e)-[:SCHEDULED_FOR]->(g:StudentGroup)
		OPTIONAL MATCH (st:Student)-[:MEMBER_OF]->(g)
		WITH e, count(st) AS audience
		MATCH (e)-[:OF_SESSION]->(s:LectureSession)<-[:HAS_SESSION]-(c:Course)
		WITH c, s, sum(audience) AS totalStudents
		OPTIONAL MATCH (s)-[:USES_MATERIAL]->(m:Material)
		RETURN s.source_id AS sessionId, c.name AS courseName, s.topic AS topic,
		       collect(DISTINCT m.file_path) AS materials, totalStudents
		ORDER BY courseName, topic`,
		map[string]any{
			"start": period.Start.Format(report.DateLayout),
			"end":   period.End.Format(report.DateLayout),
		})
	if err != nil {
		return nil, err
	}

	out := make([]report.AudienceRow, 0, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		sessionID, ok := asInt64(m["sessionId"])
		if !ok {
			continue
		}
		total, _ := asInt64(m["totalStudents"])
		out = append(out, report.AudienceRow{
			SessionID:     catalog.SourceID(sessionID),
			CourseName:    asString(m["courseName"]),
			Topic:         asString(m["topic"]),
			Materials:     asStrings(m["materials"]),
			TotalStudents: int(total),
		})
	}
	return out, nil
}

// GroupStudyReport breaks one group's schedule down per (student, course):
// lecture minutes scheduled for the group against minutes the student
// attended. At most one ATTENDED edge exists per (student, event), so each
// event contributes its session duration exactly once per student.
func (b *ReportBackend) GroupStudyReport(ctx context.Context, groupID catalog.SourceID) ([]report.GroupStudyRow, error) {
	records, err := b.store.readRecords(ctx, "group study report", `
		MATCH (g:StudentGroup {source_id: $group_id})
		MATCH (st:Student)-[:MEMBER_OF]->(g)
		MATCH (e:ScheduleEvent)-[:SCHEDULED_FOR]->(g)
		MATCH (e)-[:OF_SESSION]->(s:LectureSession)<-[:HAS_SESSION]-(c:Course)
		OPTIONAL MATCH (st)-[a:ATTENDED]->(e)
		WITH st, c,
		     sum(s.duration_minutes) AS plannedMinutes,
		     sum(CASE WHEN a IS NOT NULL AND a.attended THEN s.duration_minutes ELSE 0 END) AS attendedMinutes
		RETURN st.source_id AS studentId, st.name AS studentName,
		       c.name AS courseName, plannedMinutes, attendedMinutes
		ORDER BY studentName, courseName`,
		map[string]any{"group_id": int64(groupID)})
	if err != nil {
		return nil, err
	}

	out := make([]report.GroupStudyRow, 0, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		studentID, ok := asInt64(m["studentId"])
		if !ok {
			continue
		}
		planned, _ := asInt64(m["plannedMinutes"])
		attended, _ := asInt64(m["attendedMinutes"])
		out = append(out, report.GroupStudyRow{
			StudentID:       catalog.SourceID(studentID),
			StudentName:     asString(m["studentName"]),
			CourseName:      asString(m["courseName"]),
			PlannedMinutes:  int(planned),
			AttendedMinutes: int(attended),
		})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENRICHER
// ══════════════════════════════════════════════════════════════════════════════

// Enricher serves the descriptive-attribute lookup for report rows from
// the graph mirror. Students missing from the mirror are absent from the
// returned map; the engine degrades those rows to null details.
type Enricher struct {
	store *Store
}

// NewEnricher creates a graph-backed enricher.
func NewEnricher(store *Store) *Enricher {
	return &Enricher{store: store}
}

// StudentDetails looks up descriptive attributes for the given students.
func (e *Enricher) StudentDetails(ctx context.Context, studentIDs []catalog.SourceID) (map[catalog.SourceID]report.StudentDetails, error) {
	if len(studentIDs) == 0 {
		return map[catalog.SourceID]report.StudentDetails{}, nil
	}

	ids := make([]any, len(studentIDs))
	for i, id := range studentIDs {
		ids[i] = int64(id)
	}

	records, err := e.store.readRecords(ctx, "enrich students", `
		MATCH (s:Student) WHERE s.source_id IN $ids
		OPTIONAL MATCH (s)-[:MEMBER_OF]->(g:StudentGroup)
		RETURN s.source_id AS id, s.name AS name,
		       s.enrollment_year AS enrollmentYear,
		       s.date_of_birth AS dateOfBirth,
		       s.email AS email, s.book_number AS bookNumber,
		       g.name AS groupName`,
		map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}

	out := make(map[catalog.SourceID]report.StudentDetails, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		id, ok := asInt64(m["id"])
		if !ok {
			continue
		}
		details := report.StudentDetails{
			Name:       asString(m["name"]),
			Email:      asString(m["email"]),
			BookNumber: asString(m["bookNumber"]),
			GroupName:  asString(m["groupName"]),
		}
		if year, ok := asInt64(m["enrollmentYear"]); ok {
			details.EnrollmentYear = int(year)
		}
		if dob := asString(m["dateOfBirth"]); dob != "" {
			if t, err := time.Parse(report.DateLayout, dob); err == nil {
				details.DateOfBirth = t
			}
		}
		out[catalog.SourceID(id)] = details
	}
	return out, nil
}

// asInt64 unpacks an integer bolt value.
func asInt64(v any) (int64, bool) {
	i, ok := v.(int64)
	return i, ok
}

// asString unpacks a string bolt value, tolerating null.
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asStrings unpacks a list of string bolt values, dropping nulls (collect
// over an OPTIONAL MATCH yields [null] when nothing matched).
func asStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
