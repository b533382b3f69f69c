package postgres

import (
	"context"
	"fmt"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELATIONAL REPORT BACKEND
// One of the two aggregation dialects behind report.Backend. Scope
// resolution and grouping run as plain joins against the source tables;
// the engine owns percent computation, filtering, ranking and truncation.
// ══════════════════════════════════════════════════════════════════════════════

// ReportBackend answers scope resolution and attendance aggregation with
// relational joins over the source of record.
type ReportBackend struct {
	conn *Connection
}

// NewReportBackend creates the relational report backend.
func NewReportBackend(conn *Connection) *ReportBackend {
	return &ReportBackend{conn: conn}
}

// Name identifies the backend in logs and config.
func (b *ReportBackend) Name() string { return "postgres" }

// EventsForSession resolves the schedule events of one session whose date
// falls inside the period, bounds inclusive.
func (b *ReportBackend) EventsForSession(ctx context.Context, sessionID catalog.SourceID, period report.Period) ([]catalog.SourceID, error) {
	query := fmt.Sprintf(`
		SELECT schedule_id FROM %s
		WHERE session_id = $1 AND scheduled_date BETWEEN $2 AND $3
		ORDER BY schedule_id`,
		TableSchedule.Name)

	ctx, cancel := b.conn.QueryContext(ctx)
	defer cancel()

	rows, err := b.conn.Pool().Query(ctx, query, int64(sessionID), period.Start, period.End)
	if err != nil {
		return nil, storeErr("resolve schedule events", err)
	}
	defer rows.Close()

	var out []catalog.SourceID
	for rows.Next() {
		var id catalog.SourceID
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan schedule events", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AggregateAttendance groups the attendance facts of the given events by
// student. One fact exists per (student, event) pair, so the row count per
// student is the number of events the student was scheduled for.
func (b *ReportBackend) AggregateAttendance(ctx context.Context, eventIDs []catalog.SourceID) ([]report.Aggregate, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, %[2]s,
		       COUNT(*) FILTER (WHERE %[3]s) AS attended_count,
		       COUNT(*) AS total_count
		FROM %[4]s
		JOIN %[5]s ON %[6]s = %[1]s
		WHERE %[7]s = ANY($1)
		GROUP BY %[1]s, %[2]s`,
		TableAttendance.Qualified("student_id"),
		TableStudents.Qualified("group_id"),
		TableAttendance.Qualified("attended"),
		TableAttendance.Name,
		TableStudents.Name,
		TableStudents.Qualified("student_id"),
		TableAttendance.Qualified("schedule_id"))

	ids := make([]int64, len(eventIDs))
	for i, id := range eventIDs {
		ids[i] = int64(id)
	}

	ctx, cancel := b.conn.QueryContext(ctx)
	defer cancel()

	rows, err := b.conn.Pool().Query(ctx, query, ids)
	if err != nil {
		return nil, storeErr("aggregate attendance", err)
	}
	defer rows.Close()

	var out []report.Aggregate
	for rows.Next() {
		var agg report.Aggregate
		if err := rows.Scan(&agg.StudentID, &agg.GroupID, &agg.AttendedCount, &agg.TotalCount); err != nil {
			return nil, storeErr("scan attendance aggregates", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}
