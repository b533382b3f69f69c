package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/schedule"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY
// Full-row-set readers over one Querier. When the Querier is a
// repeatable-read transaction (Connection.WithSnapshot), every method sees
// the same point-in-time view, which is what the sync pipeline requires.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepo reads full entity snapshots from the relational source.
// It implements catalog.SnapshotReader, catalog.SessionDocumentReader,
// student.SnapshotReader and schedule.SnapshotReader.
type SnapshotRepo struct {
	q   Querier
	now func() time.Time
}

// NewSnapshotRepo creates a snapshot reader over the given querier.
func NewSnapshotRepo(q Querier) *SnapshotRepo {
	return &SnapshotRepo{q: q, now: time.Now}
}

func storeErr(op string, err error) error {
	return shared.NewStoreError("postgres", op, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Organizational hierarchy
// ─────────────────────────────────────────────────────────────────────────────

// Universities returns every university row.
func (r *SnapshotRepo) Universities(ctx context.Context) ([]catalog.University, error) {
	rows, err := r.q.Query(ctx, TableUniversities.SelectAll())
	if err != nil {
		return nil, storeErr("select universities", err)
	}
	defer rows.Close()

	var out []catalog.University
	for rows.Next() {
		var u catalog.University
		var address *string
		if err := rows.Scan(&u.ID, &u.Name, &address); err != nil {
			return nil, storeErr("scan universities", err)
		}
		if address != nil {
			u.Address = *address
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Institutes returns every institute row.
func (r *SnapshotRepo) Institutes(ctx context.Context) ([]catalog.Institute, error) {
	rows, err := r.q.Query(ctx, TableInstitutes.SelectAll())
	if err != nil {
		return nil, storeErr("select institutes", err)
	}
	defer rows.Close()

	var out []catalog.Institute
	for rows.Next() {
		var i catalog.Institute
		if err := rows.Scan(&i.ID, &i.UniversityID, &i.Name); err != nil {
			return nil, storeErr("scan institutes", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Departments returns every department row.
func (r *SnapshotRepo) Departments(ctx context.Context) ([]catalog.Department, error) {
	rows, err := r.q.Query(ctx, TableDepartments.SelectAll())
	if err != nil {
		return nil, storeErr("select departments", err)
	}
	defer rows.Close()

	var out []catalog.Department
	for rows.Next() {
		var d catalog.Department
		if err := rows.Scan(&d.ID, &d.InstituteID, &d.Name); err != nil {
			return nil, storeErr("scan departments", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Specialties returns every specialty row.
func (r *SnapshotRepo) Specialties(ctx context.Context) ([]catalog.Specialty, error) {
	rows, err := r.q.Query(ctx, TableSpecialties.SelectAll())
	if err != nil {
		return nil, storeErr("select specialties", err)
	}
	defer rows.Close()

	var out []catalog.Specialty
	for rows.Next() {
		var s catalog.Specialty
		if err := rows.Scan(&s.ID, &s.DepartmentID, &s.Code, &s.Name); err != nil {
			return nil, storeErr("scan specialties", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StudentGroups returns every student group row.
func (r *SnapshotRepo) StudentGroups(ctx context.Context) ([]catalog.StudentGroup, error) {
	rows, err := r.q.Query(ctx, TableStudentGroups.SelectAll())
	if err != nil {
		return nil, storeErr("select student_groups", err)
	}
	defer rows.Close()

	var out []catalog.StudentGroup
	for rows.Next() {
		var g catalog.StudentGroup
		var year *int
		if err := rows.Scan(&g.ID, &g.SpecialtyID, &g.Name, &year); err != nil {
			return nil, storeErr("scan student_groups", err)
		}
		if year != nil {
			g.CourseYear = *year
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses, sessions, materials
// ─────────────────────────────────────────────────────────────────────────────

// Courses returns every course row.
func (r *SnapshotRepo) Courses(ctx context.Context) ([]catalog.Course, error) {
	rows, err := r.q.Query(ctx, TableCourses.SelectAll())
	if err != nil {
		return nil, storeErr("select courses", err)
	}
	defer rows.Close()

	var out []catalog.Course
	for rows.Next() {
		var c catalog.Course
		var desc *string
		if err := rows.Scan(&c.ID, &c.DepartmentID, &c.Name, &desc); err != nil {
			return nil, storeErr("scan courses", err)
		}
		if desc != nil {
			c.Description = *desc
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SessionTypes returns every session type row.
func (r *SnapshotRepo) SessionTypes(ctx context.Context) ([]catalog.SessionType, error) {
	rows, err := r.q.Query(ctx, TableSessionTypes.SelectAll())
	if err != nil {
		return nil, storeErr("select session_types", err)
	}
	defer rows.Close()

	var out []catalog.SessionType
	for rows.Next() {
		var st catalog.SessionType
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, storeErr("scan session_types", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// LectureSessions returns every lecture session row. The tags JSON column
// is decoded into a string map; a null or malformed value yields nil tags
// rather than a failed stage.
func (r *SnapshotRepo) LectureSessions(ctx context.Context) ([]catalog.LectureSession, error) {
	rows, err := r.q.Query(ctx, TableLectureSessions.SelectAll())
	if err != nil {
		return nil, storeErr("select lecture_sessions", err)
	}
	defer rows.Close()

	var out []catalog.LectureSession
	for rows.Next() {
		var s catalog.LectureSession
		var duration *int
		var desc *string
		var tagsRaw []byte
		if err := rows.Scan(&s.ID, &s.CourseID, &s.SessionTypeID, &s.Topic, &duration, &desc, &tagsRaw); err != nil {
			return nil, storeErr("scan lecture_sessions", err)
		}
		if duration != nil {
			s.DurationMinutes = *duration
		}
		if desc != nil {
			s.Description = *desc
		}
		if len(tagsRaw) > 0 {
			var tags map[string]string
			if err := json.Unmarshal(tagsRaw, &tags); err == nil {
				s.Tags = tags
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Materials returns every material row whose session still exists. The
// inner join filters rows with dangling session references so the graph
// stage never sees them.
func (r *SnapshotRepo) Materials(ctx context.Context) ([]catalog.Material, error) {
	query := fmt.Sprintf(`
		SELECT m.material_id, m.session_id, m.type, m.file_path, m.uploaded_at
		FROM %s m
		INNER JOIN %s s ON m.session_id = s.session_id
		ORDER BY m.material_id`,
		TableLectureMaterials.Name, TableLectureSessions.Name)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storeErr("select lecture_materials", err)
	}
	defer rows.Close()

	var out []catalog.Material
	for rows.Next() {
		var m catalog.Material
		var typ *string
		var uploaded *time.Time
		if err := rows.Scan(&m.ID, &m.SessionID, &typ, &m.FilePath, &uploaded); err != nil {
			return nil, storeErr("scan lecture_materials", err)
		}
		if typ != nil {
			m.Type = *typ
		}
		if uploaded != nil {
			m.UploadedAt = *uploaded
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SessionDocuments returns the denormalized session+course rows pushed
// into the full-text index.
func (r *SnapshotRepo) SessionDocuments(ctx context.Context) ([]catalog.SessionDocument, error) {
	query := fmt.Sprintf(`
		SELECT s.session_id, s.topic, c.name, s.description, s.duration_minutes, s.session_type_id, s.tags
		FROM %s s
		JOIN %s c ON s.course_id = c.course_id
		ORDER BY s.session_id`,
		TableLectureSessions.Name, TableCourses.Name)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storeErr("select session documents", err)
	}
	defer rows.Close()

	var out []catalog.SessionDocument
	for rows.Next() {
		var d catalog.SessionDocument
		var desc *string
		var duration *int
		var tagsRaw []byte
		if err := rows.Scan(&d.SessionID, &d.Topic, &d.CourseName, &desc, &duration, &d.SessionTypeID, &tagsRaw); err != nil {
			return nil, storeErr("scan session documents", err)
		}
		if desc != nil {
			d.Description = *desc
		}
		if duration != nil {
			d.DurationMinutes = *duration
		}
		d.Keywords = keywordsFromTags(tagsRaw)
		out = append(out, d)
	}
	return out, rows.Err()
}

// keywordsFromTags flattens the tags JSON map into a sorted keyword list.
func keywordsFromTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags map[string]string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	keywords := make([]string, 0, len(tags))
	for _, v := range tags {
		if v != "" {
			keywords = append(keywords, v)
		}
	}
	sort.Strings(keywords)
	return keywords
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// Students returns every student row.
func (r *SnapshotRepo) Students(ctx context.Context) ([]student.Student, error) {
	rows, err := r.q.Query(ctx, TableStudents.SelectAll())
	if err != nil {
		return nil, storeErr("select students", err)
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		var s student.Student
		var year *int
		var dob *time.Time
		var email, book *string
		if err := rows.Scan(&s.ID, &s.GroupID, &s.Name, &year, &dob, &email, &book); err != nil {
			return nil, storeErr("scan students", err)
		}
		if year != nil {
			s.EnrollmentYear = *year
		}
		if dob != nil {
			s.DateOfBirth = *dob
		}
		if email != nil {
			s.Email = *email
		}
		if book != nil {
			s.BookNumber = *book
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CacheRecords returns the flattened student+group rows the cache index is
// built from. Age is derived from the date of birth at read time.
func (r *SnapshotRepo) CacheRecords(ctx context.Context) ([]student.CacheRecord, error) {
	query := fmt.Sprintf(`
		SELECT s.student_id, s.name, s.date_of_birth, s.email, g.name
		FROM %s s
		JOIN %s g ON s.group_id = g.group_id
		ORDER BY s.student_id`,
		TableStudents.Name, TableStudentGroups.Name)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storeErr("select cache records", err)
	}
	defer rows.Close()

	now := r.now()
	var out []student.CacheRecord
	for rows.Next() {
		var rec student.CacheRecord
		var dob *time.Time
		var email *string
		if err := rows.Scan(&rec.ID, &rec.Name, &dob, &email, &rec.Group); err != nil {
			return nil, storeErr("scan cache records", err)
		}
		if email != nil {
			rec.Mail = *email
		}
		if dob != nil {
			rec.Age = (student.Student{DateOfBirth: *dob}).Age(now)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Schedule and attendance
// ─────────────────────────────────────────────────────────────────────────────

// Events returns every schedule row.
func (r *SnapshotRepo) Events(ctx context.Context) ([]schedule.Event, error) {
	rows, err := r.q.Query(ctx, TableSchedule.SelectAll())
	if err != nil {
		return nil, storeErr("select schedule", err)
	}
	defer rows.Close()

	var out []schedule.Event
	for rows.Next() {
		var e schedule.Event
		var room *string
		var start pgtype.Time
		if err := rows.Scan(&e.ID, &e.GroupID, &e.SessionID, &room, &e.Date, &start); err != nil {
			return nil, storeErr("scan schedule", err)
		}
		if room != nil {
			e.Room = *room
		}
		if start.Valid {
			e.StartTime = formatClock(start)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// formatClock renders a TIME column value as HH:MM.
func formatClock(t pgtype.Time) string {
	total := t.Microseconds / int64(time.Second/time.Microsecond)
	return fmt.Sprintf("%02d:%02d", total/3600, (total%3600)/60)
}

// AttendanceFacts returns every attendance row.
func (r *SnapshotRepo) AttendanceFacts(ctx context.Context) ([]schedule.AttendanceFact, error) {
	rows, err := r.q.Query(ctx, TableAttendance.SelectAll())
	if err != nil {
		return nil, storeErr("select attendance", err)
	}
	defer rows.Close()

	var out []schedule.AttendanceFact
	for rows.Next() {
		var f schedule.AttendanceFact
		var reason *string
		if err := rows.Scan(&f.ID, &f.ScheduleID, &f.StudentID, &f.Attended, &reason); err != nil {
			return nil, storeErr("scan attendance", err)
		}
		if reason != nil {
			f.AbsenceReason = *reason
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
