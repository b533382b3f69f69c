package postgres

import (
	"fmt"
	"regexp"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPED SCHEMA DESCRIPTION
// Every query in this package is built from these descriptors. Identifiers
// never come from caller input: they are declared here, validated once at
// package init, and values always travel as bind parameters.
// ══════════════════════════════════════════════════════════════════════════════

// Table describes one relational table and the columns this core reads.
type Table struct {
	Name    string
	Columns []string
}

// Source schema, matching the provisioning scripts owned by the external
// schema-management process.
var (
	TableUniversities = Table{
		Name:    "universities",
		Columns: []string{"university_id", "name", "address"},
	}
	TableInstitutes = Table{
		Name:    "institutes",
		Columns: []string{"institute_id", "university_id", "name"},
	}
	TableDepartments = Table{
		Name:    "departments",
		Columns: []string{"department_id", "institute_id", "name"},
	}
	TableSpecialties = Table{
		Name:    "specialties",
		Columns: []string{"specialty_id", "department_id", "code", "name"},
	}
	TableStudentGroups = Table{
		Name:    "student_groups",
		Columns: []string{"group_id", "specialty_id", "name", "course_year"},
	}
	TableCourses = Table{
		Name:    "courses",
		Columns: []string{"course_id", "department_id", "name", "description"},
	}
	TableSessionTypes = Table{
		Name:    "session_types",
		Columns: []string{"session_type_id", "name"},
	}
	TableLectureSessions = Table{
		Name:    "lecture_sessions",
		Columns: []string{"session_id", "course_id", "session_type_id", "topic", "duration_minutes", "description", "tags"},
	}
	TableStudents = Table{
		Name:    "students",
		Columns: []string{"student_id", "group_id", "name", "enrollment_year", "date_of_birth", "email", "book_number"},
	}
	TableSchedule = Table{
		Name:    "schedule",
		Columns: []string{"schedule_id", "group_id", "session_id", "room", "scheduled_date", "start_time"},
	}
	TableAttendance = Table{
		Name:    "attendance",
		Columns: []string{"attendance_id", "schedule_id", "student_id", "attended", "absence_reason"},
	}
	TableLectureMaterials = Table{
		Name:    "lecture_materials",
		Columns: []string{"material_id", "session_id", "file_path", "type", "uploaded_at"},
	}
)

var allTables = []Table{
	TableUniversities, TableInstitutes, TableDepartments, TableSpecialties,
	TableStudentGroups, TableCourses, TableSessionTypes, TableLectureSessions,
	TableStudents, TableSchedule, TableAttendance, TableLectureMaterials,
}

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func init() {
	for _, t := range allTables {
		if !identifierRe.MatchString(t.Name) {
			panic(fmt.Sprintf("postgres: invalid table identifier %q", t.Name))
		}
		for _, col := range t.Columns {
			if !identifierRe.MatchString(col) {
				panic(fmt.Sprintf("postgres: invalid column identifier %q in table %s", col, t.Name))
			}
		}
	}
}

// SelectAll returns the full-snapshot SELECT for the table, ordered by the
// first column (the primary key) so row order is deterministic.
func (t Table) SelectAll() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(t.Columns, ", "), t.Name, t.Columns[0])
}

// Qualified returns "table.column" for use in hand-assembled joins, after
// checking the column belongs to the descriptor.
func (t Table) Qualified(column string) string {
	for _, col := range t.Columns {
		if col == column {
			return t.Name + "." + column
		}
	}
	panic(fmt.Sprintf("postgres: column %q not declared on table %s", column, t.Name))
}
