package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectAll_DeterministicOrder(t *testing.T) {
	q := TableStudents.SelectAll()

	assert.Equal(t,
		"SELECT student_id, group_id, name, enrollment_year, date_of_birth, email, book_number "+
			"FROM students ORDER BY student_id", q)
}

func TestQualified(t *testing.T) {
	assert.Equal(t, "schedule.session_id", TableSchedule.Qualified("session_id"))

	assert.Panics(t, func() {
		TableSchedule.Qualified("no_such_column")
	})
}

func TestAllTables_IdentifiersAreLowerSnakeCase(t *testing.T) {
	for _, tbl := range allTables {
		assert.True(t, identifierRe.MatchString(tbl.Name), tbl.Name)
		for _, col := range tbl.Columns {
			assert.True(t, identifierRe.MatchString(col), col)
			assert.False(t, strings.ContainsAny(col, " ;'\""), col)
		}
	}
}
