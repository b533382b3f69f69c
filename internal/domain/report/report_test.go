package report

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercent_Rounding(t *testing.T) {
	tests := []struct {
		name     string
		attended int
		total    int
		want     int
	}{
		{"all attended", 10, 10, 100},
		{"none attended", 0, 7, 0},
		{"two thirds rounds up", 2, 3, 67},
		{"one third rounds down", 1, 3, 33},
		{"half rounds up", 1, 2, 50},
		{"5 of 8", 5, 8, 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(tt.attended, tt.total)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestWorstFirst_TieBreaksOnStudentID(t *testing.T) {
	rows := []Row{
		{StudentID: 30, AttendancePercent: 50},
		{StudentID: 10, AttendancePercent: 50},
		{StudentID: 20, AttendancePercent: 10},
	}

	sort.Slice(rows, func(i, j int) bool { return WorstFirst(rows[i], rows[j]) })

	assert.Equal(t, int64(20), int64(rows[0].StudentID))
	assert.Equal(t, int64(10), int64(rows[1].StudentID))
	assert.Equal(t, int64(30), int64(rows[2].StudentID))
}

func TestPeriod_Validate(t *testing.T) {
	ok := Period{
		Start: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 9, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, ok.Validate())

	inverted := Period{Start: ok.End, End: ok.Start}
	assert.Error(t, inverted.Validate())

	assert.Error(t, Period{}.Validate())
}
