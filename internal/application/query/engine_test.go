package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeBackend struct {
	events     map[catalog.SourceID][]catalog.SourceID
	aggregates []report.Aggregate

	scopeCalls     atomic.Int64
	aggregateCalls atomic.Int64
	lastEventIDs   []catalog.SourceID

	scopeErr error
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) EventsForSession(_ context.Context, sessionID catalog.SourceID, _ report.Period) ([]catalog.SourceID, error) {
	b.scopeCalls.Add(1)
	if b.scopeErr != nil {
		return nil, b.scopeErr
	}
	return b.events[sessionID], nil
}

func (b *fakeBackend) AggregateAttendance(_ context.Context, eventIDs []catalog.SourceID) ([]report.Aggregate, error) {
	b.aggregateCalls.Add(1)
	b.lastEventIDs = eventIDs
	return b.aggregates, nil
}

type fakeEnricher struct {
	details map[catalog.SourceID]report.StudentDetails
	err     error
	calls   atomic.Int64
}

func (e *fakeEnricher) StudentDetails(_ context.Context, _ []catalog.SourceID) (map[catalog.SourceID]report.StudentDetails, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.details, nil
}

func newTestEngine(backend *fakeBackend, enricher *fakeEnricher) *Engine {
	return NewEngine(backend, enricher, config.ReportConfig{
		DefaultTopN:      10,
		ScopeConcurrency: 4,
		EnrichTimeout:    time.Second,
	}, nil)
}

func testPeriod(t *testing.T) report.Period {
	t.Helper()
	start, err := time.Parse(report.DateLayout, "2023-09-01")
	require.NoError(t, err)
	end, err := time.Parse(report.DateLayout, "2023-12-31")
	require.NoError(t, err)
	return report.Period{Start: start, End: end}
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestEmptySessionScopeSkipsStores(t *testing.T) {
	backend := &fakeBackend{}
	enricher := &fakeEnricher{}
	engine := newTestEngine(backend, enricher)

	rows, err := engine.FindWorstAttendees(context.Background(), nil, 10, testPeriod(t))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, backend.scopeCalls.Load())
	assert.Zero(t, backend.aggregateCalls.Load())
	assert.Zero(t, enricher.calls.Load())
}

func TestWorstFirstRankingWithTieBreak(t *testing.T) {
	backend := &fakeBackend{
		events: map[catalog.SourceID][]catalog.SourceID{10: {800}, 11: {801}},
		aggregates: []report.Aggregate{
			{StudentID: 703, AttendedCount: 1, TotalCount: 2},  // 50%
			{StudentID: 701, AttendedCount: 3, TotalCount: 10}, // 30%
			{StudentID: 700, AttendedCount: 3, TotalCount: 10}, // 30%, wins tie
			{StudentID: 702, AttendedCount: 9, TotalCount: 10}, // 90%
		},
	}
	engine := newTestEngine(backend, &fakeEnricher{})

	rows, err := engine.FindWorstAttendees(context.Background(), []catalog.SourceID{10, 11}, 10, testPeriod(t))
	require.NoError(t, err)

	ids := make([]catalog.SourceID, len(rows))
	for i, r := range rows {
		ids[i] = r.StudentID
	}
	assert.Equal(t, []catalog.SourceID{700, 701, 703, 702}, ids)
	assert.Equal(t, 30, rows[0].AttendancePercent)
	assert.Equal(t, 50, rows[2].AttendancePercent)
}

func TestTruncationAfterFullSort(t *testing.T) {
	backend := &fakeBackend{
		events: map[catalog.SourceID][]catalog.SourceID{10: {800}},
		aggregates: []report.Aggregate{
			{StudentID: 700, AttendedCount: 9, TotalCount: 10},
			{StudentID: 701, AttendedCount: 1, TotalCount: 10},
			{StudentID: 702, AttendedCount: 5, TotalCount: 10},
		},
	}
	engine := newTestEngine(backend, &fakeEnricher{})

	rows, err := engine.FindWorstAttendees(context.Background(), []catalog.SourceID{10}, 2, testPeriod(t))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, catalog.SourceID(701), rows[0].StudentID)
	assert.Equal(t, catalog.SourceID(702), rows[1].StudentID)
}

func TestZeroDenominatorRowsAreFiltered(t *testing.T) {
	backend := &fakeBackend{
		events: map[catalog.SourceID][]catalog.SourceID{10: {800}},
		aggregates: []report.Aggregate{
			{StudentID: 700, AttendedCount: 0, TotalCount: 0},
			{StudentID: 701, AttendedCount: 2, TotalCount: 4},
		},
	}
	engine := newTestEngine(backend, &fakeEnricher{})

	rows, err := engine.AttendanceSummary(context.Background(), []catalog.SourceID{10}, testPeriod(t))
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, catalog.SourceID(701), rows[0].StudentID)
	assert.Equal(t, 50, rows[0].AttendancePercent)
}

func TestDuplicateEventsAggregatedOnce(t *testing.T) {
	backend := &fakeBackend{
		events: map[catalog.SourceID][]catalog.SourceID{
			10: {800, 801},
			11: {801, 802},
		},
		aggregates: []report.Aggregate{{StudentID: 700, AttendedCount: 1, TotalCount: 3}},
	}
	engine := newTestEngine(backend, &fakeEnricher{})

	_, err := engine.AttendanceSummary(context.Background(), []catalog.SourceID{10, 11}, testPeriod(t))
	require.NoError(t, err)

	assert.Equal(t, int64(1), backend.aggregateCalls.Load())
	assert.ElementsMatch(t,
		[]catalog.SourceID{800, 801, 802},
		backend.lastEventIDs)
}

func TestEnrichmentAttachesDetails(t *testing.T) {
	backend := &fakeBackend{
		events: map[catalog.SourceID][]catalog.SourceID{10: {800}},
		aggregates: []report.Aggregate{
			{StudentID: 700, AttendedCount: 2, TotalCount: 4},
			{StudentID: 701, AttendedCount: 1, TotalCount: 4},
		},
	}
	enricher := &fakeEnricher{
		details: map[catalog.SourceID]report.StudentDetails{
			700: {Name: "Aruzhan Bekova", GroupName: "SE-2301"},
		},
	}
	engine := newTestEngine(backend, enricher)

	rows, err := engine.AttendanceSummary(context.Background(), []catalog.SourceID{10}, testPeriod(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].Details)
	assert.Equal(t, "Aruzhan Bekova", rows[0].Details.Name)

	// Student missing from the mirror degrades that row only.
	assert.Nil(t, rows[1].Details)
}

func TestEnrichmentFailureNeverFailsReport(t *testing.T) {
	backend := &fakeBackend{
		events:     map[catalog.SourceID][]catalog.SourceID{10: {800}},
		aggregates: []report.Aggregate{{StudentID: 700, AttendedCount: 2, TotalCount: 4}},
	}
	enricher := &fakeEnricher{err: errors.New("mirror down")}
	engine := newTestEngine(backend, enricher)

	rows, err := engine.FindWorstAttendees(context.Background(), []catalog.SourceID{10}, 10, testPeriod(t))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Details)
}

func TestScopeResolutionFailurePropagates(t *testing.T) {
	backend := &fakeBackend{scopeErr: errors.New("store down")}
	engine := newTestEngine(backend, &fakeEnricher{})

	_, err := engine.FindWorstAttendees(context.Background(), []catalog.SourceID{10}, 10, testPeriod(t))
	require.Error(t, err)
	assert.Zero(t, backend.aggregateCalls.Load())
}

func TestInvalidPeriodRejected(t *testing.T) {
	engine := newTestEngine(&fakeBackend{}, &fakeEnricher{})

	start, _ := time.Parse(report.DateLayout, "2023-12-31")
	end, _ := time.Parse(report.DateLayout, "2023-09-01")
	_, err := engine.AttendanceSummary(context.Background(),
		[]catalog.SourceID{10}, report.Period{Start: start, End: end})
	assert.Error(t, err)
}
