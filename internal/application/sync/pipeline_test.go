package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/schedule"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/neo4j"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	universities []catalog.University
	institutes   []catalog.Institute
	departments  []catalog.Department
	specialties  []catalog.Specialty
	groups       []catalog.StudentGroup
	courses      []catalog.Course
	sessionTypes []catalog.SessionType
	sessions     []catalog.LectureSession
	materials    []catalog.Material
	students     []student.Student
	cacheRecords []student.CacheRecord
	events       []schedule.Event
	attendance   []schedule.AttendanceFact
	sessionDocs  []catalog.SessionDocument
}

func (f *fixture) Universities(context.Context) ([]catalog.University, error) {
	return f.universities, nil
}
func (f *fixture) Institutes(context.Context) ([]catalog.Institute, error) {
	return f.institutes, nil
}
func (f *fixture) Departments(context.Context) ([]catalog.Department, error) {
	return f.departments, nil
}
func (f *fixture) Specialties(context.Context) ([]catalog.Specialty, error) {
	return f.specialties, nil
}
func (f *fixture) StudentGroups(context.Context) ([]catalog.StudentGroup, error) {
	return f.groups, nil
}
func (f *fixture) Courses(context.Context) ([]catalog.Course, error) { return f.courses, nil }
func (f *fixture) SessionTypes(context.Context) ([]catalog.SessionType, error) {
	return f.sessionTypes, nil
}
func (f *fixture) LectureSessions(context.Context) ([]catalog.LectureSession, error) {
	return f.sessions, nil
}
func (f *fixture) Materials(context.Context) ([]catalog.Material, error) { return f.materials, nil }
func (f *fixture) Students(context.Context) ([]student.Student, error)   { return f.students, nil }
func (f *fixture) CacheRecords(context.Context) ([]student.CacheRecord, error) {
	return f.cacheRecords, nil
}
func (f *fixture) Events(context.Context) ([]schedule.Event, error) { return f.events, nil }
func (f *fixture) AttendanceFacts(context.Context) ([]schedule.AttendanceFact, error) {
	return f.attendance, nil
}
func (f *fixture) SessionDocuments(context.Context) ([]catalog.SessionDocument, error) {
	return f.sessionDocs, nil
}

func (f *fixture) source() Source {
	return SourceFunc(func(ctx context.Context, fn func(Readers) error) error {
		return fn(Readers{Catalog: f, Students: f, Schedule: f, Docs: f})
	})
}

// fakeGraph reproduces merge-by-key semantics in memory: one node per
// (label, source_id), one edge per (from, type, to).
type fakeGraph struct {
	nodes      map[string]map[int64]map[string]any
	edges      map[string]map[[2]int64]map[string]any
	mergeOrder []string
	failLabel  string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		nodes: make(map[string]map[int64]map[string]any),
		edges: make(map[string]map[[2]int64]map[string]any),
	}
}

func (g *fakeGraph) MergeNodes(_ context.Context, req neo4j.MergeRequest) error {
	if req.Label == g.failLabel {
		return errors.New("write refused")
	}
	for _, row := range req.Rows {
		for i, parent := range req.Parents {
			byID := g.nodes[parent.Label]
			if _, ok := byID[row.ParentIDs[i]]; !ok {
				return fmt.Errorf("%w: %s %d references missing %s",
					shared.ErrParentMissing, req.Label, row.SourceID, parent.Label)
			}
		}
	}
	g.mergeOrder = append(g.mergeOrder, req.Label)
	if g.nodes[req.Label] == nil {
		g.nodes[req.Label] = make(map[int64]map[string]any)
	}
	for _, row := range req.Rows {
		g.nodes[req.Label][row.SourceID] = row.Props
		for i, parent := range req.Parents {
			g.mergeEdge(parent.RelType, row.SourceID, row.ParentIDs[i], nil)
		}
	}
	return nil
}

func (g *fakeGraph) MergeEdges(_ context.Context, req neo4j.EdgeMergeRequest) error {
	g.mergeOrder = append(g.mergeOrder, req.RelType)
	for _, row := range req.Rows {
		if _, ok := g.nodes[req.FromLabel][row.FromID]; !ok {
			return fmt.Errorf("%w: missing %s %d", shared.ErrParentMissing, req.FromLabel, row.FromID)
		}
		if _, ok := g.nodes[req.ToLabel][row.ToID]; !ok {
			return fmt.Errorf("%w: missing %s %d", shared.ErrParentMissing, req.ToLabel, row.ToID)
		}
		g.mergeEdge(req.RelType, row.FromID, row.ToID, row.Props)
	}
	return nil
}

func (g *fakeGraph) mergeEdge(relType string, from, to int64, props map[string]any) {
	if g.edges[relType] == nil {
		g.edges[relType] = make(map[[2]int64]map[string]any)
	}
	g.edges[relType][[2]int64{from, to}] = props
}

func (g *fakeGraph) nodeCount(label string) int { return len(g.nodes[label]) }
func (g *fakeGraph) edgeCount(rel string) int   { return len(g.edges[rel]) }

type fakeStudentIndex struct {
	rebuilt [][]student.CacheRecord
}

func (x *fakeStudentIndex) Rebuild(_ context.Context, records []student.CacheRecord) error {
	x.rebuilt = append(x.rebuilt, records)
	return nil
}
func (x *fakeStudentIndex) Get(context.Context, catalog.SourceID) (student.CacheRecord, error) {
	return student.CacheRecord{}, shared.ErrNotFound
}
func (x *fakeStudentIndex) FindByName(context.Context, string) ([]student.CacheRecord, error) {
	return nil, nil
}
func (x *fakeStudentIndex) FindByEmail(context.Context, string) ([]student.CacheRecord, error) {
	return nil, nil
}
func (x *fakeStudentIndex) FindByGroup(context.Context, string) ([]student.CacheRecord, error) {
	return nil, nil
}
func (x *fakeStudentIndex) Search(context.Context, string) ([]student.CacheRecord, error) {
	return nil, nil
}

type fakeSessionTypes struct {
	rebuilt [][]catalog.SessionType
}

func (x *fakeSessionTypes) RebuildSessionTypes(_ context.Context, types []catalog.SessionType) error {
	x.rebuilt = append(x.rebuilt, types)
	return nil
}
func (x *fakeSessionTypes) SessionTypeByName(context.Context, string) (catalog.SessionType, error) {
	return catalog.SessionType{}, shared.ErrNotFound
}

type fakeSessionIndex struct {
	rebuilt [][]catalog.SessionDocument
}

func (x *fakeSessionIndex) Rebuild(_ context.Context, docs []catalog.SessionDocument) error {
	x.rebuilt = append(x.rebuilt, docs)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE DATA
// ══════════════════════════════════════════════════════════════════════════════

func smallCampus() *fixture {
	date := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	return &fixture{
		universities: []catalog.University{{ID: 1, Name: "Kazakh National University"}},
		institutes:   []catalog.Institute{{ID: 10, UniversityID: 1, Name: "Institute of IT"}},
		departments:  []catalog.Department{{ID: 100, InstituteID: 10, Name: "Software Engineering"}},
		specialties:  []catalog.Specialty{{ID: 200, DepartmentID: 100, Code: "SE", Name: "Software Engineering"}},
		groups:       []catalog.StudentGroup{{ID: 300, SpecialtyID: 200, Name: "SE-2301", CourseYear: 2}},
		courses:      []catalog.Course{{ID: 400, DepartmentID: 100, Name: "Databases"}},
		sessionTypes: []catalog.SessionType{{ID: 1, Name: "Lecture"}},
		sessions: []catalog.LectureSession{
			{ID: 500, CourseID: 400, SessionTypeID: 1, Topic: "Normalization", DurationMinutes: 90},
			{ID: 501, CourseID: 400, SessionTypeID: 1, Topic: "Indexes", DurationMinutes: 90},
		},
		materials: []catalog.Material{{ID: 600, SessionID: 500, Type: "pdf", FilePath: "/files/norm.pdf"}},
		students: []student.Student{
			{ID: 700, GroupID: 300, Name: "Aruzhan Bekova", EnrollmentYear: 2023},
			{ID: 701, GroupID: 300, Name: "Daniyar Omarov", EnrollmentYear: 2023},
		},
		cacheRecords: []student.CacheRecord{
			{ID: 700, Name: "Aruzhan Bekova", Group: "SE-2301"},
			{ID: 701, Name: "Daniyar Omarov", Group: "SE-2301"},
		},
		events: []schedule.Event{
			{ID: 800, GroupID: 300, SessionID: 500, Date: date("2023-09-04"), Room: "204"},
			{ID: 801, GroupID: 300, SessionID: 501, Date: date("2023-09-11"), Room: "204"},
		},
		attendance: []schedule.AttendanceFact{
			{ID: 900, ScheduleID: 800, StudentID: 700, Attended: true},
			{ID: 901, ScheduleID: 800, StudentID: 701, Attended: false},
			{ID: 902, ScheduleID: 801, StudentID: 700, Attended: true},
		},
		sessionDocs: []catalog.SessionDocument{
			{SessionID: 500, Topic: "Normalization", CourseName: "Databases", SessionTypeID: 1},
			{SessionID: 501, Topic: "Indexes", CourseName: "Databases", SessionTypeID: 1},
		},
	}
}

func newTestPipeline(f *fixture, graph *fakeGraph) (*Pipeline, *fakeStudentIndex, *fakeSessionIndex) {
	students := &fakeStudentIndex{}
	sessions := &fakeSessionIndex{}
	p := NewPipeline(Deps{
		Source:       f.source(),
		Graph:        graph,
		StudentIndex: students,
		SessionTypes: &fakeSessionTypes{},
		SessionIndex: sessions,
	})
	return p, students, sessions
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRunAllMirrorsSnapshot(t *testing.T) {
	f := smallCampus()
	graph := newFakeGraph()
	p, students, sessions := newTestPipeline(f, graph)

	stats, err := p.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, graph.nodeCount("University"))
	assert.Equal(t, 2, graph.nodeCount("Student"))
	assert.Equal(t, 2, graph.nodeCount("ScheduleEvent"))
	assert.Equal(t, 1, graph.nodeCount("Material"))
	assert.Equal(t, 3, graph.edgeCount("ATTENDED"))
	assert.Equal(t, 2, graph.edgeCount("MEMBER_OF"))
	assert.Equal(t, 2, graph.edgeCount("OF_SESSION"))

	require.Len(t, students.rebuilt, 1)
	assert.Len(t, students.rebuilt[0], 2)
	require.Len(t, sessions.rebuilt, 1)
	assert.Len(t, sessions.rebuilt[0], 2)

	assert.Len(t, stats.Stages, 14)
	assert.Equal(t, "universities", stats.Stages[0].Name)
}

func TestRunAllParentsBeforeChildren(t *testing.T) {
	f := smallCampus()
	graph := newFakeGraph()
	p, _, _ := newTestPipeline(f, graph)

	_, err := p.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"University", "Institute", "Department", "Specialty", "StudentGroup",
		"Course", "LectureSession", "Student", "ScheduleEvent", "ATTENDED",
		"Material",
	}, graph.mergeOrder)
}

func TestRunAllIsIdempotent(t *testing.T) {
	f := smallCampus()
	graph := newFakeGraph()
	p, _, _ := newTestPipeline(f, graph)

	_, err := p.RunAll(context.Background())
	require.NoError(t, err)

	first := map[string]int{}
	for label, byID := range graph.nodes {
		first[label] = len(byID)
	}
	firstEdges := map[string]int{}
	for rel, byKey := range graph.edges {
		firstEdges[rel] = len(byKey)
	}

	_, err = p.RunAll(context.Background())
	require.NoError(t, err)

	for label, count := range first {
		assert.Equal(t, count, graph.nodeCount(label), "node count changed for %s", label)
	}
	for rel, count := range firstEdges {
		assert.Equal(t, count, graph.edgeCount(rel), "edge count changed for %s", rel)
	}
}

func TestStageFailureReportsStageAndKeepsEarlierWrites(t *testing.T) {
	f := smallCampus()
	graph := newFakeGraph()
	graph.failLabel = "Student"
	p, _, _ := newTestPipeline(f, graph)

	_, err := p.RunAll(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "students", stageErr.Stage)
	assert.Equal(t, 2, stageErr.RowsProcessed)

	// Earlier stages are not rolled back.
	assert.Equal(t, 1, graph.nodeCount("University"))
	assert.Equal(t, 2, graph.nodeCount("LectureSession"))
	assert.Equal(t, 0, graph.nodeCount("Student"))
}

func TestMissingParentFailsStage(t *testing.T) {
	f := smallCampus()
	f.institutes = append(f.institutes, catalog.Institute{ID: 11, UniversityID: 99, Name: "Orphan"})
	graph := newFakeGraph()
	p, _, _ := newTestPipeline(f, graph)

	_, err := p.RunAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrParentMissing)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "institutes", stageErr.Stage)
}
