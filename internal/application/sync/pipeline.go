// Package sync implements the cross-store synchronization pipeline: the
// ordered graph mirror stages plus the concurrent index rebuilds that run
// off the same relational snapshot.
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/schedule"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/neo4j"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
	"github.com/campus-hub/campus-data-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Readers bundles the snapshot readers one pipeline run consumes. All of
// them must serve from the same consistent snapshot of the source.
type Readers struct {
	Catalog  catalog.SnapshotReader
	Students student.SnapshotReader
	Schedule schedule.SnapshotReader
	Docs     catalog.SessionDocumentReader
}

// Source opens one consistent snapshot and runs fn against it. The snapshot
// is released when fn returns.
type Source interface {
	WithSnapshot(ctx context.Context, fn func(Readers) error) error
}

// SourceFunc adapts a closure to Source.
type SourceFunc func(ctx context.Context, fn func(Readers) error) error

func (f SourceFunc) WithSnapshot(ctx context.Context, fn func(Readers) error) error {
	return f(ctx, fn)
}

// GraphWriter is the bulk merge surface of the graph mirror.
type GraphWriter interface {
	MergeNodes(ctx context.Context, req neo4j.MergeRequest) error
	MergeEdges(ctx context.Context, req neo4j.EdgeMergeRequest) error
}

// SessionIndexer rebuilds the full-text session index.
type SessionIndexer interface {
	Rebuild(ctx context.Context, docs []catalog.SessionDocument) error
}

// OrgDocsRebuilder rebuilds the nested organizational document mirror from
// flat hierarchy rows.
type OrgDocsRebuilder func(
	ctx context.Context,
	universities []catalog.University,
	institutes []catalog.Institute,
	departments []catalog.Department,
	specialties []catalog.Specialty,
) error

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS AND STATS
// ══════════════════════════════════════════════════════════════════════════════

// StageError reports which stage failed and how many rows it had processed.
// Earlier stages are never rolled back; the mirror converges on the next
// successful run.
type StageError struct {
	Stage         string
	RowsProcessed int
	Err           error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync stage %q failed after %d rows: %v", e.Stage, e.RowsProcessed, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageStats records one completed stage.
type StageStats struct {
	Name     string
	Rows     int
	Duration time.Duration
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	Stages   []StageStats
	Duration time.Duration
}

// Rows sums the rows processed across all completed stages.
func (s RunStats) Rows() int {
	total := 0
	for _, st := range s.Stages {
		total += st.Rows
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// Deps wires the pipeline's collaborators. OrgDocs may be nil when the
// document mirror is disabled.
type Deps struct {
	Source       Source
	Graph        GraphWriter
	StudentIndex student.CacheIndex
	SessionTypes catalog.SessionTypeLookup
	SessionIndex SessionIndexer
	OrgDocs      OrgDocsRebuilder

	// StageRetries bounds per-stage retries. 0 means fail on first error.
	StageRetries int

	Logger *logger.Logger
}

// Pipeline runs the full mirror synchronization: ordered graph stages
// first, then the disjoint index rebuilds concurrently.
type Pipeline struct {
	source       Source
	graph        GraphWriter
	studentIndex student.CacheIndex
	sessionTypes catalog.SessionTypeLookup
	sessionIndex SessionIndexer
	orgDocs      OrgDocsRebuilder
	retrier      *retry.Retrier
	log          *logger.Logger
}

// NewPipeline creates a pipeline from its collaborators.
func NewPipeline(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	var retrier *retry.Retrier
	if deps.StageRetries > 0 {
		retrier = retry.New(retry.Config{MaxAttempts: deps.StageRetries + 1})
	}
	return &Pipeline{
		source:       deps.Source,
		graph:        deps.Graph,
		studentIndex: deps.StudentIndex,
		sessionTypes: deps.SessionTypes,
		sessionIndex: deps.SessionIndex,
		orgDocs:      deps.OrgDocs,
		retrier:      retrier,
		log:          log.With(logger.Component("sync")),
	}
}

// snapshot is everything one run reads from the source. Collecting it up
// front keeps all reads on the single snapshot transaction and lets the
// store rebuilds run concurrently afterwards.
type snapshot struct {
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

// RunAll executes every mirror stage in dependency order. A stage failure
// aborts the run and surfaces as a StageError; completed stages keep their
// writes.
func (p *Pipeline) RunAll(ctx context.Context) (RunStats, error) {
	started := time.Now()
	p.log.Info("mirror sync started")

	var snap snapshot
	if err := p.source.WithSnapshot(ctx, func(r Readers) error {
		return snap.load(ctx, r)
	}); err != nil {
		p.log.Error("snapshot read failed", logger.Err(err))
		return RunStats{}, err
	}

	stats := RunStats{}
	if err := p.runGraphStages(ctx, &snap, &stats); err != nil {
		return stats, err
	}
	if err := p.runIndexStages(ctx, &snap, &stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(started)
	p.log.Info("mirror sync finished",
		logger.RowCount(stats.Rows()),
		logger.Latency(stats.Duration))
	return stats, nil
}

// load reads the full snapshot sequentially; the underlying transaction is
// not safe for concurrent reads.
func (s *snapshot) load(ctx context.Context, r Readers) error {
	var err error
	if s.universities, err = r.Catalog.Universities(ctx); err != nil {
		return err
	}
	if s.institutes, err = r.Catalog.Institutes(ctx); err != nil {
		return err
	}
	if s.departments, err = r.Catalog.Departments(ctx); err != nil {
		return err
	}
	if s.specialties, err = r.Catalog.Specialties(ctx); err != nil {
		return err
	}
	if s.groups, err = r.Catalog.StudentGroups(ctx); err != nil {
		return err
	}
	if s.courses, err = r.Catalog.Courses(ctx); err != nil {
		return err
	}
	if s.sessionTypes, err = r.Catalog.SessionTypes(ctx); err != nil {
		return err
	}
	if s.sessions, err = r.Catalog.LectureSessions(ctx); err != nil {
		return err
	}
	if s.materials, err = r.Catalog.Materials(ctx); err != nil {
		return err
	}
	if s.students, err = r.Students.Students(ctx); err != nil {
		return err
	}
	if s.cacheRecords, err = r.Students.CacheRecords(ctx); err != nil {
		return err
	}
	if s.events, err = r.Schedule.Events(ctx); err != nil {
		return err
	}
	if s.attendance, err = r.Schedule.AttendanceFacts(ctx); err != nil {
		return err
	}
	if s.sessionDocs, err = r.Docs.SessionDocuments(ctx); err != nil {
		return err
	}
	return nil
}

// runGraphStages mirrors the relational source into the graph in dependency
// order: parents always before children, nodes always before edges.
func (p *Pipeline) runGraphStages(ctx context.Context, snap *snapshot, stats *RunStats) error {
	stages := []struct {
		name string
		rows int
		run  func(context.Context) error
	}{
		{"universities", len(snap.universities), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, universityRequest(snap.universities))
		}},
		{"institutes", len(snap.institutes), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, instituteRequest(snap.institutes))
		}},
		{"departments", len(snap.departments), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, departmentRequest(snap.departments))
		}},
		{"specialties", len(snap.specialties), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, specialtyRequest(snap.specialties))
		}},
		{"groups", len(snap.groups), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, groupRequest(snap.groups))
		}},
		{"courses", len(snap.courses), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, courseRequest(snap.courses))
		}},
		{"sessions", len(snap.sessions), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, sessionRequest(snap.sessions))
		}},
		{"students", len(snap.students), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, studentRequest(snap.students))
		}},
		{"schedule", len(snap.events), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, scheduleRequest(snap.events))
		}},
		{"attendance", len(snap.attendance), func(ctx context.Context) error {
			return p.graph.MergeEdges(ctx, attendanceRequest(snap.attendance))
		}},
		{"materials", len(snap.materials), func(ctx context.Context) error {
			return p.graph.MergeNodes(ctx, materialRequest(snap.materials))
		}},
	}

	for _, stage := range stages {
		if err := p.runStage(ctx, stage.name, stage.rows, stage.run, stats); err != nil {
			return err
		}
	}
	return nil
}

// runIndexStages rebuilds the non-graph mirrors. They write disjoint stores,
// so they run concurrently; the snapshot is already fully in memory.
func (p *Pipeline) runIndexStages(ctx context.Context, snap *snapshot, stats *RunStats) error {
	type result struct {
		stats StageStats
		err   error
	}

	stages := []struct {
		name string
		rows int
		run  func(context.Context) error
	}{
		{"student_index", len(snap.cacheRecords), func(ctx context.Context) error {
			return p.studentIndex.Rebuild(ctx, snap.cacheRecords)
		}},
		{"session_types", len(snap.sessionTypes), func(ctx context.Context) error {
			return p.sessionTypes.RebuildSessionTypes(ctx, snap.sessionTypes)
		}},
		{"session_index", len(snap.sessionDocs), func(ctx context.Context) error {
			return p.sessionIndex.Rebuild(ctx, snap.sessionDocs)
		}},
	}
	if p.orgDocs != nil {
		stages = append(stages, struct {
			name string
			rows int
			run  func(context.Context) error
		}{"org_documents", len(snap.universities), func(ctx context.Context) error {
			return p.orgDocs(ctx, snap.universities, snap.institutes, snap.departments, snap.specialties)
		}})
	}

	results := make([]result, len(stages))
	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range stages {
		g.Go(func() error {
			var local RunStats
			err := p.runStage(gctx, stage.name, stage.rows, stage.run, &local)
			if err == nil && len(local.Stages) == 1 {
				results[i] = result{stats: local.Stages[0]}
			} else {
				results[i] = result{err: err}
			}
			return err
		})
	}
	err := g.Wait()
	for _, r := range results {
		if r.err == nil && r.stats.Name != "" {
			stats.Stages = append(stats.Stages, r.stats)
		}
	}
	return err
}

// runStage executes one stage with optional bounded retry and uniform
// logging, recording its stats on success.
func (p *Pipeline) runStage(ctx context.Context, name string, rows int, run func(context.Context) error, stats *RunStats) error {
	started := time.Now()

	var err error
	if p.retrier != nil {
		err = p.retrier.Do(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		p.log.Error("sync stage failed",
			logger.StageName(name),
			logger.RowCount(rows),
			logger.Err(err))
		return &StageError{Stage: name, RowsProcessed: rows, Err: err}
	}

	elapsed := time.Since(started)
	p.log.Info("sync stage finished",
		logger.StageName(name),
		logger.RowCount(rows),
		logger.Latency(elapsed))
	stats.Stages = append(stats.Stages, StageStats{Name: name, Rows: rows, Duration: elapsed})
	return nil
}
