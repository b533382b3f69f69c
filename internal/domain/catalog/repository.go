package catalog

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT READERS
// The sync pipeline reads full row sets, never increments. Implementations
// live in infrastructure/persistence and must serve every call of one
// pipeline run from the same consistent snapshot of the source.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotReader provides full-snapshot access to the academic catalog.
type SnapshotReader interface {
	Universities(ctx context.Context) ([]University, error)
	Institutes(ctx context.Context) ([]Institute, error)
	Departments(ctx context.Context) ([]Department, error)
	Specialties(ctx context.Context) ([]Specialty, error)
	StudentGroups(ctx context.Context) ([]StudentGroup, error)
	Courses(ctx context.Context) ([]Course, error)
	SessionTypes(ctx context.Context) ([]SessionType, error)
	LectureSessions(ctx context.Context) ([]LectureSession, error)
	Materials(ctx context.Context) ([]Material, error)
}

// SessionDocument is the denormalized form of a LectureSession pushed into
// the full-text index. CourseName is joined in so the resolver can weight it.
type SessionDocument struct {
	SessionID       SourceID `json:"session_id"`
	Topic           string   `json:"topic"`
	CourseName      string   `json:"course_name"`
	Description     string   `json:"description"`
	Keywords        []string `json:"keywords"`
	DurationMinutes int      `json:"duration_minutes"`
	SessionTypeID   SourceID `json:"session_type_id"`
}

// SessionDocumentReader reads the joined session+course rows used to build
// the search index.
type SessionDocumentReader interface {
	SessionDocuments(ctx context.Context) ([]SessionDocument, error)
}

// SessionTypeLookup is the rebuildable name-to-type mirror kept in the
// key/value store, used to resolve session type filters by name.
type SessionTypeLookup interface {
	// RebuildSessionTypes replaces the mirror with the given types.
	RebuildSessionTypes(ctx context.Context, types []SessionType) error

	// SessionTypeByName resolves a type by its exact (case-insensitive) name.
	// Returns shared.ErrNotFound when the name is unknown.
	SessionTypeByName(ctx context.Context, name string) (SessionType, error)
}
