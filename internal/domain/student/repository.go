package student

import (
	"context"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
)

// SnapshotReader provides full-snapshot access to students. Same consistency
// contract as catalog.SnapshotReader: one pipeline run, one snapshot.
type SnapshotReader interface {
	// Students returns every student row.
	Students(ctx context.Context) ([]Student, error)

	// CacheRecords returns the flattened student+group rows the cache index
	// is built from.
	CacheRecords(ctx context.Context) ([]CacheRecord, error)
}

// CacheIndex is the rebuildable key/value mirror of students.
// Rebuild must be idempotent: it clears every key the index owns before
// repopulating, so repeated rebuilds from the same snapshot are equivalent.
type CacheIndex interface {
	// Rebuild replaces the full index with the given records.
	Rebuild(ctx context.Context, records []CacheRecord) error

	// Get returns the record for one student id.
	// Returns shared.ErrNotFound when the id is not cached.
	Get(ctx context.Context, id catalog.SourceID) (CacheRecord, error)

	// FindByName returns students with the exact (case-insensitive) name.
	FindByName(ctx context.Context, name string) ([]CacheRecord, error)

	// FindByEmail returns students with the exact (case-insensitive) email.
	FindByEmail(ctx context.Context, email string) ([]CacheRecord, error)

	// FindByGroup returns students of the exact (case-insensitive) group.
	FindByGroup(ctx context.Context, group string) ([]CacheRecord, error)

	// Search intersects the token index over all query terms.
	Search(ctx context.Context, query string) ([]CacheRecord, error)
}
