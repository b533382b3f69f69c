// Package student contains the student domain model and the contracts for
// the flattened cache index built on top of the relational snapshot.
package student

import (
	"strings"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
)

// Student belongs to exactly one StudentGroup.
type Student struct {
	ID             catalog.SourceID
	GroupID        catalog.SourceID
	Name           string
	EnrollmentYear int
	DateOfBirth    time.Time
	Email          string
	BookNumber     string
}

// Age derives an approximate age from the date of birth at the given moment.
// Returns 0 when the birth date is unknown.
func (s Student) Age(now time.Time) int {
	if s.DateOfBirth.IsZero() {
		return 0
	}
	age := now.Year() - s.DateOfBirth.Year()
	if now.YearDay() < s.DateOfBirth.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE RECORD
// ══════════════════════════════════════════════════════════════════════════════

// CacheRecord is the flattened, denormalized student record kept in the
// key/value store for fast lookup. GroupName is joined in at build time so
// reads never touch the relational source.
type CacheRecord struct {
	ID    catalog.SourceID
	Name  string
	Age   int
	Mail  string
	Group string
}

// SearchTokens returns the lowercase tokens indexed for full-text lookup.
// Tokenization is plain whitespace splitting over name, mail and group,
// matching what the index builder writes.
func (r CacheRecord) SearchTokens() []string {
	raw := strings.Fields(strings.ToLower(r.Name + " " + r.Mail + " " + r.Group))
	seen := make(map[string]struct{}, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}
