package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT CACHE INDEX
// One hash per student plus exact-match and token index sets. Lookup keys
// are lowercased on write and on read, so matching is case-insensitive.
//
//   student:{id}                   hash  id, name, age, mail, group
//   index:student:name:{name}     set of student ids
//   index:student:email:{email}   set of student ids
//   index:student:group:{group}   set of student ids
//   index:student:search:{token}  set of student ids
// ══════════════════════════════════════════════════════════════════════════════

const (
	studentKeyPrefix = "student:"
	indexKeyPrefix   = "index:student:"
)

// StudentIndex implements student.CacheIndex on the key/value store.
type StudentIndex struct {
	client *redis.Client
}

// NewStudentIndex creates a student cache index over the given client.
func NewStudentIndex(client *redis.Client) *StudentIndex {
	return &StudentIndex{client: client}
}

func studentKey(id catalog.SourceID) string {
	return studentKeyPrefix + strconv.FormatInt(int64(id), 10)
}

func nameKey(name string) string   { return indexKeyPrefix + "name:" + strings.ToLower(name) }
func emailKey(email string) string { return indexKeyPrefix + "email:" + strings.ToLower(email) }
func groupKey(group string) string { return indexKeyPrefix + "group:" + strings.ToLower(group) }
func tokenKey(token string) string { return indexKeyPrefix + "search:" + token }

// recordFields flattens a record into the hash field form.
func recordFields(r student.CacheRecord) map[string]any {
	return map[string]any{
		"id":    int64(r.ID),
		"name":  r.Name,
		"age":   r.Age,
		"mail":  r.Mail,
		"group": r.Group,
	}
}

// recordFromFields rebuilds a record from the hash field form.
func recordFromFields(fields map[string]string) (student.CacheRecord, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return student.CacheRecord{}, shared.NewStoreError("redis", "decode student record", err)
	}
	age, _ := strconv.Atoi(fields["age"])
	return student.CacheRecord{
		ID:    catalog.SourceID(id),
		Name:  fields["name"],
		Age:   age,
		Mail:  fields["mail"],
		Group: fields["group"],
	}, nil
}

// Rebuild replaces the full index. Owned prefixes are cleared first so
// records deleted from the source disappear from the index.
func (x *StudentIndex) Rebuild(ctx context.Context, records []student.CacheRecord) error {
	if err := clearPrefix(ctx, x.client, studentKeyPrefix); err != nil {
		return shared.NewStoreError("redis", "clear student keys", err)
	}
	if err := clearPrefix(ctx, x.client, indexKeyPrefix); err != nil {
		return shared.NewStoreError("redis", "clear student index keys", err)
	}

	pipe := x.client.Pipeline()
	for _, r := range records {
		id := strconv.FormatInt(int64(r.ID), 10)
		pipe.HSet(ctx, studentKey(r.ID), recordFields(r))
		if r.Name != "" {
			pipe.SAdd(ctx, nameKey(r.Name), id)
		}
		if r.Mail != "" {
			pipe.SAdd(ctx, emailKey(r.Mail), id)
		}
		if r.Group != "" {
			pipe.SAdd(ctx, groupKey(r.Group), id)
		}
		for _, token := range r.SearchTokens() {
			pipe.SAdd(ctx, tokenKey(token), id)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return shared.NewStoreError("redis", "rebuild student index", err)
	}
	return nil
}

// Get returns the record for one student id.
func (x *StudentIndex) Get(ctx context.Context, id catalog.SourceID) (student.CacheRecord, error) {
	fields, err := x.client.HGetAll(ctx, studentKey(id)).Result()
	if err != nil {
		return student.CacheRecord{}, shared.NewStoreError("redis", "get student", err)
	}
	if len(fields) == 0 {
		return student.CacheRecord{}, shared.ErrNotFound
	}
	return recordFromFields(fields)
}

// FindByName returns students with the exact (case-insensitive) name.
func (x *StudentIndex) FindByName(ctx context.Context, name string) ([]student.CacheRecord, error) {
	return x.fetchSet(ctx, nameKey(name))
}

// FindByEmail returns students with the exact (case-insensitive) email.
func (x *StudentIndex) FindByEmail(ctx context.Context, email string) ([]student.CacheRecord, error) {
	return x.fetchSet(ctx, emailKey(email))
}

// FindByGroup returns students of the exact (case-insensitive) group.
func (x *StudentIndex) FindByGroup(ctx context.Context, group string) ([]student.CacheRecord, error) {
	return x.fetchSet(ctx, groupKey(group))
}

// Search intersects the token index over all query terms. Every term must
// match; an empty query matches nothing.
func (x *StudentIndex) Search(ctx context.Context, query string) ([]student.CacheRecord, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	keys := make([]string, len(terms))
	for i, t := range terms {
		keys[i] = tokenKey(t)
	}
	ids, err := x.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, shared.NewStoreError("redis", "search students", err)
	}
	return x.fetchIDs(ctx, ids)
}

// fetchSet loads the records behind one index set.
func (x *StudentIndex) fetchSet(ctx context.Context, key string) ([]student.CacheRecord, error) {
	ids, err := x.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, shared.NewStoreError("redis", "read student index", err)
	}
	return x.fetchIDs(ctx, ids)
}

// fetchIDs resolves raw id strings into records, skipping ids whose hash
// vanished between the set read and the hash read. Results are ordered by
// id so lookups are deterministic.
func (x *StudentIndex) fetchIDs(ctx context.Context, ids []string) ([]student.CacheRecord, error) {
	records := make([]student.CacheRecord, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		record, err := x.Get(ctx, catalog.SourceID(id))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
