package redis

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TYPE LOOKUP
//
//   session_type:{id}               hash  id, name
//   index:session_type:name:{name}  string holding the id
// ══════════════════════════════════════════════════════════════════════════════

const (
	sessionTypeKeyPrefix     = "session_type:"
	sessionTypeNameKeyPrefix = "index:session_type:name:"
)

// SessionTypeIndex implements catalog.SessionTypeLookup on the key/value
// store. Report requests filter by type name; this index turns the name
// into the id the search store filters on.
type SessionTypeIndex struct {
	client *redis.Client
}

// NewSessionTypeIndex creates a session type lookup over the given client.
func NewSessionTypeIndex(client *redis.Client) *SessionTypeIndex {
	return &SessionTypeIndex{client: client}
}

func sessionTypeKey(id catalog.SourceID) string {
	return sessionTypeKeyPrefix + strconv.FormatInt(int64(id), 10)
}

func sessionTypeNameKey(name string) string {
	return sessionTypeNameKeyPrefix + strings.ToLower(name)
}

// RebuildSessionTypes replaces the mirror with the given types.
func (x *SessionTypeIndex) RebuildSessionTypes(ctx context.Context, types []catalog.SessionType) error {
	if err := clearPrefix(ctx, x.client, sessionTypeKeyPrefix); err != nil {
		return shared.NewStoreError("redis", "clear session type keys", err)
	}
	if err := clearPrefix(ctx, x.client, sessionTypeNameKeyPrefix); err != nil {
		return shared.NewStoreError("redis", "clear session type index keys", err)
	}

	pipe := x.client.Pipeline()
	for _, t := range types {
		pipe.HSet(ctx, sessionTypeKey(t.ID), map[string]any{
			"id":   int64(t.ID),
			"name": t.Name,
		})
		pipe.Set(ctx, sessionTypeNameKey(t.Name), int64(t.ID), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return shared.NewStoreError("redis", "rebuild session type index", err)
	}
	return nil
}

// SessionTypeByName resolves a type by its exact (case-insensitive) name.
func (x *SessionTypeIndex) SessionTypeByName(ctx context.Context, name string) (catalog.SessionType, error) {
	raw, err := x.client.Get(ctx, sessionTypeNameKey(name)).Result()
	if err == redis.Nil {
		return catalog.SessionType{}, shared.ErrNotFound
	}
	if err != nil {
		return catalog.SessionType{}, shared.NewStoreError("redis", "lookup session type", err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return catalog.SessionType{}, shared.NewStoreError("redis", "decode session type id", err)
	}

	fields, err := x.client.HGetAll(ctx, sessionTypeKey(catalog.SourceID(id))).Result()
	if err != nil {
		return catalog.SessionType{}, shared.NewStoreError("redis", "get session type", err)
	}
	if len(fields) == 0 {
		return catalog.SessionType{}, shared.ErrNotFound
	}
	return catalog.SessionType{ID: catalog.SourceID(id), Name: fields["name"]}, nil
}
