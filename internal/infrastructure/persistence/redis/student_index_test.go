package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// testClient runs the index against an in-process store so rebuild and
// lookup semantics are exercised end to end.
func testClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRecordFieldsRoundTrip(t *testing.T) {
	original := student.CacheRecord{
		ID:    42,
		Name:  "Aruzhan Bekova",
		Age:   20,
		Mail:  "aruzhan@example.edu",
		Group: "SE-2301",
	}

	fields := recordFields(original)
	stringFields := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			stringFields[k] = val
		case int:
			stringFields[k] = "20"
		case int64:
			stringFields[k] = "42"
		}
	}

	decoded, err := recordFromFields(stringFields)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestRecordFromFieldsRejectsMissingID(t *testing.T) {
	_, err := recordFromFields(map[string]string{"name": "no id"})
	assert.Error(t, err)
}

func TestLookupKeysAreCaseInsensitive(t *testing.T) {
	assert.Equal(t, nameKey("aruzhan bekova"), nameKey("Aruzhan Bekova"))
	assert.Equal(t, emailKey("a@b.edu"), emailKey("A@B.EDU"))
	assert.Equal(t, groupKey("se-2301"), groupKey("SE-2301"))
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "student:7", studentKey(7))
	assert.Equal(t, "index:student:name:aruzhan bekova", nameKey("Aruzhan Bekova"))
	assert.Equal(t, "index:student:search:se-2301", tokenKey("se-2301"))
	assert.Equal(t, "session_type:3", sessionTypeKey(3))
	assert.Equal(t, "index:session_type:name:lecture", sessionTypeNameKey("Lecture"))
}

func TestRebuildClearsOwnedKeysFirst(t *testing.T) {
	mr, client := testClient(t)
	ctx := context.Background()

	// Stale state from a previous sync: a student since deleted from the
	// source, plus index entries pointing at it.
	mr.HSet("student:999", "id", "999", "name", "Gone Student")
	_, err := mr.SAdd("index:student:name:gone student", "999")
	require.NoError(t, err)
	_, err = mr.SAdd("index:student:search:gone", "999")
	require.NoError(t, err)

	// A key outside the owned prefixes must survive the rebuild.
	mr.HSet("session_type:1", "id", "1", "name", "Lecture")

	index := NewStudentIndex(client)
	require.NoError(t, index.Rebuild(ctx, []student.CacheRecord{
		{ID: 700, Name: "Aruzhan Bekova", Age: 20, Mail: "aruzhan@example.edu", Group: "SE-2301"},
	}))

	assert.False(t, mr.Exists("student:999"), "stale record hash must be cleared")
	assert.False(t, mr.Exists("index:student:name:gone student"), "stale name index must be cleared")
	assert.False(t, mr.Exists("index:student:search:gone"), "stale token index must be cleared")
	assert.True(t, mr.Exists("session_type:1"), "keys outside the owned prefixes must survive")

	record, err := index.Get(ctx, 700)
	require.NoError(t, err)
	assert.Equal(t, "Aruzhan Bekova", record.Name)

	byName, err := index.FindByName(ctx, "ARUZHAN BEKOVA")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, student.CacheRecord{ID: 700, Name: "Aruzhan Bekova", Age: 20, Mail: "aruzhan@example.edu", Group: "SE-2301"}, byName[0])
}

func TestRebuildIsIdempotentOnTheStore(t *testing.T) {
	mr, client := testClient(t)
	ctx := context.Background()

	records := []student.CacheRecord{
		{ID: 700, Name: "Aruzhan Bekova", Mail: "aruzhan@example.edu", Group: "SE-2301"},
		{ID: 701, Name: "Dias Omarov", Mail: "dias@example.edu", Group: "SE-2301"},
	}

	index := NewStudentIndex(client)
	require.NoError(t, index.Rebuild(ctx, records))
	first := len(mr.Keys())
	require.NoError(t, index.Rebuild(ctx, records))

	assert.Equal(t, first, len(mr.Keys()), "same snapshot must leave the same key set")

	group, err := index.FindByGroup(ctx, "se-2301")
	require.NoError(t, err)
	assert.Len(t, group, 2)
}

func TestSearchIntersectsTokenSets(t *testing.T) {
	_, client := testClient(t)
	ctx := context.Background()

	index := NewStudentIndex(client)
	require.NoError(t, index.Rebuild(ctx, []student.CacheRecord{
		{ID: 700, Name: "Aruzhan Bekova", Group: "SE-2301"},
		{ID: 701, Name: "Aruzhan Seitova", Group: "SE-2302"},
	}))

	hits, err := index.Search(ctx, "aruzhan bekova")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(700), int64(hits[0].ID))

	both, err := index.Search(ctx, "Aruzhan")
	require.NoError(t, err)
	assert.Len(t, both, 2)
}
