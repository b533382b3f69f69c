package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

type fakeStudentIndex struct {
	records map[catalog.SourceID]student.CacheRecord
}

func (x *fakeStudentIndex) Rebuild(context.Context, []student.CacheRecord) error { return nil }

func (x *fakeStudentIndex) Get(_ context.Context, id catalog.SourceID) (student.CacheRecord, error) {
	r, ok := x.records[id]
	if !ok {
		return student.CacheRecord{}, shared.ErrNotFound
	}
	return r, nil
}

func (x *fakeStudentIndex) FindByName(_ context.Context, name string) ([]student.CacheRecord, error) {
	var out []student.CacheRecord
	for _, r := range x.records {
		if strings.EqualFold(r.Name, name) {
			out = append(out, r)
		}
	}
	return out, nil
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

func TestStudentGetReturnsCachedRecord(t *testing.T) {
	h := NewStudentHandler(&fakeStudentIndex{records: map[catalog.SourceID]student.CacheRecord{
		700: {ID: 700, Name: "Aruzhan Bekova", Age: 20, Group: "SE-2301"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/students/700", nil)
	req.SetPathValue("id", "700")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp studentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(700), resp.ID)
	assert.Equal(t, "Aruzhan Bekova", resp.Name)
}

func TestStudentGetUnknownIs404(t *testing.T) {
	h := NewStudentHandler(&fakeStudentIndex{})

	req := httptest.NewRequest(http.MethodGet, "/api/students/999", nil)
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentSearchRequiresACriterion(t *testing.T) {
	h := NewStudentHandler(&fakeStudentIndex{})

	req := httptest.NewRequest(http.MethodGet, "/api/students/search", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentSearchByName(t *testing.T) {
	h := NewStudentHandler(&fakeStudentIndex{records: map[catalog.SourceID]student.CacheRecord{
		700: {ID: 700, Name: "Aruzhan Bekova", Group: "SE-2301"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/students/search?name=aruzhan+bekova", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aruzhan Bekova")
}
