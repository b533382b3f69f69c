package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
)

func TestBuildDocsNestsHierarchy(t *testing.T) {
	docs := BuildDocs(
		[]catalog.University{
			{ID: 1, Name: "Kazakh National University"},
			{ID: 2, Name: "Polytechnic University"},
		},
		[]catalog.Institute{
			{ID: 10, UniversityID: 1, Name: "Institute of Information Technology"},
			{ID: 11, UniversityID: 1, Name: "Institute of Economics"},
		},
		[]catalog.Department{
			{ID: 100, InstituteID: 10, Name: "Software Engineering"},
		},
		[]catalog.Specialty{
			{ID: 1000, DepartmentID: 100, Name: "Software Engineering"},
			{ID: 1001, DepartmentID: 100, Name: "Data Science"},
		},
	)

	require.Len(t, docs, 2)
	assert.Equal(t, int64(1), docs[0].SourceID)
	require.Len(t, docs[0].Institutes, 2)

	it := docs[0].Institutes[0]
	assert.Equal(t, "Institute of Information Technology", it.Name)
	require.Len(t, it.Departments, 1)
	assert.Equal(t, []string{"Software Engineering", "Data Science"}, it.Departments[0].Specialties)

	assert.Empty(t, docs[0].Institutes[1].Departments)
	assert.Empty(t, docs[1].Institutes)
}

func TestBuildDocsEmptySnapshot(t *testing.T) {
	docs := BuildDocs(nil, nil, nil, nil)
	assert.Empty(t, docs)
}
