package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/research"
)

func TestBuildHybridIncludesKNNWhenVectorPresent(t *testing.T) {
	req := Request{
		SearchRequest: research.SearchRequest{
			Query:      "carbon nanotubes",
			Mode:       research.SortRelevance,
			Pagination: research.Pagination{Offset: 0, Limit: 10},
		},
		QueryVector: []float32{0.1, 0.2, 0.3},
	}

	dsl := Build(req)

	boolQuery := dsl["query"].(map[string]interface{})["bool"].(map[string]interface{})
	should := boolQuery["should"].([]map[string]interface{})

	var sawKNN bool
	for _, clause := range should {
		if _, ok := clause["knn"]; ok {
			sawKNN = true
		}
	}
	assert.True(t, sawKNN)
	assert.Equal(t, 1.0, dsl["min_score"])
}

func TestBuildHybridOmitsKNNWithoutVector(t *testing.T) {
	req := Request{
		SearchRequest: research.SearchRequest{Query: "carbon nanotubes"},
	}

	dsl := Build(req)
	boolQuery := dsl["query"].(map[string]interface{})["bool"].(map[string]interface{})
	should := boolQuery["should"].([]map[string]interface{})

	for _, clause := range should {
		_, ok := clause["knn"]
		assert.False(t, ok)
	}
}

func TestPhraseBoostOnlyForMultiWordQueries(t *testing.T) {
	single := auxiliaryShoulds(Request{SearchRequest: research.SearchRequest{Query: "nanotubes"}})
	multi := auxiliaryShoulds(Request{SearchRequest: research.SearchRequest{Query: "carbon nanotubes"}})

	assert.Len(t, single, 2)
	assert.Len(t, multi, 3)
}

func TestCompileFiltersInterdisciplinary(t *testing.T) {
	clauses := compileFilters(research.Filters{Interdisciplinary: true})
	require.Len(t, clauses, 1)

	rangeClause := clauses[0]["range"].(map[string]interface{})
	subjectAreaCount := rangeClause["subject_area_count"].(map[string]interface{})
	assert.Equal(t, 3, subjectAreaCount["gte"])
}

func TestCompileFiltersFirstAuthorOnlyIsNested(t *testing.T) {
	clauses := compileFilters(research.Filters{FirstAuthorOnly: true})
	require.Len(t, clauses, 1)

	nestedClause := clauses[0]["nested"].(map[string]interface{})
	assert.Equal(t, "authors", nestedClause["path"])
}

func TestBuildImpactUsesFunctionScore(t *testing.T) {
	req := Request{
		SearchRequest: research.SearchRequest{Query: "quantum computing", Mode: research.SortImpact},
		Now:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	dsl := Build(req)
	_, ok := dsl["query"].(map[string]interface{})["function_score"]
	assert.True(t, ok)
	assert.Equal(t, 5.0, dsl["min_score"])
}

func TestBuildNormalizedUsesScriptScore(t *testing.T) {
	req := Request{
		SearchRequest: research.SearchRequest{Query: "diffusion models", Mode: research.SortNormalized},
		QueryVector:   []float32{0.5, 0.5},
	}

	dsl := Build(req)
	_, ok := dsl["query"].(map[string]interface{})["script_score"]
	assert.True(t, ok)
	assert.Equal(t, 0.3, dsl["min_score"])
}

func TestBuildPreCheckIsSizeZero(t *testing.T) {
	dsl := BuildPreCheck("zzzqqq")
	assert.Equal(t, 0, dsl["size"])
}
