// Package query is the C5 Query Planner: it compiles a research.SearchRequest plus a
// query embedding vector into a complete engine query DSL, one of three ranking modes.
// It is a pure function of its inputs — no I/O, no state.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/bobinette/research"
)

// searchField is one "logical field" a query can search over, and the boost weights
// applied to it and its sub-field variants.
type searchField struct {
	Name      string
	Field     string
	ExactBoost    float64
	NgramField    string
	NgramBoost    float64
}

// defaultSearchIn is used whenever a request's search_in is empty.
var defaultSearchIn = []string{"title", "abstract", "author", "subject_area", "field"}

var fieldBoosts = map[string]searchField{
	"title":        {Name: "title", Field: "title", ExactBoost: 4, NgramField: "title.exact", NgramBoost: 5},
	"abstract":     {Name: "abstract", Field: "abstract", ExactBoost: 1.5},
	"author":       {Name: "author", Field: "author_names", ExactBoost: 2, NgramField: "author_names.ngram", NgramBoost: 1.5},
	"author_variant": {Name: "author_variant", Field: "author_name_variants", ExactBoost: 2.5, NgramField: "author_name_variants.ngram", NgramBoost: 1.5},
	"subject_area": {Name: "subject_area", Field: "subject_area", ExactBoost: 3, NgramField: "subject_area.ngram", NgramBoost: 2},
	"field":        {Name: "field", Field: "field_associated", ExactBoost: 2.5, NgramField: "field_associated.ngram", NgramBoost: 1.5},
}

const phraseBoost = 2.5
const fieldSpecificMultiplier = 1.5
const knnK = 100
const citationFactorDefault = 0.3
const normalizedBM25Weight = 0.4
const normalizedVectorWeight = 0.6

// Request is everything the planner needs: the parsed search request, plus the query's
// embedding vector (nil omits the hybrid k-NN clause; the normalized-mode script still
// passes it as query_vector).
type Request struct {
	research.SearchRequest
	QueryVector []float32
	Now         time.Time // injected for deterministic gaussian-decay origin in tests
}

// Build compiles req into a complete engine query DSL for its requested mode.
func Build(req Request) map[string]interface{} {
	switch req.Mode {
	case research.SortImpact:
		return buildImpact(req)
	case research.SortNormalized:
		return buildNormalized(req)
	default:
		return buildHybrid(req)
	}
}

// BuildPreCheck compiles the cheap BM25-only multi_match used by the orchestrator's
// step 3 zero-hit short-circuit: size 0, no aggregations, no k-NN.
func BuildPreCheck(queryText string) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  queryText,
				"fields": []string{"title", "abstract", "author_names", "subject_area"},
			},
		},
	}
}

func buildHybrid(req Request) map[string]interface{} {
	should := []map[string]interface{}{
		multiMatchClause(req),
	}
	should = append(should, auxiliaryShoulds(req)...)
	if len(req.QueryVector) > 0 {
		should = append(should, knnClause(req.QueryVector))
	}

	boolQuery := map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
			"filter":               compileFilters(req.Filters),
		},
	}

	dsl := baseDSL(req, boolQuery)
	dsl["min_score"] = 1.0 // relaxed floor chosen over the 5.0 static default; see DESIGN.md Open Question 2
	dsl["sort"] = hybridSort(req.SortMode())
	return dsl
}

func buildImpact(req Request) map[string]interface{} {
	should := auxiliaryShoulds(req)

	boolQuery := map[string]interface{}{
		"bool": map[string]interface{}{
			"must":   []map[string]interface{}{multiMatchClause(req)},
			"should": should,
			"filter": compileFilters(req.Filters),
		},
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	functionScore := map[string]interface{}{
		"function_score": map[string]interface{}{
			"query": boolQuery,
			"functions": []map[string]interface{}{
				{
					"field_value_factor": map[string]interface{}{
						"field":    "citation_count",
						"modifier": "log1p",
						"factor":   citationFactorDefault,
					},
					"weight": 1.2,
				},
				{
					"gauss": map[string]interface{}{
						"publication_year": map[string]interface{}{
							"origin": now.Year(),
							"scale":  5,
							"decay":  0.5,
						},
					},
					"weight": 0.8,
				},
			},
			"score_mode": "sum",
			"boost_mode": "multiply",
		},
	}

	dsl := baseDSL(req, functionScore)
	dsl["min_score"] = 5.0
	return dsl
}

func buildNormalized(req Request) map[string]interface{} {
	should := []map[string]interface{}{multiMatchClause(req)}
	should = append(should, auxiliaryShoulds(req)...)

	boolQuery := map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
			"filter":               compileFilters(req.Filters),
		},
	}

	source := `
		double bm25 = _score;
		double bm25n = bm25 / (1 + bm25);
		double knn = cosineSimilarity(params.query_vector, 'embedding');
		double knnn = (knn + 1) / 2;
		return params.w_bm25 * bm25n + params.w_vec * knnn;
	`

	scriptScore := map[string]interface{}{
		"script_score": map[string]interface{}{
			"query": boolQuery,
			"script": map[string]interface{}{
				"source": source,
				"params": map[string]interface{}{
					"query_vector": req.QueryVector,
					"w_bm25":       normalizedBM25Weight,
					"w_vec":        normalizedVectorWeight,
				},
			},
		},
	}

	dsl := baseDSL(req, scriptScore)
	dsl["min_score"] = 0.3
	return dsl
}

// baseDSL wires the common envelope shared by every mode: pagination, source filtering,
// facet aggregations and total-hit tracking.
func baseDSL(req Request, scoredQuery map[string]interface{}) map[string]interface{} {
	page := req.Pagination.Offset
	size := req.Pagination.Limit

	return map[string]interface{}{
		"query":            scoredQuery,
		"from":             page,
		"size":             size,
		"track_total_hits": true,
		"_source":          []string{"mongo_id"},
		"aggs":             aggregations(),
	}
}

func hybridSort(sort string) []map[string]interface{} {
	switch sort {
	case "date":
		return []map[string]interface{}{{"publication_year": "desc"}, {"_score": "desc"}}
	case "citations":
		return []map[string]interface{}{{"citation_count": "desc"}, {"_score": "desc"}}
	default:
		return []map[string]interface{}{{"_score": "desc"}}
	}
}

// SortMode extracts the sub-sort key (date/citations/relevance) carried by a hybrid
// request's Mode field, since spec.md overloads "mode" with these three sub-sorts.
func (r Request) SortMode() string {
	return string(r.Mode)
}

func searchInOrDefault(searchIn []string) []string {
	return SearchInOrDefault(searchIn)
}

// SearchInOrDefault returns searchIn unchanged, or the default logical field set if it
// is empty. Exported so the result cache's key derivation (spec.md §4.7) can normalize
// an explicit default-equivalent search_in the same way the planner does, satisfying
// I5's "default vs equivalent explicit list" stability requirement.
func SearchInOrDefault(searchIn []string) []string {
	if len(searchIn) == 0 {
		return defaultSearchIn
	}
	return searchIn
}

// multiMatchClause builds the primary weighted multi-match, boosting fields named in
// searchIn (or the default set) by fieldSpecificMultiplier over the base boost table.
// The multi-word phrase boost is added separately by auxiliaryShoulds.
func multiMatchClause(req Request) map[string]interface{} {
	searchIn := searchInOrDefault(req.SearchIn)
	fields := boostedFields(searchIn)

	clause := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":       req.Query,
			"fields":      fields,
			"type":        "best_fields",
			"tie_breaker": 0.3,
			"fuzziness":   "AUTO",
		},
	}
	return clause
}

func boostedFields(searchIn []string) []string {
	inSet := make(map[string]bool, len(searchIn))
	for _, s := range searchIn {
		inSet[s] = true
	}

	var fields []string
	for _, key := range []string{"title", "abstract", "author", "author_variant", "subject_area", "field"} {
		sf := fieldBoosts[key]
		boost := sf.ExactBoost
		ngramBoost := sf.NgramBoost
		if inSet[sf.Name] {
			boost *= fieldSpecificMultiplier
			ngramBoost *= fieldSpecificMultiplier
		}

		fields = append(fields, boostField(sf.Field, boost))
		if sf.NgramField != "" {
			fields = append(fields, boostField(sf.NgramField, ngramBoost))
		}
	}
	return fields
}

func boostField(field string, boost float64) string {
	return field + "^" + strconv.FormatFloat(boost, 'f', -1, 64)
}

// auxiliaryShoulds builds the subject-area match, field-associated match and optional
// phrase-boost should clauses shared by the hybrid, impact and normalized modes.
func auxiliaryShoulds(req Request) []map[string]interface{} {
	var clauses []map[string]interface{}

	clauses = append(clauses, map[string]interface{}{
		"match": map[string]interface{}{
			"subject_area": map[string]interface{}{"query": req.Query, "boost": 2.0},
		},
	})
	clauses = append(clauses, map[string]interface{}{
		"match": map[string]interface{}{
			"field_associated": map[string]interface{}{"query": req.Query, "boost": 1.5},
		},
	})

	if isMultiWord(req.Query) {
		clauses = append(clauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  req.Query,
				"type":   "phrase",
				"slop":   2,
				"fields": []string{"title^5", "abstract^2"},
				"boost":  phraseBoost,
			},
		})
	}

	return clauses
}

func isMultiWord(q string) bool {
	return len(strings.Fields(strings.TrimSpace(q))) >= 2
}

func knnClause(vector []float32) map[string]interface{} {
	return map[string]interface{}{
		"knn": map[string]interface{}{
			"embedding": map[string]interface{}{
				"vector": vector,
				"k":      knnK,
			},
		},
	}
}

// compileFilters turns a research.Filters into the engine's filter-clause array.
func compileFilters(f research.Filters) []map[string]interface{} {
	var clauses []map[string]interface{}

	if f.YearFrom != 0 || f.YearTo != 0 {
		rangeClause := map[string]interface{}{}
		if f.YearFrom != 0 {
			rangeClause["gte"] = f.YearFrom
		}
		if f.YearTo != 0 {
			rangeClause["lte"] = f.YearTo
		}
		clauses = append(clauses, map[string]interface{}{
			"range": map[string]interface{}{"publication_year": rangeClause},
		})
	}

	if f.FieldAssociated != "" {
		clauses = append(clauses, term("field_associated.keyword", f.FieldAssociated))
	}

	if f.DocumentType != "" {
		clauses = append(clauses, term("document_type", f.DocumentType))
	}
	if len(f.DocumentTypes) > 0 {
		clauses = append(clauses, terms("document_type", f.DocumentTypes))
	}

	if len(f.SubjectArea) > 0 {
		clauses = append(clauses, terms("subject_area.keyword", f.SubjectArea))
	}

	if f.AuthorID != "" {
		clauses = append(clauses, nested("authors", term("authors.author_id", f.AuthorID)))
	}
	if f.Affiliation != "" {
		clauses = append(clauses, nested("authors", map[string]interface{}{
			"match": map[string]interface{}{"authors.author_affiliation": f.Affiliation},
		}))
	}
	if f.FirstAuthorOnly {
		clauses = append(clauses, nested("authors", term("authors.author_position", 1)))
	}

	if f.Interdisciplinary {
		clauses = append(clauses, map[string]interface{}{
			"range": map[string]interface{}{"subject_area_count": map[string]interface{}{"gte": 3}},
		})
	}

	return clauses
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func terms(field string, values []string) map[string]interface{} {
	return map[string]interface{}{"terms": map[string]interface{}{field: values}}
}

func nested(path string, query map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"nested": map[string]interface{}{
			"path":  path,
			"query": query,
		},
	}
}

// aggregations returns the facet buckets always attached to a search: years, fixed
// year ranges, document types, fields and subject areas.
func aggregations() map[string]interface{} {
	return map[string]interface{}{
		"years": map[string]interface{}{
			"terms": map[string]interface{}{"field": "publication_year", "size": 30, "order": map[string]interface{}{"_key": "desc"}},
		},
		"year_ranges": map[string]interface{}{
			"range": map[string]interface{}{
				"field": "publication_year",
				"ranges": []map[string]interface{}{
					{"key": "<2000", "to": 2000},
					{"key": "2000-2009", "from": 2000, "to": 2010},
					{"key": "2010-2019", "from": 2010, "to": 2020},
					{"key": "2020-Present", "from": 2020},
				},
			},
		},
		"document_types": map[string]interface{}{
			"terms": map[string]interface{}{"field": "document_type", "size": 15},
		},
		"fields": map[string]interface{}{
			"terms": map[string]interface{}{"field": "field_associated.keyword", "size": 30},
		},
		"subject_areas": map[string]interface{}{
			"terms": map[string]interface{}{"field": "subject_area.keyword", "size": 50},
		},
	}
}
