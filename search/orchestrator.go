// Package search implements the C6 Search Orchestrator: the end-to-end algorithm a
// single search request runs through, from cache lookup to response shaping.
package search

import (
	"context"
	"strings"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/log"
	"github.com/bobinette/research/query"
	"github.com/bobinette/research/resultcache"
)

const defaultPerPage = 20
const maxPerPage = 100

// Orchestrator wires the Embedding service, Engine, Document store and Result cache
// together into the single Search entry point.
type Orchestrator struct {
	Store    research.DocumentStore
	Engine   research.SearchEngine
	Embedder research.EmbeddingService
	Cache    research.ResultCache
	Logger   log.Logger

	// EnableRelatedPeople toggles step 7's optional institutional-directory enrichment.
	EnableRelatedPeople bool
}

// Search runs the full C6 algorithm for req and returns a shaped, possibly-cached
// response.
func (o *Orchestrator) Search(ctx context.Context, req research.SearchRequest, bypassCache bool) (research.SearchResponse, error) {
	if err := Validate(req); err != nil {
		return research.SearchResponse{}, err
	}
	req = Normalize(req)

	key := resultcache.Key(req)

	if !bypassCache && o.Cache != nil {
		if cached, ok, err := o.Cache.Get(ctx, key); err != nil {
			if o.Logger != nil {
				o.Logger.Warnf("result cache read failed: %v", err)
			}
		} else if ok {
			return *cached, nil
		}
	}

	vector, err := o.Embedder.GetQueryEmbedding(ctx, req.Query)
	if err != nil {
		return research.SearchResponse{}, err
	}

	preCheckDSL := query.BuildPreCheck(req.Query)
	total, err := o.Engine.CountMatches(ctx, preCheckDSL)
	if err != nil {
		return research.SearchResponse{}, err
	}
	if total == 0 {
		return research.SearchResponse{
			Results:    []research.SearchResult{},
			Pagination: req.Pagination,
		}, nil
	}

	dsl := query.Build(query.Request{SearchRequest: req, QueryVector: vector})

	result, err := o.Engine.Execute(ctx, dsl)
	if err != nil {
		return research.SearchResponse{}, err
	}

	results, err := o.hydrate(ctx, result.Hits)
	if err != nil {
		return research.SearchResponse{}, err
	}

	var related []research.RelatedPerson
	if o.EnableRelatedPeople {
		related, err = o.relatedPeople(ctx, results)
		if err != nil && o.Logger != nil {
			o.Logger.Warnf("related people lookup failed: %v", err)
		}
	}

	resp := research.SearchResponse{
		Results:       results,
		Total:         result.Total,
		Pagination:    req.Pagination,
		Facets:        shapeFacets(result.Aggregations),
		RelatedPeople: related,
	}

	if o.Cache != nil {
		if err := o.Cache.Set(ctx, key, resp); err != nil && o.Logger != nil {
			o.Logger.Warnf("result cache write failed: %v", err)
		}
	}

	return resp, nil
}

// hydrate fetches full authoritative records for the hits, re-emitting them in the
// engine's returned order; ids that fail to hydrate are dropped without breaking order.
func (o *Orchestrator) hydrate(ctx context.Context, hits []research.EngineHit) ([]research.SearchResult, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}

	docs, err := o.Store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]research.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	results := make([]research.SearchResult, 0, len(hits))
	for _, h := range hits {
		doc, ok := byID[h.DocumentID]
		if !ok {
			continue
		}
		results = append(results, research.SearchResult{Document: doc, Score: h.Score})
	}
	return results, nil
}

// relatedPeople scans hydrated authors for matched institutional emails, looks up the
// corresponding people records, and deduplicates by person id.
func (o *Orchestrator) relatedPeople(ctx context.Context, results []research.SearchResult) ([]research.RelatedPerson, error) {
	var prefixes []string
	seenEmail := map[string]bool{}
	for _, r := range results {
		for _, a := range r.Document.Authors {
			if !a.HasMatchedProfile || a.AuthorEmail == "" {
				continue
			}
			if seenEmail[a.AuthorEmail] {
				continue
			}
			seenEmail[a.AuthorEmail] = true
			prefixes = append(prefixes, emailLocalPart(a.AuthorEmail))
		}
	}
	if len(prefixes) == 0 {
		return nil, nil
	}

	people, err := o.Store.FindPeopleByEmailPrefix(ctx, prefixes)
	if err != nil {
		return nil, err
	}

	matchCounts := map[string]int{}
	for _, r := range results {
		for _, a := range r.Document.Authors {
			if a.HasMatchedProfile && a.AuthorEmail != "" {
				matchCounts[a.AuthorEmail]++
			}
		}
	}

	seen := map[string]bool{}
	var related []research.RelatedPerson
	for _, p := range people {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		related = append(related, research.RelatedPerson{
			PersonID:    p.ID,
			Name:        p.Name,
			Email:       p.Email,
			Affiliation: p.Affiliation,
			MatchCount:  matchCounts[p.Email],
		})
	}
	return related, nil
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func shapeFacets(aggs map[string][]research.EngineAggregationBucket) research.Facets {
	return research.Facets{
		Years:         aggs["years"],
		YearRanges:    aggs["year_ranges"],
		DocumentTypes: aggs["document_types"],
		Fields:        aggs["fields"],
		SubjectAreas:  aggs["subject_areas"],
	}
}

// Validate checks request invariants that must fail before any I/O: an empty query and
// an out-of-range per_page are both 400s.
func Validate(req research.SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return errors.ValidationError("query must not be empty", nil)
	}
	if req.Pagination.Limit > maxPerPage {
		return errors.ValidationError("per_page must be at most 100", nil)
	}
	return nil
}

// Normalize fills in defaults (sort mode, page size) and clamps pagination so that the
// rest of the pipeline — cache key derivation included — always sees a fully-formed
// request.
func Normalize(req research.SearchRequest) research.SearchRequest {
	if req.Mode == "" {
		req.Mode = research.SortRelevance
	}
	if req.Pagination.Limit <= 0 {
		req.Pagination.Limit = defaultPerPage
	}
	if req.Pagination.Offset < 0 {
		req.Pagination.Offset = 0
	}
	return req
}
