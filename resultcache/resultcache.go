// Package resultcache implements the C7 collaborator: a TTL'd cache of whole
// research.SearchResponse values, keyed by a stable hash of the normalized request that
// produced them.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/kvcache"
	"github.com/bobinette/research/query"
)

// Cache is the concrete research.ResultCache, backed by kvcache.
type Cache struct {
	store *kvcache.Cache
}

// New wraps store, namespaced to "search:" keys as required by the key derivation below.
func New(store *kvcache.Cache) *Cache {
	return &Cache{store: store}
}

// Get returns the cached response for key, and false on a cache miss.
func (c *Cache) Get(ctx context.Context, key string) (*research.SearchResponse, bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	var resp research.SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, errors.CacheFailure("decode cached search response", err)
	}
	resp.FromCache = true
	return &resp, true, nil
}

// Ping checks connectivity to the underlying store, used by /search/health.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Set stores resp under key.
func (c *Cache) Set(ctx context.Context, key string, resp research.SearchResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.CacheFailure("encode search response", err)
	}
	return c.store.Set(ctx, key, raw)
}

// Key derives the cache key for a request: "search:" followed by the first 16 hex
// characters of the SHA-256 of the request's stable JSON form (sorted keys, null/zero
// fields stripped), so two requests that normalize identically always collide.
func Key(req research.SearchRequest) string {
	stable := stableRequest(req)
	raw, _ := json.Marshal(stable)
	sum := sha256.Sum256(raw)
	return "search:" + hex.EncodeToString(sum[:])[:16]
}

// stableRequest turns a request into a map with every zero-value field omitted, then
// relies on encoding/json's own sorted-key map marshalling for a canonical byte form.
func stableRequest(req research.SearchRequest) map[string]interface{} {
	m := map[string]interface{}{}

	if req.Query != "" {
		m["query"] = req.Query
	}
	if req.Mode != "" {
		m["mode"] = string(req.Mode)
	}

	f := map[string]interface{}{}
	if req.Filters.YearFrom != 0 {
		f["year_from"] = req.Filters.YearFrom
	}
	if req.Filters.YearTo != 0 {
		f["year_to"] = req.Filters.YearTo
	}
	if req.Filters.FieldAssociated != "" {
		f["field_associated"] = req.Filters.FieldAssociated
	}
	if req.Filters.DocumentType != "" {
		f["document_type"] = req.Filters.DocumentType
	}
	if len(req.Filters.DocumentTypes) > 0 {
		types := append([]string(nil), req.Filters.DocumentTypes...)
		sort.Strings(types)
		f["document_types"] = types
	}
	if len(req.Filters.SubjectArea) > 0 {
		areas := append([]string(nil), req.Filters.SubjectArea...)
		sort.Strings(areas)
		f["subject_area"] = areas
	}
	if req.Filters.AuthorID != "" {
		f["author_id"] = req.Filters.AuthorID
	}
	if req.Filters.Affiliation != "" {
		f["affiliation"] = req.Filters.Affiliation
	}
	if req.Filters.FirstAuthorOnly {
		f["first_author_only"] = true
	}
	if req.Filters.Interdisciplinary {
		f["interdisciplinary"] = true
	}
	if len(f) > 0 {
		m["filters"] = f
	}

	if req.Pagination.Offset != 0 {
		m["offset"] = req.Pagination.Offset
	}
	if req.Pagination.Limit != 0 {
		m["limit"] = req.Pagination.Limit
	}

	searchIn := append([]string(nil), query.SearchInOrDefault(req.SearchIn)...)
	sort.Strings(searchIn)
	m["search_in"] = searchIn

	return m
}
