package research

import "context"

// SortMode selects one of the three ranking strategies a search request can run under.
type SortMode string

const (
	SortRelevance  SortMode = "hybrid"     // BM25 should-union k-NN, reciprocal-ish blend
	SortImpact     SortMode = "impact"     // function_score: field_value_factor + gaussian recency decay
	SortNormalized SortMode = "normalized" // script_score: squashed BM25 fused with rescaled cosine
)

// Filters narrows a search to documents matching every non-zero field. Slice fields are
// OR'd within themselves and AND'd against every other filter.
type Filters struct {
	YearFrom           int
	YearTo             int
	FieldAssociated    string
	DocumentType       string
	DocumentTypes      []string
	SubjectArea        []string
	AuthorID           string
	Affiliation        string
	FirstAuthorOnly    bool
	Interdisciplinary  bool // true: subject_area_count >= 3
}

// Pagination is a simple offset/limit window, shared by request and response.
type Pagination struct {
	Offset int
	Limit  int
}

// SearchRequest is the fully-parsed, normalized form of an incoming search. Normalize
// must run before this value is used for cache-key derivation or query planning.
type SearchRequest struct {
	Query      string
	Mode       SortMode
	Filters    Filters
	Pagination Pagination
	SearchIn   []string // logical fields to search; empty means the default set
}

// RelatedPerson is a single entry in a search response's optional people enrichment,
// resolved from matched-author emails via DocumentStore.FindPeopleByEmailPrefix.
type RelatedPerson struct {
	PersonID    string
	Name        string
	Email       string
	Affiliation string
	MatchCount  int // number of hits in this response this person is an author on
}

// Facets summarizes the aggregation buckets returned alongside a search's hits.
type Facets struct {
	Years         []EngineAggregationBucket
	YearRanges    []EngineAggregationBucket
	DocumentTypes []EngineAggregationBucket
	Fields        []EngineAggregationBucket
	SubjectAreas  []EngineAggregationBucket
}

// SearchResult is a single hydrated, ordered hit in a SearchResponse.
type SearchResult struct {
	Document Document
	Score    float64
}

// SearchResponse is the shaped, user-facing result of a search, cached wholesale under
// its request's derived key.
type SearchResponse struct {
	Results       []SearchResult
	Total         int64
	Pagination    Pagination
	Facets        Facets
	RelatedPeople []RelatedPerson
	FromCache     bool
}

// EmbeddingService is the embedding collaborator named in spec.md §6, used by the search
// path to embed a free-text query for hybrid/k-NN search. embedding.Client is the
// concrete implementation; it also serves the indexing pipeline's document-embedding needs
// via the wider GetEmbeddings method below.
type EmbeddingService interface {
	// GetEmbeddings embeds a batch of texts in one request, preserving order.
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// GetQueryEmbedding embeds a single free-text query, transparently cached by a
	// truncated hash of the text — repeat queries never re-hit the embedding service.
	GetQueryEmbedding(ctx context.Context, query string) ([]float32, error)
}

// ResultCache is the C7 collaborator: a TTL'd store of whole SearchResponse values keyed
// by a stable hash of the normalized request. resultcache.Cache is the concrete
// implementation, backed by kvcache.
type ResultCache interface {
	Get(ctx context.Context, key string) (*SearchResponse, bool, error)
	Set(ctx context.Context, key string, resp SearchResponse) error
}
