package research

import "context"

// EngineAuthor is the nested-per-author projection kept in the engine document,
// retaining position and per-author fields (spec.md §3).
type EngineAuthor struct {
	AuthorID           string   `json:"author_id"`
	AuthorName         string   `json:"author_name"`
	AuthorNameVariants []string `json:"author_name_variants"`
	AuthorPosition     int      `json:"author_position"`
	AuthorAffiliation  string   `json:"author_affiliation"`
	AuthorEmail        string   `json:"author_email"`
	HasMatchedProfile  bool     `json:"has_matched_profile"`
}

// EngineDocument is the projection of a Document (by way of a cache.Entry) indexed into
// the search engine. It is produced by the Index Mapper (mapper package) and never
// partially updated once written — a reindex replaces it wholesale.
type EngineDocument struct {
	DocumentID         string         `json:"mongo_id"`
	Title              string         `json:"title"`
	Abstract           string         `json:"abstract"`
	Authors            []EngineAuthor `json:"authors"`
	AuthorNames        []string       `json:"author_names"`
	AuthorNameVariants []string       `json:"author_name_variants"`
	PublicationYear    int            `json:"publication_year"`
	FieldAssociated    string         `json:"field_associated"`
	DocumentType       string         `json:"document_type"`
	SubjectArea        []string       `json:"subject_area"`
	SubjectAreaCount   int            `json:"subject_area_count"`
	CitationCount      int            `json:"citation_count"`
	ReferenceCount     int            `json:"reference_count"`
	Embedding          []float32      `json:"embedding"`
}

// EngineHit is a single result row returned by the engine: just enough to hydrate from
// the authoritative store plus the score/sort values needed to preserve ordering.
type EngineHit struct {
	DocumentID       string
	EngineID         string
	Score            float64
	SimilarityScore  float64 // not set by opensearchengine.Engine.Execute; similar queries report their engine score in Score
}

// EngineAggregationBucket is one bucket of a named facet (years, document_types, ...).
type EngineAggregationBucket struct {
	Key   string
	Count int64
}

// EngineResult is the raw result of executing a compiled query against the engine:
// ordered hits, total hit count, and named aggregation buckets.
type EngineResult struct {
	Hits         []EngineHit
	Total        int64
	Aggregations map[string][]EngineAggregationBucket
}

// SearchEngine is the Engine collaborator named in spec.md §6. Its wire protocol is out
// of this spec's scope; opensearchengine.Engine is the concrete implementation.
type SearchEngine interface {
	// BulkIndex indexes documents, returning a map from authoritative id to the engine's
	// generated id for every document that came back 2xx.
	BulkIndex(ctx context.Context, docs []EngineDocument) (map[string]string, error)

	// Execute runs a compiled query (query.Query, as an opaque DSL payload) and returns
	// ordered hits, total count and aggregations.
	Execute(ctx context.Context, dsl map[string]interface{}) (EngineResult, error)

	// CountMatches runs a size=0 query and returns only the total hit count — used by
	// the BM25 pre-check (C6 step 3).
	CountMatches(ctx context.Context, dsl map[string]interface{}) (int64, error)

	// ExecuteRaw runs dsl and returns the engine's full decoded JSON response, used by
	// aggregations too irregularly shaped for EngineResult (nested collaborator buckets
	// with a top_hits sub-aggregation).
	ExecuteRaw(ctx context.Context, dsl map[string]interface{}) (map[string]interface{}, error)

	// GetEmbedding fetches the stored embedding vector for a single engine document,
	// used by the /document/:id/similar endpoint.
	GetEmbedding(ctx context.Context, engineID string) ([]float32, error)

	// CreateIndex is idempotent: a no-op if the index already exists.
	CreateIndex(ctx context.Context) error

	// DeleteIndex removes the index wholesale (full reindex).
	DeleteIndex(ctx context.Context) error

	// ClusterHealth reports the engine's cluster health status ("green"/"yellow"/"red").
	ClusterHealth(ctx context.Context) (string, error)
}
