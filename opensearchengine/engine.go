// Package opensearchengine is the concrete research.SearchEngine, backed by OpenSearch.
// It owns document indexing, query execution and index lifecycle; query planning itself
// lives in the query package and is handed to Execute as an opaque DSL payload.
package opensearchengine

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
)

// Engine wraps a single OpenSearch index.
type Engine struct {
	client *opensearch.Client
	index  string
}

// Config is the subset of config.Config the engine needs, kept narrow so callers don't
// have to thread the whole config object through.
type Config struct {
	Hosts        []string
	User         string
	Password     string
	Index        string
	VerifyCerts  bool
}

// New dials the cluster and verifies connectivity.
func New(cfg Config) (*Engine, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyCerts},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.EngineFailure("create opensearch client", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, errors.EngineFailure("opensearch info", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.EngineFailure("opensearch cluster unreachable", nil)
	}

	return &Engine{client: client, index: cfg.Index}, nil
}

type osAuthor struct {
	AuthorID           string   `json:"author_id"`
	AuthorName         string   `json:"author_name"`
	AuthorNameVariants []string `json:"author_name_variants"`
	AuthorPosition     int      `json:"author_position"`
	AuthorAffiliation  string   `json:"author_affiliation"`
	AuthorEmail        string   `json:"author_email"`
	HasMatchedProfile  bool     `json:"has_matched_profile"`
}

type osDocument struct {
	MongoID            string     `json:"mongo_id"`
	Title              string     `json:"title"`
	Abstract           string     `json:"abstract"`
	Authors            []osAuthor `json:"authors"`
	AuthorNames        []string   `json:"author_names"`
	AuthorNameVariants []string   `json:"author_name_variants"`
	PublicationYear    int        `json:"publication_year"`
	FieldAssociated    string     `json:"field_associated"`
	DocumentType       string     `json:"document_type"`
	SubjectArea        []string   `json:"subject_area"`
	SubjectAreaCount   int        `json:"subject_area_count"`
	CitationCount      int        `json:"citation_count"`
	ReferenceCount     int        `json:"reference_count"`
	Embedding          []float32  `json:"embedding"`
}

func toOSDocument(d research.EngineDocument) osDocument {
	authors := make([]osAuthor, len(d.Authors))
	for i, a := range d.Authors {
		authors[i] = osAuthor{
			AuthorID:           a.AuthorID,
			AuthorName:         a.AuthorName,
			AuthorNameVariants: a.AuthorNameVariants,
			AuthorPosition:     a.AuthorPosition,
			AuthorAffiliation:  a.AuthorAffiliation,
			AuthorEmail:        a.AuthorEmail,
			HasMatchedProfile:  a.HasMatchedProfile,
		}
	}

	return osDocument{
		MongoID:            d.DocumentID,
		Title:              d.Title,
		Abstract:           d.Abstract,
		Authors:            authors,
		AuthorNames:        d.AuthorNames,
		AuthorNameVariants: d.AuthorNameVariants,
		PublicationYear:    d.PublicationYear,
		FieldAssociated:    d.FieldAssociated,
		DocumentType:       d.DocumentType,
		SubjectArea:        d.SubjectArea,
		SubjectAreaCount:   d.SubjectAreaCount,
		CitationCount:      d.CitationCount,
		ReferenceCount:     d.ReferenceCount,
		Embedding:          d.Embedding,
	}
}

// BulkIndex sends docs as one bulk request with an immediate refresh, returning a
// mongo_id -> engine-id map for every item that came back 2xx.
func (e *Engine) BulkIndex(ctx context.Context, docs []research.EngineDocument) (map[string]string, error) {
	if len(docs) == 0 {
		return map[string]string{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]interface{}{"index": map[string]interface{}{"_index": e.index}}
		actionBytes, _ := json.Marshal(action)
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		docBytes, _ := json.Marshal(toOSDocument(doc))
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{Body: strings.NewReader(buf.String()), Refresh: "true"}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, errors.EngineFailure("bulk index request", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.EngineFailure("bulk index response", nil)
	}

	var bulkRes struct {
		Items []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return nil, errors.EngineFailure("decode bulk index response", err)
	}

	idMap := make(map[string]string, len(docs))
	for i, item := range bulkRes.Items {
		if i >= len(docs) {
			break
		}
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			idMap[docs[i].DocumentID] = item.Index.ID
		}
	}
	return idMap, nil
}

// Execute runs a compiled query DSL and returns ordered hits, total, and aggregations.
func (e *Engine) Execute(ctx context.Context, dsl map[string]interface{}) (research.EngineResult, error) {
	body, err := json.Marshal(dsl)
	if err != nil {
		return research.EngineResult{}, errors.EngineFailure("marshal query", err)
	}

	req := opensearchapi.SearchRequest{Index: []string{e.index}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return research.EngineResult{}, errors.EngineFailure("search request", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return research.EngineResult{}, errors.EngineFailure("search response", nil)
	}

	var searchRes struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
				Fields map[string][]interface{} `json:"fields"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]struct {
			Buckets []struct {
				Key      interface{} `json:"key"`
				KeyAsStr string      `json:"key_as_string"`
				DocCount int64       `json:"doc_count"`
			} `json:"buckets"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return research.EngineResult{}, errors.EngineFailure("decode search response", err)
	}

	hits := make([]research.EngineHit, 0, len(searchRes.Hits.Hits))
	for _, h := range searchRes.Hits.Hits {
		var src struct {
			MongoID string `json:"mongo_id"`
		}
		_ = json.Unmarshal(h.Source, &src)
		hits = append(hits, research.EngineHit{
			DocumentID: src.MongoID,
			EngineID:   h.ID,
			Score:      h.Score,
		})
	}

	aggs := make(map[string][]research.EngineAggregationBucket, len(searchRes.Aggregations))
	for name, agg := range searchRes.Aggregations {
		buckets := make([]research.EngineAggregationBucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			key := b.KeyAsStr
			if key == "" {
				key = toKeyString(b.Key)
			}
			buckets = append(buckets, research.EngineAggregationBucket{Key: key, Count: b.DocCount})
		}
		aggs[name] = buckets
	}

	return research.EngineResult{
		Hits:         hits,
		Total:        searchRes.Hits.Total.Value,
		Aggregations: aggs,
	}, nil
}

// ExecuteRaw runs dsl and returns the engine's full decoded JSON response, for callers
// that need to walk irregularly-shaped aggregations themselves.
func (e *Engine) ExecuteRaw(ctx context.Context, dsl map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.EngineFailure("marshal query", err)
	}

	req := opensearchapi.SearchRequest{Index: []string{e.index}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, errors.EngineFailure("search request", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.EngineFailure("search response", nil)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, errors.EngineFailure("decode search response", err)
	}
	return raw, nil
}

// CountMatches runs dsl with size=0 forced and returns only the total hit count, used
// by the orchestrator's BM25 pre-check.
func (e *Engine) CountMatches(ctx context.Context, dsl map[string]interface{}) (int64, error) {
	countDSL := make(map[string]interface{}, len(dsl))
	for k, v := range dsl {
		countDSL[k] = v
	}
	countDSL["size"] = 0
	delete(countDSL, "aggs")
	delete(countDSL, "sort")

	result, err := e.Execute(ctx, countDSL)
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// GetEmbedding fetches the stored embedding vector for a single engine document by id.
func (e *Engine) GetEmbedding(ctx context.Context, engineID string) ([]float32, error) {
	req := opensearchapi.GetRequest{
		Index:          e.index,
		DocumentID:     engineID,
		SourceIncludes: []string{"embedding"},
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, errors.EngineFailure("get document", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, errors.DocumentNotFound("engine document not found")
	}
	if res.IsError() {
		return nil, errors.EngineFailure("get document response", nil)
	}

	var getRes struct {
		Source struct {
			Embedding []float32 `json:"embedding"`
		} `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&getRes); err != nil {
		return nil, errors.EngineFailure("decode get document response", err)
	}
	return getRes.Source.Embedding, nil
}

// CreateIndex is idempotent: a no-op if the index already exists.
func (e *Engine) CreateIndex(ctx context.Context) error {
	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{e.index}}
	res, err := existsReq.Do(ctx, e.client)
	if err != nil {
		return errors.EngineFailure("check index exists", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	createReq := opensearchapi.IndicesCreateRequest{Index: e.index, Body: strings.NewReader(indexMapping)}
	createRes, err := createReq.Do(ctx, e.client)
	if err != nil {
		return errors.EngineFailure("create index", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return errors.EngineFailure("create index response", nil)
	}
	return nil
}

// DeleteIndex removes the index wholesale; a missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{e.index}}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return errors.EngineFailure("delete index", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.EngineFailure("delete index response", nil)
	}
	return nil
}

// ClusterHealth reports the cluster's health status string.
func (e *Engine) ClusterHealth(ctx context.Context) (string, error) {
	req := opensearchapi.ClusterHealthRequest{}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return "", errors.EngineFailure("cluster health request", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", errors.EngineFailure("cluster health response", nil)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return "", errors.EngineFailure("decode cluster health response", err)
	}
	return health.Status, nil
}

func toKeyString(key interface{}) string {
	switch v := key.(type) {
	case string:
		return v
	case float64:
		return jsonNumber(v)
	default:
		return ""
	}
}

func jsonNumber(f float64) string {
	raw, _ := json.Marshal(f)
	return string(raw)
}
