package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/search"
)

type fakeStore struct {
	docs map[string]research.Document
}

func (s *fakeStore) CountToIndex(ctx context.Context, reindexAll bool) (int64, error) { return 0, nil }
func (s *fakeStore) Stream(ctx context.Context, reindexAll bool, limit int) (<-chan research.Document, error) {
	return nil, nil
}
func (s *fakeStore) Get(ctx context.Context, id string) (*research.Document, error) {
	if d, ok := s.docs[id]; ok {
		return &d, nil
	}
	return nil, errors.DocumentNotFound("document not found")
}
func (s *fakeStore) GetMany(ctx context.Context, ids []string) ([]research.Document, error) {
	var docs []research.Document
	for _, id := range ids {
		if d, ok := s.docs[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}
func (s *fakeStore) ByAuthor(ctx context.Context, authorID string, offset, limit int) ([]research.Document, int64, error) {
	return nil, 0, nil
}
func (s *fakeStore) UpdateCrossRefID(ctx context.Context, id, openSearchID string) error { return nil }
func (s *fakeStore) BulkUpdateCrossRefIDs(ctx context.Context, updates []research.CrossRefUpdate) error {
	return nil
}
func (s *fakeStore) ClearCrossRefIDs(ctx context.Context) error { return nil }
func (s *fakeStore) FindPeopleByEmailPrefix(ctx context.Context, prefixes []string) ([]research.Person, error) {
	return nil, nil
}

type fakeEngine struct {
	countResult int64
	result      research.EngineResult
	health      string
}

func (e *fakeEngine) BulkIndex(ctx context.Context, docs []research.EngineDocument) (map[string]string, error) {
	return nil, nil
}
func (e *fakeEngine) Execute(ctx context.Context, dsl map[string]interface{}) (research.EngineResult, error) {
	return e.result, nil
}
func (e *fakeEngine) CountMatches(ctx context.Context, dsl map[string]interface{}) (int64, error) {
	return e.countResult, nil
}
func (e *fakeEngine) ExecuteRaw(ctx context.Context, dsl map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}
func (e *fakeEngine) GetEmbedding(ctx context.Context, engineID string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (e *fakeEngine) CreateIndex(ctx context.Context) error { return nil }
func (e *fakeEngine) DeleteIndex(ctx context.Context) error { return nil }
func (e *fakeEngine) ClusterHealth(ctx context.Context) (string, error) {
	if e.health == "" {
		return "green", nil
	}
	return e.health, nil
}

type fakeEmbedder struct {
	healthErr error
}

func (fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (fakeEmbedder) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (e fakeEmbedder) Health(ctx context.Context) error { return e.healthErr }

type fakeCache struct {
	pingErr error
}

func (c *fakeCache) Get(ctx context.Context, key string) (*research.SearchResponse, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, resp research.SearchResponse) error {
	return nil
}
func (c *fakeCache) Ping(ctx context.Context) error { return c.pingErr }

func newTestRouter() http.Handler {
	store := &fakeStore{docs: map[string]research.Document{
		"doc-1": {ID: "doc-1", Title: "First", OpenSearchID: "os-1"},
		"doc-2": {ID: "doc-2", Title: "Second", OpenSearchID: "os-2"},
	}}
	engine := &fakeEngine{
		countResult: 2,
		result: research.EngineResult{
			Total: 2,
			Hits: []research.EngineHit{
				{DocumentID: "doc-1", EngineID: "os-1", Score: 5.0},
				{DocumentID: "doc-2", EngineID: "os-2", Score: 3.0},
			},
		},
	}
	embedder := fakeEmbedder{}
	orchestrator := &search.Orchestrator{Store: store, Engine: engine, Embedder: embedder}

	return New(orchestrator, store, engine, embedder, &fakeCache{})
}

func TestSearchHandlerReturns200(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]interface{}{"query": "attention"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decoded searchResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Len(t, decoded.Results, 2)
	assert.Equal(t, "doc-1", decoded.Results[0].Document.ID)
}

func TestSearchHandlerRejectsEmptyQuery(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]interface{}{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerByAuthorValidatesPaging(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/by-author/a1?per_page=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandlerReportsGreenWhenEverythingUp(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "green", body.Status)
	assert.Equal(t, "ok", body.Details["embedding"])
	assert.Equal(t, "ok", body.Details["result_cache"])
}

func TestHealthHandlerDegradesOnEngineFailure(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngineUnreachable{}
	embedder := fakeEmbedder{}
	router := New(&search.Orchestrator{Store: store, Engine: engine, Embedder: embedder}, store, engine, embedder, &fakeCache{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "red", body.Status)
	assert.Equal(t, "unreachable", body.Details["engine"])
}

type fakeEngineUnreachable struct{ fakeEngine }

func (e *fakeEngineUnreachable) ClusterHealth(ctx context.Context) (string, error) {
	return "", errUnreachable
}

var errUnreachable = errors.EngineFailure("engine unreachable", nil)

func TestNoRouteReturns404(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
