package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/research"
	"github.com/bobinette/research/cache"
)

type fakeStore struct {
	mu      sync.Mutex
	docs    []research.Document
	synced  map[string]string
	streamErr error
}

func (s *fakeStore) CountToIndex(ctx context.Context, reindexAll bool) (int64, error) {
	return int64(len(s.docs)), nil
}

func (s *fakeStore) Stream(ctx context.Context, reindexAll bool, limit int) (<-chan research.Document, error) {
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	out := make(chan research.Document, len(s.docs))
	docs := s.docs
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	for _, d := range docs {
		out <- d
	}
	close(out)
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*research.Document, error) { return nil, nil }
func (s *fakeStore) GetMany(ctx context.Context, ids []string) ([]research.Document, error) {
	return nil, nil
}
func (s *fakeStore) ByAuthor(ctx context.Context, authorID string, offset, limit int) ([]research.Document, int64, error) {
	return nil, 0, nil
}
func (s *fakeStore) UpdateCrossRefID(ctx context.Context, id, openSearchID string) error { return nil }

func (s *fakeStore) BulkUpdateCrossRefIDs(ctx context.Context, updates []research.CrossRefUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synced == nil {
		s.synced = map[string]string{}
	}
	for _, u := range updates {
		s.synced[u.DocumentID] = u.OpenSearchID
	}
	return nil
}
func (s *fakeStore) ClearCrossRefIDs(ctx context.Context) error { return nil }
func (s *fakeStore) FindPeopleByEmailPrefix(ctx context.Context, prefixes []string) ([]research.Person, error) {
	return nil, nil
}

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failOn   int // call index (1-based) that should fail; 0 means never
}

func (e *fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.failOn != 0 && call == e.failOn {
		return nil, fmt.Errorf("embedding service unavailable")
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e *fakeEmbedder) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1}, nil
}

type fakeEngine struct {
	mu      sync.Mutex
	indexed []research.EngineDocument
	failAll bool
}

func (e *fakeEngine) BulkIndex(ctx context.Context, docs []research.EngineDocument) (map[string]string, error) {
	if e.failAll {
		return nil, fmt.Errorf("bulk index unavailable")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indexed = append(e.indexed, docs...)

	ids := make(map[string]string, len(docs))
	for _, d := range docs {
		ids[d.DocumentID] = "os-" + d.DocumentID
	}
	return ids, nil
}
func (e *fakeEngine) Execute(ctx context.Context, dsl map[string]interface{}) (research.EngineResult, error) {
	return research.EngineResult{}, nil
}
func (e *fakeEngine) CountMatches(ctx context.Context, dsl map[string]interface{}) (int64, error) {
	return 0, nil
}
func (e *fakeEngine) ExecuteRaw(ctx context.Context, dsl map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}
func (e *fakeEngine) GetEmbedding(ctx context.Context, engineID string) ([]float32, error) {
	return nil, nil
}
func (e *fakeEngine) CreateIndex(ctx context.Context) error { return nil }
func (e *fakeEngine) DeleteIndex(ctx context.Context) error { return nil }
func (e *fakeEngine) ClusterHealth(ctx context.Context) (string, error) { return "green", nil }

func docs(n int) []research.Document {
	out := make([]research.Document, n)
	for i := range out {
		out[i] = research.Document{
			ID:    fmt.Sprintf("doc-%d", i),
			Title: fmt.Sprintf("Title %d", i),
			Authors: []research.Author{
				{AuthorID: "a1", AuthorName: "Ada", AuthorPosition: "1"},
			},
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		MongoBatchSize:     4,
		EmbedBatchSize:     2,
		OpenSearchBulkSize: 4,
		NumWorkers:         2,
		MongoBulkDelayMs:   0,
	}
}

func TestPhase1EmbedsAndCheckspoints(t *testing.T) {
	dir := t.TempDir()
	chk, err := cache.New(dir)
	require.NoError(t, err)

	store := &fakeStore{docs: docs(10)}
	embedder := &fakeEmbedder{}

	result, err := Phase1(context.Background(), testConfig(), store, embedder, chk, nil, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Total)
	assert.Equal(t, int64(10), result.Processed)
	assert.Equal(t, int64(0), result.Errors)
	assert.Equal(t, 10, chk.Count())
	assert.True(t, chk.IsProcessed("doc-0"))
}

func TestPhase1SkipsAlreadyProcessedEntries(t *testing.T) {
	dir := t.TempDir()
	chk, err := cache.New(dir)
	require.NoError(t, err)
	chk.AddEntry(cache.Entry{DocumentID: "doc-0"})

	store := &fakeStore{docs: docs(3)}
	embedder := &fakeEmbedder{}

	result, err := Phase1(context.Background(), testConfig(), store, embedder, chk, nil, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Processed)
	assert.Equal(t, 3, chk.Count())
}

func TestPhase1DiscardsEntireBatchOnEmbeddingFailure(t *testing.T) {
	dir := t.TempDir()
	chk, err := cache.New(dir)
	require.NoError(t, err)

	store := &fakeStore{docs: docs(4)}
	embedder := &fakeEmbedder{failOn: 1}

	cfg := testConfig()
	cfg.MongoBatchSize = 4
	cfg.NumWorkers = 2

	result, err := Phase1(context.Background(), cfg, store, embedder, chk, nil, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Errors)
	assert.Equal(t, int64(0), result.Processed)
	assert.Equal(t, 0, chk.Count())
}

func TestPhase2IndexesAndBackSyncs(t *testing.T) {
	dir := t.TempDir()
	chk, err := cache.New(dir)
	require.NoError(t, err)
	chk.AddEntries([]cache.Entry{
		{DocumentID: "doc-0", Title: "A"},
		{DocumentID: "doc-1", Title: "B"},
	})
	require.NoError(t, chk.Save())

	store := &fakeStore{}
	engine := &fakeEngine{}

	result, err := Phase2(context.Background(), testConfig(), store, engine, chk, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Indexed)
	assert.Equal(t, int64(0), result.Errors)
	assert.Equal(t, int64(2), result.Synced)
	assert.Equal(t, "os-doc-0", store.synced["doc-0"])
}

func TestPhase2CountsEngineFailureAsErrors(t *testing.T) {
	dir := t.TempDir()
	chk, err := cache.New(dir)
	require.NoError(t, err)
	chk.AddEntries([]cache.Entry{{DocumentID: "doc-0"}})

	store := &fakeStore{}
	engine := &fakeEngine{failAll: true}

	result, err := Phase2(context.Background(), testConfig(), store, engine, chk, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Indexed)
	assert.Equal(t, int64(1), result.Errors)
}

func TestRunIndexesEveryDocumentAndBackSyncs(t *testing.T) {
	store := &fakeStore{docs: docs(6)}
	engine := &fakeEngine{}
	embedder := &fakeEmbedder{}

	result, err := Run(context.Background(), testConfig(), store, engine, embedder, nil, false, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.Total)
	assert.Equal(t, int64(6), result.Success)
	assert.Equal(t, int64(0), result.Errors)
	assert.Len(t, store.synced, 6)
}

func TestRunReportsZeroWhenNothingToIndex(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngine{}
	embedder := &fakeEmbedder{}

	result, err := Run(context.Background(), testConfig(), store, engine, embedder, nil, false, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
}
