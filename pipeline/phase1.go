package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobinette/research"
	"github.com/bobinette/research/cache"
	"github.com/bobinette/research/embedding"
	"github.com/bobinette/research/log"
)

// Config is the subset of config.Config the pipeline needs, kept narrow the way every
// other package here takes exactly the fields it uses.
type Config struct {
	MongoBatchSize     int
	EmbedBatchSize     int
	OpenSearchBulkSize int
	NumWorkers         int
	MongoBulkDelayMs   int
}

const autosaveInterval = 30 * time.Second

// Phase1Result summarizes a completed or cancelled Phase 1 run.
type Phase1Result struct {
	Total     int64
	Processed int64
	Errors    int64
}

// Phase1 streams documents needing indexing from store, embeds them in parallel batches
// and checkpoints the results into chk. It loads chk first so a prior run's entries are
// skipped. Once streaming has started, chk.Save runs before returning, even on
// cancellation; an error from CountToIndex or from opening the stream returns without
// saving.
func Phase1(ctx context.Context, cfg Config, store research.DocumentStore, embedder research.EmbeddingService, chk *cache.Cache, logger log.Logger, reindexAll bool, limit int) (Phase1Result, error) {
	if err := chk.Load(); err != nil {
		if logger != nil {
			logger.Warnf("checkpoint load failed, starting fresh: %v", err)
		}
	}

	total, err := store.CountToIndex(ctx, reindexAll)
	if err != nil {
		return Phase1Result{}, err
	}
	if limit > 0 && int64(limit) < total {
		total = int64(limit)
	}
	chk.SetMetadata(total, reindexAll)

	if total == 0 {
		return Phase1Result{Total: 0}, chk.Save()
	}

	docChan, err := store.Stream(ctx, reindexAll, limit)
	if err != nil {
		return Phase1Result{}, err
	}

	stats := &Stats{}

	numWorkers := cfg.NumWorkers
	if numWorkers < 2 {
		numWorkers = 2
	}

	// batcher: drops already-processed ids, groups the rest into MongoBatchSize batches.
	batchChan := make(chan []research.Document, numWorkers*2)
	go func() {
		defer close(batchChan)
		atomic.StoreInt64(&stats.BatchesInFetch, 1)
		defer atomic.StoreInt64(&stats.BatchesInFetch, 0)

		batch := make([]research.Document, 0, cfg.MongoBatchSize)
		for doc := range docChan {
			if chk.IsProcessed(doc.ID) {
				continue
			}
			batch = append(batch, doc)
			if len(batch) >= cfg.MongoBatchSize {
				toSend := make([]research.Document, len(batch))
				copy(toSend, batch)
				select {
				case batchChan <- toSend:
				case <-ctx.Done():
					return
				}
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			select {
			case batchChan <- batch:
			case <-ctx.Done():
			}
		}
	}()

	var lastSaveMu sync.Mutex
	lastSave := time.Now()
	maybeAutosave := func() {
		lastSaveMu.Lock()
		due := time.Since(lastSave) >= autosaveInterval
		if due {
			lastSave = time.Now()
		}
		lastSaveMu.Unlock()
		if due {
			if err := chk.Save(); err != nil && logger != nil {
				logger.Warnf("autosave failed: %v", err)
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&stats.BatchesInEmbed, 1)
				atomic.AddInt64(&stats.DocsInEmbed, int64(len(batch)))

				entries, ok := embedBatch(ctx, cfg, embedder, batch)

				atomic.AddInt64(&stats.BatchesInEmbed, -1)
				atomic.AddInt64(&stats.DocsInEmbed, -int64(len(batch)))

				if !ok {
					atomic.AddInt64(&stats.Errors, int64(len(batch)))
					if logger != nil {
						logger.Warnf("embedding failed for batch of %d, skipping (all-or-nothing)", len(batch))
					}
					continue
				}

				chk.AddEntries(entries)
				atomic.AddInt64(&stats.Success, int64(len(entries)))
				maybeAutosave()
			}
		}()
	}
	wg.Wait()

	if err := chk.Save(); err != nil {
		return Phase1Result{}, err
	}

	snap := stats.Snapshot()
	return Phase1Result{Total: total, Processed: snap.Success, Errors: snap.Errors}, nil
}

// embedBatch embeds every document in batch, subdividing into EmbedBatchSize sub-batch
// requests. If any sub-batch fails after the embedding client's own retries, the whole
// batch is discarded (ok=false) — partial embeddings are never persisted.
func embedBatch(ctx context.Context, cfg Config, embedder research.EmbeddingService, batch []research.Document) ([]cache.Entry, bool) {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = embedding.BuildEmbeddingText(doc.Title, doc.Abstract)
	}

	subBatchSize := cfg.EmbedBatchSize
	if subBatchSize <= 0 {
		subBatchSize = len(texts)
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += subBatchSize {
		end := i + subBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embeddings, err := embedder.GetEmbeddings(ctx, texts[i:end])
		if err != nil {
			return nil, false
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	entries := make([]cache.Entry, len(batch))
	for i, doc := range batch {
		authors := make([]cache.Author, len(doc.Authors))
		for j, a := range doc.Authors {
			authors[j] = cache.Author{
				AuthorID:           a.AuthorID,
				AuthorName:         a.AuthorName,
				AuthorNameVariants: a.AuthorNames,
				AuthorPosition:     a.AuthorPosition,
				AuthorAffiliation:  a.AuthorAffiliation,
				AuthorEmail:        a.AuthorEmail,
				HasMatchedProfile:  a.HasMatchedProfile,
			}
		}

		entries[i] = cache.Entry{
			DocumentID:      doc.ID,
			Title:           doc.Title,
			Abstract:        doc.Abstract,
			Authors:         authors,
			PublicationYear: doc.PublicationYear,
			FieldAssociated: doc.FieldAssociated,
			DocumentType:    doc.DocumentType,
			SubjectArea:     doc.SubjectArea,
			CitationCount:   doc.CitationCount,
			ReferenceCount:  doc.ReferenceCount,
			Embedding:       allEmbeddings[i],
		}
	}
	return entries, true
}
