package pipeline

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobinette/research"
	"github.com/bobinette/research/embedding"
	"github.com/bobinette/research/log"
)

// embeddedBatch is a batch of documents with their freshly computed embeddings, handed
// from the embed stage to the index stage.
type embeddedBatch struct {
	docs       []research.Document
	embeddings [][]float32
}

// RunResult summarizes a completed Pipeline Mode run.
type RunResult struct {
	Total   int64
	Success int64
	Errors  int64
	Elapsed time.Duration
}

// Run executes the single-shot streaming Pipeline Mode (spec.md §4.4): fetch, embed,
// index and back-sync all run concurrently over bounded channels, bypassing the Phase 1
// checkpoint entirely. onTick, if non-nil, is called roughly every 100ms with a live
// Snapshot — the source of the CLI's cycling status line.
func Run(ctx context.Context, cfg Config, store research.DocumentStore, engine research.SearchEngine, embedder research.EmbeddingService, logger log.Logger, reindexAll bool, limit int, onTick func(Snapshot)) (RunResult, error) {
	start := time.Now()

	total, err := store.CountToIndex(ctx, reindexAll)
	if err != nil {
		return RunResult{}, err
	}
	if limit > 0 && int64(limit) < total {
		total = int64(limit)
	}
	if total == 0 {
		return RunResult{Total: 0, Elapsed: time.Since(start)}, nil
	}

	docChan, err := store.Stream(ctx, reindexAll, limit)
	if err != nil {
		return RunResult{}, err
	}

	stats := &Stats{}

	if onTick != nil {
		tickCtx, cancelTick := context.WithCancel(ctx)
		defer cancelTick()
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-tickCtx.Done():
					return
				case <-ticker.C:
					onTick(stats.Snapshot())
				}
			}
		}()
	}

	numWorkers := cfg.NumWorkers
	if numWorkers < 2 {
		numWorkers = 2
	}

	// Stage 1: batch collector.
	batchChan := make(chan []research.Document, numWorkers*2)
	go func() {
		defer close(batchChan)
		atomic.StoreInt64(&stats.BatchesInFetch, 1)
		defer atomic.StoreInt64(&stats.BatchesInFetch, 0)

		batch := make([]research.Document, 0, cfg.MongoBatchSize)
		for doc := range docChan {
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

	// Stage 2: embed workers. The embedding client's own semaphore caps real concurrency,
	// so it's safe to run more workers than that cap — they queue there instead.
	embeddedChan := make(chan embeddedBatch, numWorkers*2)
	var embedWg sync.WaitGroup
	var errCount int64

	for i := 0; i < numWorkers; i++ {
		embedWg.Add(1)
		go func() {
			defer embedWg.Done()
			for docs := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&stats.BatchesInEmbed, 1)
				atomic.AddInt64(&stats.DocsInEmbed, int64(len(docs)))

				texts := make([]string, len(docs))
				for i, doc := range docs {
					texts[i] = embedding.BuildEmbeddingText(doc.Title, doc.Abstract)
				}

				subBatchSize := cfg.EmbedBatchSize
				if subBatchSize <= 0 {
					subBatchSize = len(texts)
				}

				allEmbeddings := make([][]float32, 0, len(texts))
				failed := false
				for i := 0; i < len(texts); i += subBatchSize {
					end := i + subBatchSize
					if end > len(texts) {
						end = len(texts)
					}
					embeddings, err := embedder.GetEmbeddings(ctx, texts[i:end])
					if err != nil {
						if logger != nil {
							logger.Warnf("embedding error: %v", err)
						}
						atomic.AddInt64(&errCount, int64(len(docs)))
						failed = true
						break
					}
					allEmbeddings = append(allEmbeddings, embeddings...)
				}

				atomic.AddInt64(&stats.BatchesInEmbed, -1)
				atomic.AddInt64(&stats.DocsInEmbed, -int64(len(docs)))

				if !failed {
					select {
					case embeddedChan <- embeddedBatch{docs: docs, embeddings: allEmbeddings}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		embedWg.Wait()
		close(embeddedChan)
	}()

	// Stage 3: a single back-sync worker, async and non-blocking relative to indexing.
	syncChan := make(chan []research.CrossRefUpdate, numWorkers*4)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		delay := time.Duration(cfg.MongoBulkDelayMs) * time.Millisecond
		for updates := range syncChan {
			if len(updates) == 0 {
				continue
			}
			atomic.AddInt64(&stats.BatchesInSync, 1)
			if err := store.BulkUpdateCrossRefIDs(ctx, updates); err != nil && logger != nil {
				logger.Warnf("mongo bulk update error (async): %v", err)
			}
			atomic.AddInt64(&stats.DocsInSync, -int64(len(updates)))
			atomic.AddInt64(&stats.BatchesInSync, -1)
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}()

	// Stage 4: indexing workers.
	var successCount int64
	var indexWg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		indexWg.Add(1)
		go func() {
			defer indexWg.Done()
			for batch := range embeddedChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&stats.BatchesInIndex, 1)
				atomic.AddInt64(&stats.DocsInIndex, int64(len(batch.docs)))

				docs := make([]research.EngineDocument, len(batch.docs))
				for i, doc := range batch.docs {
					docs[i] = toEngineDocument(doc, batch.embeddings[i])
				}

				idMap, err := engine.BulkIndex(ctx, docs)

				atomic.AddInt64(&stats.BatchesInIndex, -1)
				atomic.AddInt64(&stats.DocsInIndex, -int64(len(batch.docs)))

				if err != nil {
					if logger != nil {
						logger.Warnf("bulk index error: %v", err)
					}
					atomic.AddInt64(&errCount, int64(len(batch.docs)))
					continue
				}

				atomic.AddInt64(&successCount, int64(len(idMap)))
				atomic.AddInt64(&errCount, int64(len(batch.docs)-len(idMap)))

				updates := make([]research.CrossRefUpdate, 0, len(idMap))
				for _, doc := range batch.docs {
					if engineID, ok := idMap[doc.ID]; ok {
						updates = append(updates, research.CrossRefUpdate{DocumentID: doc.ID, OpenSearchID: engineID})
					}
				}
				if len(updates) > 0 {
					atomic.AddInt64(&stats.DocsInSync, int64(len(updates)))
					select {
					case syncChan <- updates:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	indexWg.Wait()
	close(syncChan)
	<-syncDone

	return RunResult{
		Total:   total,
		Success: atomic.LoadInt64(&successCount),
		Errors:  atomic.LoadInt64(&errCount),
		Elapsed: time.Since(start),
	}, nil
}

// toEngineDocument builds the flattened engine projection directly from a streamed
// Document plus its freshly computed embedding, without going through the cache/mapper
// path — Pipeline Mode never checkpoints, so there is no cache.Entry to map from.
func toEngineDocument(doc research.Document, vec []float32) research.EngineDocument {
	authors := make([]research.EngineAuthor, len(doc.Authors))
	authorNames := make([]string, len(doc.Authors))
	var authorNameVariants []string
	for i, a := range doc.Authors {
		authorNames[i] = a.AuthorName
		authorNameVariants = append(authorNameVariants, a.AuthorNames...)
		authors[i] = research.EngineAuthor{
			AuthorID:           a.AuthorID,
			AuthorName:         a.AuthorName,
			AuthorNameVariants: a.AuthorNames,
			AuthorPosition:     parseAuthorPosition(a.AuthorPosition),
			AuthorAffiliation:  a.AuthorAffiliation,
			AuthorEmail:        a.AuthorEmail,
			HasMatchedProfile:  a.HasMatchedProfile,
		}
	}

	return research.EngineDocument{
		DocumentID:         doc.ID,
		Title:              doc.Title,
		Abstract:           doc.Abstract,
		Authors:            authors,
		AuthorNames:        authorNames,
		AuthorNameVariants: authorNameVariants,
		PublicationYear:    doc.PublicationYear,
		FieldAssociated:    doc.FieldAssociated,
		DocumentType:       doc.DocumentType,
		SubjectArea:        doc.SubjectArea,
		SubjectAreaCount:   len(doc.SubjectArea),
		CitationCount:      doc.CitationCount,
		ReferenceCount:     doc.ReferenceCount,
		Embedding:          vec,
	}
}

// parseAuthorPosition mirrors mapper.parsePosition: a 1-based position parsed from its
// upstream string form, defaulting to 0 on any parse failure.
func parseAuthorPosition(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
