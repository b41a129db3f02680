package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bobinette/research"
	"github.com/bobinette/research/cache"
	"github.com/bobinette/research/log"
	"github.com/bobinette/research/mapper"
)

// Phase2Result summarizes a completed Phase 2 run.
type Phase2Result struct {
	Indexed int64
	Errors  int64
	Synced  int64
}

// Phase2 loads chk, ensures the engine index exists, bulk-indexes every cached entry in
// OpenSearchBulkSize-sized slices, and back-syncs the engine id for every successfully
// indexed document to store. Back-sync runs on a single worker, throttled by
// cfg.MongoBulkDelayMs, to protect a free-tier write quota; a back-sync failure is
// logged and counted but never unwinds the already-committed engine write.
func Phase2(ctx context.Context, cfg Config, store research.DocumentStore, engine research.SearchEngine, chk *cache.Cache, logger log.Logger) (Phase2Result, error) {
	if err := chk.Load(); err != nil {
		if logger != nil {
			logger.Warnf("checkpoint load failed, starting fresh: %v", err)
		}
	}

	if err := engine.CreateIndex(ctx); err != nil {
		return Phase2Result{}, err
	}

	entries := chk.Entries()
	if len(entries) == 0 {
		return Phase2Result{}, nil
	}

	sliceSize := cfg.OpenSearchBulkSize
	if sliceSize <= 0 {
		sliceSize = len(entries)
	}

	stats := &Stats{}
	syncChan := make(chan []research.CrossRefUpdate, 8)
	syncDone := make(chan struct{})

	go func() {
		defer close(syncDone)
		delay := time.Duration(cfg.MongoBulkDelayMs) * time.Millisecond
		for updates := range syncChan {
			atomic.AddInt64(&stats.BatchesInSync, 1)
			if err := store.BulkUpdateCrossRefIDs(ctx, updates); err != nil {
				if logger != nil {
					logger.Warnf("back-sync failed for %d documents (async, not fatal): %v", len(updates), err)
				}
			} else {
				atomic.AddInt64(&stats.Success, int64(len(updates)))
			}
			atomic.AddInt64(&stats.BatchesInSync, -1)
			atomic.AddInt64(&stats.DocsInSync, -int64(len(updates)))
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}()

	var indexed, errCount int64
	for i := 0; i < len(entries); i += sliceSize {
		end := i + sliceSize
		if end > len(entries) {
			end = len(entries)
		}
		slice := entries[i:end]

		select {
		case <-ctx.Done():
			close(syncChan)
			<-syncDone
			return Phase2Result{Indexed: indexed, Errors: errCount}, ctx.Err()
		default:
		}

		atomic.AddInt64(&stats.BatchesInIndex, 1)
		atomic.AddInt64(&stats.DocsInIndex, int64(len(slice)))

		docs := mapper.ToEngineDocuments(slice)
		idMap, err := engine.BulkIndex(ctx, docs)

		atomic.AddInt64(&stats.BatchesInIndex, -1)
		atomic.AddInt64(&stats.DocsInIndex, -int64(len(slice)))

		if err != nil {
			errCount += int64(len(slice))
			if logger != nil {
				logger.Warnf("bulk index error for slice of %d: %v", len(slice), err)
			}
			continue
		}

		indexed += int64(len(idMap))
		errCount += int64(len(slice) - len(idMap))

		updates := make([]research.CrossRefUpdate, 0, len(idMap))
		for _, entry := range slice {
			if engineID, ok := idMap[entry.DocumentID]; ok {
				updates = append(updates, research.CrossRefUpdate{DocumentID: entry.DocumentID, OpenSearchID: engineID})
			}
		}
		if len(updates) > 0 {
			atomic.AddInt64(&stats.DocsInSync, int64(len(updates)))
			select {
			case syncChan <- updates:
			case <-ctx.Done():
			}
		}
	}

	close(syncChan)
	<-syncDone

	snap := stats.Snapshot()
	return Phase2Result{Indexed: indexed, Errors: errCount, Synced: snap.Success}, nil
}
