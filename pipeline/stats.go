// Package pipeline implements the C4 Pipeline Engine: Phase 1 (fetch & embed, checkpointed
// to the C2 document cache), Phase 2 (index & back-sync), and the single-shot streaming
// Pipeline Mode that runs all stages concurrently without touching the cache at all.
package pipeline

import "sync/atomic"

// Stats exposes the live, concurrency-safe counters spec.md §4.4 requires: per-stage
// in-flight batch/document counts plus running totals, polled by a CLI status line.
type Stats struct {
	BatchesInFetch int64
	BatchesInEmbed int64
	BatchesInIndex int64
	BatchesInSync  int64
	DocsInEmbed    int64
	DocsInIndex    int64
	DocsInSync     int64

	Success int64
	Errors  int64
}

// Snapshot is a point-in-time copy of Stats, safe to read without further atomic access.
type Snapshot struct {
	BatchesInFetch int64
	BatchesInEmbed int64
	BatchesInIndex int64
	BatchesInSync  int64
	DocsInEmbed    int64
	DocsInIndex    int64
	DocsInSync     int64
	Success        int64
	Errors         int64
}

// Snapshot reads every counter with atomic.LoadInt64, for a status line or final summary.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		BatchesInFetch: atomic.LoadInt64(&s.BatchesInFetch),
		BatchesInEmbed: atomic.LoadInt64(&s.BatchesInEmbed),
		BatchesInIndex: atomic.LoadInt64(&s.BatchesInIndex),
		BatchesInSync:  atomic.LoadInt64(&s.BatchesInSync),
		DocsInEmbed:    atomic.LoadInt64(&s.DocsInEmbed),
		DocsInIndex:    atomic.LoadInt64(&s.DocsInIndex),
		DocsInSync:     atomic.LoadInt64(&s.DocsInSync),
		Success:        atomic.LoadInt64(&s.Success),
		Errors:         atomic.LoadInt64(&s.Errors),
	}
}
