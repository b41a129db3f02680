// Package cache implements the C2 Document Cache: a gob-encoded on-disk checkpoint of
// every document Phase 1 has fetched and embedded, so Phase 2 (and a restarted Phase 1)
// never has to re-call the embedding service for work already done.
package cache

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobinette/research/errors"
)

// Author is the author projection stored on a cache Entry.
type Author struct {
	AuthorID           string
	AuthorName         string
	AuthorNameVariants []string
	AuthorPosition     string // raw upstream value; the Index Mapper parses this to an int
	AuthorAffiliation  string
	AuthorEmail        string
	HasMatchedProfile  bool
}

// Entry holds one document with its computed embedding, ready for the Index Mapper.
type Entry struct {
	DocumentID      string
	Title           string
	Abstract        string
	Authors         []Author
	PublicationYear int
	FieldAssociated string
	DocumentType    string
	SubjectArea     []string
	CitationCount   int
	ReferenceCount  int
	Embedding       []float32
	ProcessedAt     time.Time
}

// Metadata describes the state of a checkpoint run.
type Metadata struct {
	Version      int
	CreatedAt    time.Time
	LastModified time.Time
	TotalDocs    int64
	ReindexAll   bool
}

// Cache manages the on-disk checkpoint directory for a single pipeline run. It is safe
// for concurrent use by Phase 1's embed workers.
type Cache struct {
	dir string

	mu           sync.RWMutex
	metadata     Metadata
	entries      []Entry
	processedIDs map[string]bool
}

// New creates (or reopens) a checkpoint directory, without loading its contents — call
// Load separately to restore a prior run.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.CacheFailure("create cache dir", err)
	}

	return &Cache{
		dir:          dir,
		entries:      make([]Entry, 0),
		processedIDs: make(map[string]bool),
	}, nil
}

func (c *Cache) entriesPath() string  { return filepath.Join(c.dir, "embeddings.gob") }
func (c *Cache) metadataPath() string { return filepath.Join(c.dir, "metadata.gob") }

// Load restores a checkpoint from disk. A missing checkpoint is not an error: Load
// leaves the cache empty, ready for a fresh Phase 1 run. On any error it resets the
// cache to empty before returning, so a caller that treats a Load failure as "start
// fresh" (spec's CacheIO policy for C2) never runs with a half-applied checkpoint.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metaFile, err := os.Open(c.metadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		c.reset()
		return errors.CacheFailure("open cache metadata", err)
	}
	defer metaFile.Close()

	var metadata Metadata
	if err := gob.NewDecoder(metaFile).Decode(&metadata); err != nil {
		c.reset()
		return errors.CacheFailure("decode cache metadata", err)
	}

	entriesFile, err := os.Open(c.entriesPath())
	if err != nil {
		c.reset()
		return errors.CacheFailure("open cache entries", err)
	}
	defer entriesFile.Close()

	var entries []Entry
	if err := gob.NewDecoder(entriesFile).Decode(&entries); err != nil {
		c.reset()
		return errors.CacheFailure("decode cache entries", err)
	}

	c.metadata = metadata
	c.entries = entries
	c.processedIDs = make(map[string]bool, len(c.entries))
	for _, e := range c.entries {
		c.processedIDs[e.DocumentID] = true
	}
	return nil
}

// reset clears in-memory state, leaving the cache as if New had just been called. Must
// be called with c.mu held.
func (c *Cache) reset() {
	c.metadata = Metadata{}
	c.entries = make([]Entry, 0)
	c.processedIDs = make(map[string]bool)
}

// Save writes the full cache to disk, overwriting any prior checkpoint. Called
// periodically during Phase 1 and once at the end, so a crash loses at most one period.
// Each file is written to a ".tmp" sibling and renamed into place only after a
// successful Sync+Close, so a crash mid-write never leaves a half-written file where a
// complete one used to be: Load either sees the old file or the new one, never a
// truncated one.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.metadata.LastModified = time.Now()
	c.metadata.Version = 1

	if err := writeGobAtomic(c.metadataPath(), c.metadata); err != nil {
		return errors.CacheFailure("write cache metadata", err)
	}
	if err := writeGobAtomic(c.entriesPath(), c.entries); err != nil {
		return errors.CacheFailure("write cache entries", err)
	}
	return nil
}

// writeGobAtomic gob-encodes v into path+".tmp", syncs and closes it, then renames it
// over path. Rename is atomic on the same filesystem, so readers never observe a
// partially-written file at path.
func writeGobAtomic(path string, v interface{}) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// AddEntry appends a single entry, marking its document processed.
func (c *Cache) AddEntry(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.ProcessedAt = time.Now()
	c.entries = append(c.entries, entry)
	c.processedIDs[entry.DocumentID] = true
}

// AddEntries appends a batch of entries in one lock acquisition.
func (c *Cache) AddEntries(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for i := range entries {
		entries[i].ProcessedAt = now
		c.processedIDs[entries[i].DocumentID] = true
	}
	c.entries = append(c.entries, entries...)
}

// IsProcessed reports whether documentID already has a cached entry, in O(1).
func (c *Cache) IsProcessed(documentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processedIDs[documentID]
}

// Entries returns a defensive copy of every cached entry, ready for Phase 2 to map and
// bulk-index.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Entry, len(c.entries))
	copy(result, c.entries)
	return result
}

// Count returns the number of cached entries.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SetMetadata records the run's total document count and reindex mode, without
// overwriting CreatedAt on a resumed run.
func (c *Cache) SetMetadata(totalDocs int64, reindexAll bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metadata.CreatedAt.IsZero() {
		c.metadata.CreatedAt = time.Now()
	}
	c.metadata.TotalDocs = totalDocs
	c.metadata.ReindexAll = reindexAll
}

// Metadata returns the cache's current metadata.
func (c *Cache) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata
}

// Clear wipes in-memory state and removes the checkpoint files, used by the `clean`
// CLI command.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make([]Entry, 0)
	c.processedIDs = make(map[string]bool)
	c.metadata = Metadata{}

	os.Remove(c.entriesPath())
	os.Remove(c.metadataPath())
	return nil
}

// Exists reports whether a checkpoint file is present on disk.
func (c *Cache) Exists() bool {
	_, err := os.Stat(c.entriesPath())
	return err == nil
}

// Stats reports the in-memory entry count and the on-disk checkpoint size, used by the
// `status` CLI command.
func (c *Cache) Stats() (entries int, sizeBytes int64, err error) {
	c.mu.RLock()
	entries = len(c.entries)
	c.mu.RUnlock()

	info, statErr := os.Stat(c.entriesPath())
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return entries, 0, nil
		}
		return 0, 0, errors.CacheFailure("stat cache entries", statErr)
	}
	return entries, info.Size(), nil
}
