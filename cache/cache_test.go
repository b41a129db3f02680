package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntryMarksProcessed(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, c.IsProcessed("doc-1"))

	c.AddEntry(Entry{DocumentID: "doc-1", Title: "A paper"})

	assert.True(t, c.IsProcessed("doc-1"))
	assert.Equal(t, 1, c.Count())
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	c, err := New(dir)
	require.NoError(t, err)

	c.SetMetadata(10, false)
	c.AddEntries([]Entry{
		{DocumentID: "doc-1", Title: "First", Embedding: []float32{0.1, 0.2}},
		{DocumentID: "doc-2", Title: "Second", Embedding: []float32{0.3, 0.4}},
	})
	require.NoError(t, c.Save())

	reloaded, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())

	assert.Equal(t, 2, reloaded.Count())
	assert.True(t, reloaded.IsProcessed("doc-1"))
	assert.True(t, reloaded.IsProcessed("doc-2"))
	assert.Equal(t, int64(10), reloaded.Metadata().TotalDocs)

	entries := reloaded.Entries()
	assert.Equal(t, "First", entries[0].Title)
}

func TestLoadMissingCacheIsNotAnError(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, c.Load())
	assert.Equal(t, 0, c.Count())
	assert.False(t, c.Exists())
}

func TestClearRemovesEntriesAndFiles(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	c.AddEntry(Entry{DocumentID: "doc-1"})
	require.NoError(t, c.Save())
	assert.True(t, c.Exists())

	require.NoError(t, c.Clear())

	assert.Equal(t, 0, c.Count())
	assert.False(t, c.Exists())
	assert.False(t, c.IsProcessed("doc-1"))
}

func TestLoadCorruptedEntriesFileIsAnError(t *testing.T) {
	dir := t.TempDir()

	c, err := New(dir)
	require.NoError(t, err)
	c.AddEntry(Entry{DocumentID: "doc-1"})
	require.NoError(t, c.Save())

	require.NoError(t, os.WriteFile(c.entriesPath(), []byte("not a gob stream"), 0644))

	reloaded, err := New(dir)
	require.NoError(t, err)
	assert.Error(t, reloaded.Load())
}

func TestSaveIsAtomicAgainstPriorCheckpoint(t *testing.T) {
	dir := t.TempDir()

	c, err := New(dir)
	require.NoError(t, err)
	c.AddEntry(Entry{DocumentID: "doc-1"})
	require.NoError(t, c.Save())

	// A Save never leaves a ".tmp" file behind on success.
	_, err = os.Stat(c.entriesPath() + ".tmp")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.metadataPath() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reloaded, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Count())
}

func TestStatsOnEmptyCache(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	entries, size, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, entries)
	assert.Equal(t, int64(0), size)
}
