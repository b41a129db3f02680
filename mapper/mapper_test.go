package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobinette/research/cache"
)

func TestToEngineDocumentFlattensAuthors(t *testing.T) {
	entry := cache.Entry{
		DocumentID: "doc-1",
		Title:      "A Study",
		Authors: []cache.Author{
			{AuthorID: "a1", AuthorName: "Ada Lovelace", AuthorNameVariants: []string{"A. Lovelace"}, AuthorPosition: "1"},
			{AuthorID: "a2", AuthorName: "Alan Turing", AuthorNameVariants: []string{"A. Turing", "Alan M. Turing"}, AuthorPosition: "2", HasMatchedProfile: true},
		},
		SubjectArea: []string{"Computer Science", "Mathematics"},
	}

	doc := ToEngineDocument(entry)

	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, doc.AuthorNames)
	assert.Equal(t, []string{"A. Lovelace", "A. Turing", "Alan M. Turing"}, doc.AuthorNameVariants)
	assert.Equal(t, 2, doc.SubjectAreaCount)
	assert.Equal(t, 1, doc.Authors[0].AuthorPosition)
	assert.Equal(t, 2, doc.Authors[1].AuthorPosition)
	assert.True(t, doc.Authors[1].HasMatchedProfile)
	assert.False(t, doc.Authors[0].HasMatchedProfile)
}

func TestParsePositionFallsBackToZero(t *testing.T) {
	entry := cache.Entry{
		Authors: []cache.Author{{AuthorName: "Unknown Position", AuthorPosition: "first"}},
	}

	doc := ToEngineDocument(entry)

	assert.Equal(t, 0, doc.Authors[0].AuthorPosition)
}

func TestToEngineDocumentsPreservesOrder(t *testing.T) {
	entries := []cache.Entry{
		{DocumentID: "doc-1"},
		{DocumentID: "doc-2"},
	}

	docs := ToEngineDocuments(entries)

	assert.Equal(t, "doc-1", docs[0].DocumentID)
	assert.Equal(t, "doc-2", docs[1].DocumentID)
}
