// Package mapper implements the C3 Index Mapper: a pure transformation from a cache
// Entry to the research.EngineDocument the search engine is built on. It holds no state
// and calls nothing external.
package mapper

import (
	"strconv"

	"github.com/bobinette/research"
	"github.com/bobinette/research/cache"
)

// ToEngineDocument builds the denormalized engine projection of entry.
func ToEngineDocument(entry cache.Entry) research.EngineDocument {
	authors := make([]research.EngineAuthor, 0, len(entry.Authors))
	authorNames := make([]string, 0, len(entry.Authors))
	var authorNameVariants []string

	for _, a := range entry.Authors {
		authorNames = append(authorNames, a.AuthorName)
		authorNameVariants = append(authorNameVariants, a.AuthorNameVariants...)

		authors = append(authors, research.EngineAuthor{
			AuthorID:           a.AuthorID,
			AuthorName:         a.AuthorName,
			AuthorNameVariants: a.AuthorNameVariants,
			AuthorPosition:     parsePosition(a.AuthorPosition),
			AuthorAffiliation:  a.AuthorAffiliation,
			AuthorEmail:        a.AuthorEmail,
			HasMatchedProfile:  a.HasMatchedProfile,
		})
	}

	return research.EngineDocument{
		DocumentID:         entry.DocumentID,
		Title:              entry.Title,
		Abstract:           entry.Abstract,
		Authors:            authors,
		AuthorNames:        authorNames,
		AuthorNameVariants: authorNameVariants,
		PublicationYear:    entry.PublicationYear,
		FieldAssociated:    entry.FieldAssociated,
		DocumentType:       entry.DocumentType,
		SubjectArea:        entry.SubjectArea,
		SubjectAreaCount:   len(entry.SubjectArea),
		CitationCount:      entry.CitationCount,
		ReferenceCount:     entry.ReferenceCount,
		Embedding:          entry.Embedding,
	}
}

// ToEngineDocuments maps a batch, preserving order.
func ToEngineDocuments(entries []cache.Entry) []research.EngineDocument {
	docs := make([]research.EngineDocument, len(entries))
	for i, e := range entries {
		docs[i] = ToEngineDocument(e)
	}
	return docs
}

// parsePosition parses a 1-based author position from its upstream string form,
// defaulting to 0 on any parse failure.
func parsePosition(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
