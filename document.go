// Package research holds the domain types shared by the indexing pipeline and the
// search service: the authoritative document model, the engine projection, and the
// interfaces each component is built against. Concrete storage/engine backends live in
// their own packages (mongostore, opensearchengine) and are handed in at construction
// time — nothing in this package reaches for a global.
package research

import "context"

// Author is a single author entry on a Document, in the order it appears on the paper.
type Author struct {
	AuthorID          string
	AuthorName        string
	AuthorNames       []string // alternative/known name variants
	AuthorPosition    string   // 1-based position within the paper, as stored upstream
	AuthorAffiliation string
	AuthorEmail       string
	HasMatchedProfile bool
}

// Document is the authoritative record for a research paper, as held by the document
// store. The system only ever reads title/abstract/authors/etc. from this store; it
// writes back exactly one field, OpenSearchID, once Phase 2 has indexed the document.
type Document struct {
	ID              string
	Title           string
	Abstract        string
	Authors         []Author
	PublicationYear int
	FieldAssociated string
	DocumentType    string
	SubjectArea     []string
	CitationCount   int
	ReferenceCount  int
	OpenSearchID    string
}

// Person is a minimal institutional-directory record, used by the optional
// "related people" enrichment to resolve matched author emails back to a person.
type Person struct {
	ID          string
	Name        string
	Email       string
	Affiliation string
}

// DocumentStore is the authoritative store collaborator named in spec.md §6. Its wire
// protocol is out of this spec's scope; this interface is the contract the rest of the
// system programs against. mongostore.Store is the concrete implementation.
type DocumentStore interface {
	// CountToIndex returns how many documents still need a Phase 1/Phase 2 pass. When
	// reindexAll is true every document counts, regardless of OpenSearchID.
	CountToIndex(ctx context.Context, reindexAll bool) (int64, error)

	// Stream yields documents needing indexing on a channel, closing it when the
	// underlying cursor is exhausted or ctx is cancelled. limit<=0 means no limit.
	Stream(ctx context.Context, reindexAll bool, limit int) (<-chan Document, error)

	// Get fetches a single document by authoritative id.
	Get(ctx context.Context, id string) (*Document, error)

	// GetMany fetches multiple documents in one round trip. The returned slice is not
	// guaranteed to preserve the order of ids, or to contain an entry for every id —
	// callers needing order (hydration) must re-key by Document.ID themselves.
	GetMany(ctx context.Context, ids []string) ([]Document, error)

	// ByAuthor returns documents with an author matching authorID, newest first,
	// paginated.
	ByAuthor(ctx context.Context, authorID string, offset, limit int) ([]Document, int64, error)

	// UpdateCrossRefID sets a single document's OpenSearchID. Idempotent.
	UpdateCrossRefID(ctx context.Context, id, openSearchID string) error

	// BulkUpdateCrossRefIDs applies CrossRefID updates, unordered, best-effort.
	BulkUpdateCrossRefIDs(ctx context.Context, updates []CrossRefUpdate) error

	// ClearCrossRefIDs unsets OpenSearchID on every document, used by reindex-full.
	ClearCrossRefIDs(ctx context.Context) error

	// FindPeopleByEmailPrefix looks up people records whose email's local part matches
	// one of the given prefixes (case-insensitive), used by the optional related-people
	// enrichment (C6 step 7).
	FindPeopleByEmailPrefix(ctx context.Context, prefixes []string) ([]Person, error)
}

// CrossRefUpdate pairs an authoritative document id with the engine id it was indexed
// under, for a single bulk back-sync write.
type CrossRefUpdate struct {
	DocumentID   string
	OpenSearchID string
}
