// Package mongostore is the concrete research.DocumentStore, backed by MongoDB. It is
// the single authoritative source of truth the pipeline reads from and the search
// orchestrator hydrates from.
package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
)

type bsonAuthor struct {
	AuthorID           string   `bson:"author_id"`
	AuthorName         string   `bson:"author_name"`
	AuthorNameVariants []string `bson:"author_available_names"`
	AuthorPosition     string   `bson:"author_position"`
	AuthorAffiliation  string   `bson:"author_affiliation"`
	AuthorEmail        string   `bson:"author_email"`
	HasMatchedProfile  bool     `bson:"has_matched_profile"`
}

type bsonDocument struct {
	ID              primitive.ObjectID `bson:"_id"`
	Title           string             `bson:"title"`
	Abstract        string             `bson:"abstract"`
	Authors         []bsonAuthor       `bson:"authors"`
	PublicationYear int                `bson:"publication_year"`
	FieldAssociated string             `bson:"field_associated"`
	DocumentType    string             `bson:"document_type"`
	SubjectArea     []string           `bson:"subject_area"`
	CitationCount   int                `bson:"citation_count"`
	ReferenceCount  int                `bson:"reference_count"`
	OpenSearchID    string             `bson:"open_search_id"`
}

type bsonPerson struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Affiliation string             `bson:"affiliation"`
}

func (d bsonDocument) toDomain() research.Document {
	authors := make([]research.Author, len(d.Authors))
	for i, a := range d.Authors {
		authors[i] = research.Author{
			AuthorID:          a.AuthorID,
			AuthorName:        a.AuthorName,
			AuthorNames:       a.AuthorNameVariants,
			AuthorPosition:    a.AuthorPosition,
			AuthorAffiliation: a.AuthorAffiliation,
			AuthorEmail:       a.AuthorEmail,
			HasMatchedProfile: a.HasMatchedProfile,
		}
	}

	return research.Document{
		ID:              d.ID.Hex(),
		Title:           d.Title,
		Abstract:        d.Abstract,
		Authors:         authors,
		PublicationYear: d.PublicationYear,
		FieldAssociated: d.FieldAssociated,
		DocumentType:    d.DocumentType,
		SubjectArea:     d.SubjectArea,
		CitationCount:   d.CitationCount,
		ReferenceCount:  d.ReferenceCount,
		OpenSearchID:    d.OpenSearchID,
	}
}

// Store is the concrete research.DocumentStore.
type Store struct {
	client         *mongo.Client
	collection     *mongo.Collection
	bulkDelay      time.Duration
	mongoBatchSize int
	people         string
}

// Config is the subset of config.Config the store needs.
type Config struct {
	URI              string
	Database         string
	Collection       string
	MaxPoolSize      int
	BulkDelayMs      int
	PeopleCollection string
	MongoBatchSize   int
}

// New connects to MongoDB, pings to verify the connection, and targets the configured
// collection. PeopleCollection, if empty, defaults to "people".
func New(ctx context.Context, cfg Config) (*Store, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(30 * time.Second)

	client, err := mongo.Connect(dialCtx, clientOpts)
	if err != nil {
		return nil, errors.StoreFailure("connect to mongodb", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		return nil, errors.StoreFailure("ping mongodb", err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = databaseNameFromURI(cfg.URI)
	}

	batchSize := cfg.MongoBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	people := cfg.PeopleCollection
	if people == "" {
		people = "people"
	}

	return &Store{
		client:         client,
		collection:     client.Database(dbName).Collection(cfg.Collection),
		bulkDelay:      time.Duration(cfg.BulkDelayMs) * time.Millisecond,
		mongoBatchSize: batchSize,
		people:         people,
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) peopleCollection() *mongo.Collection {
	return s.collection.Database().Collection(s.people)
}

func notIndexedFilter(reindexAll bool) bson.M {
	if reindexAll {
		return bson.M{}
	}
	return bson.M{"open_search_id": bson.M{"$in": []interface{}{nil, ""}}}
}

// CountToIndex returns how many documents still need a Phase 1/Phase 2 pass.
func (s *Store) CountToIndex(ctx context.Context, reindexAll bool) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, notIndexedFilter(reindexAll))
	if err != nil {
		return 0, errors.StoreFailure("count documents to index", err)
	}
	return count, nil
}

// Stream yields documents needing indexing on a channel, closing it when the cursor is
// exhausted or ctx is cancelled. The cursor is batched and the channel sized to
// mongoBatchSize (spec.md §4.4/§5: cursor batch size MongoBatchSize, channel capacity
// 2 × MongoBatchSize), so an operator-configured MONGO_BATCH_SIZE actually bounds both.
func (s *Store) Stream(ctx context.Context, reindexAll bool, limit int) (<-chan research.Document, error) {
	findOpts := options.Find().SetBatchSize(int32(s.mongoBatchSize))
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, notIndexedFilter(reindexAll), findOpts)
	if err != nil {
		return nil, errors.StoreFailure("stream documents", err)
	}

	out := make(chan research.Document, s.mongoBatchSize*2)
	go func() {
		defer close(out)
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc bsonDocument
			if err := cursor.Decode(&doc); err != nil {
				continue
			}
			select {
			case out <- doc.toDomain():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Get fetches a single document by hex id.
func (s *Store) Get(ctx context.Context, id string) (*research.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.ValidationError("invalid document id", err)
	}

	var doc bsonDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.DocumentNotFound("document not found")
	}
	if err != nil {
		return nil, errors.StoreFailure("get document", err)
	}

	result := doc.toDomain()
	return &result, nil
}

// GetMany fetches multiple documents in one round trip.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]research.Document, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}

	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, errors.StoreFailure("get many documents", err)
	}
	defer cursor.Close(ctx)

	var docs []bsonDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.StoreFailure("decode many documents", err)
	}

	result := make([]research.Document, len(docs))
	for i, d := range docs {
		result[i] = d.toDomain()
	}
	return result, nil
}

// ByAuthor returns documents with an author matching authorID, newest first, paginated.
func (s *Store) ByAuthor(ctx context.Context, authorID string, offset, limit int) ([]research.Document, int64, error) {
	filter := bson.M{"authors.author_id": authorID}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.StoreFailure("count documents by author", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "publication_year", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, errors.StoreFailure("find documents by author", err)
	}
	defer cursor.Close(ctx)

	var docs []bsonDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, errors.StoreFailure("decode documents by author", err)
	}

	result := make([]research.Document, len(docs))
	for i, d := range docs {
		result[i] = d.toDomain()
	}
	return result, total, nil
}

// UpdateCrossRefID sets a single document's OpenSearchID.
func (s *Store) UpdateCrossRefID(ctx context.Context, id, openSearchID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.ValidationError("invalid document id", err)
	}

	_, err = s.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"open_search_id": openSearchID}},
	)
	if err != nil {
		return errors.StoreFailure("update cross-reference id", err)
	}
	return nil
}

// BulkUpdateCrossRefIDs applies CrossRefID updates, unordered, best-effort, then sleeps
// the configured post-write delay to protect a free-tier write quota.
func (s *Store) BulkUpdateCrossRefIDs(ctx context.Context, updates []research.CrossRefUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		oid, err := primitive.ObjectIDFromHex(u.DocumentID)
		if err != nil {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{"open_search_id": u.OpenSearchID}}))
	}

	_, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))

	if s.bulkDelay > 0 {
		time.Sleep(s.bulkDelay)
	}

	if err != nil {
		return errors.StoreFailure("bulk update cross-reference ids", err)
	}
	return nil
}

// ClearCrossRefIDs unsets OpenSearchID on every document, used by reindex-full.
func (s *Store) ClearCrossRefIDs(ctx context.Context) error {
	_, err := s.collection.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"open_search_id": ""}})
	if err != nil {
		return errors.StoreFailure("clear cross-reference ids", err)
	}
	return nil
}

// FindPeopleByEmailPrefix looks up people whose email's local part (before the @)
// case-insensitively matches one of prefixes.
func (s *Store) FindPeopleByEmailPrefix(ctx context.Context, prefixes []string) ([]research.Person, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}

	patterns := make([]bson.M, 0, len(prefixes))
	for _, p := range prefixes {
		patterns = append(patterns, bson.M{"email": bson.M{"$regex": "^" + regexEscape(p), "$options": "i"}})
	}

	cursor, err := s.peopleCollection().Find(ctx, bson.M{"$or": patterns})
	if err != nil {
		return nil, errors.StoreFailure("find people by email prefix", err)
	}
	defer cursor.Close(ctx)

	var people []bsonPerson
	if err := cursor.All(ctx, &people); err != nil {
		return nil, errors.StoreFailure("decode people", err)
	}

	result := make([]research.Person, len(people))
	for i, p := range people {
		result[i] = research.Person{
			ID:          p.ID.Hex(),
			Name:        p.Name,
			Email:       p.Email,
			Affiliation: p.Affiliation,
		}
	}
	return result, nil
}

func regexEscape(s string) string {
	special := `.*+?()|[]{}^$\`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// databaseNameFromURI extracts the database name from a mongodb:// URI's path segment.
func databaseNameFromURI(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		uri = uri[i+3:]
	}
	slash := strings.IndexByte(uri, '/')
	if slash < 0 {
		return "research_db"
	}
	rest := uri[slash+1:]
	if j := strings.IndexByte(rest, '?'); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" {
		return "research_db"
	}
	return rest
}
