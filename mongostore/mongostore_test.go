package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotIndexedFilterReindexAll(t *testing.T) {
	assert.Equal(t, bson.M{}, notIndexedFilter(true))
}

func TestNotIndexedFilterDefault(t *testing.T) {
	got := notIndexedFilter(false)
	want := bson.M{"open_search_id": bson.M{"$in": []interface{}{nil, ""}}}
	assert.Equal(t, want, got)
}

func TestRegexEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "ada.lovelace", `ada\.lovelace`},
		{"no special chars", "adalovelace", "adalovelace"},
		{"multiple specials", "a+b*c", `a\+b\*c`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, regexEscape(tt.in))
		})
	}
}

func TestDatabaseNameFromURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"with query string", "mongodb://host:27017/research?retryWrites=true", "research"},
		{"no query string", "mongodb://host:27017/research", "research"},
		{"no path segment", "mongodb://host:27017", "research_db"},
		{"trailing slash only", "mongodb://host:27017/", "research_db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, databaseNameFromURI(tt.uri))
		})
	}
}

func TestBsonDocumentToDomain(t *testing.T) {
	id := primitive.NewObjectID()
	doc := bsonDocument{
		ID:       id,
		Title:    "Attention Is All You Need",
		Abstract: "We propose a new architecture.",
		Authors: []bsonAuthor{
			{AuthorID: "a1", AuthorName: "Ada Lovelace", AuthorPosition: "1", HasMatchedProfile: true},
		},
		PublicationYear: 2017,
		SubjectArea:     []string{"cs.CL"},
		OpenSearchID:    "os-1",
	}

	domain := doc.toDomain()

	assert.Equal(t, id.Hex(), domain.ID)
	assert.Equal(t, doc.Title, domain.Title)
	assert.Equal(t, doc.Abstract, domain.Abstract)
	assert.Equal(t, doc.OpenSearchID, domain.OpenSearchID)
	if assert.Len(t, domain.Authors, 1) {
		assert.Equal(t, "a1", domain.Authors[0].AuthorID)
		assert.Equal(t, "1", domain.Authors[0].AuthorPosition)
		assert.True(t, domain.Authors[0].HasMatchedProfile)
	}
}
