package resultcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobinette/research"
)

func TestKeyStableUnderFieldOrder(t *testing.T) {
	a := research.SearchRequest{
		Query: "transformers",
		Filters: research.Filters{
			DocumentTypes: []string{"article", "preprint"},
			YearFrom:      2020,
		},
	}
	b := research.SearchRequest{
		Query: "transformers",
		Filters: research.Filters{
			YearFrom:      2020,
			DocumentTypes: []string{"preprint", "article"},
		},
	}

	assert.Equal(t, Key(a), Key(b))
}

func TestKeyDiffersOnQuery(t *testing.T) {
	a := research.SearchRequest{Query: "transformers"}
	b := research.SearchRequest{Query: "diffusion"}

	assert.NotEqual(t, Key(a), Key(b))
}

func TestKeyHasNamespaceAndLength(t *testing.T) {
	k := Key(research.SearchRequest{Query: "x"})
	assert.Contains(t, k, "search:")
	assert.Len(t, k, len("search:")+16)
}

func TestKeyIgnoresZeroFields(t *testing.T) {
	a := research.SearchRequest{Query: "x"}
	b := research.SearchRequest{Query: "x", Filters: research.Filters{YearFrom: 0, YearTo: 0}}

	assert.Equal(t, Key(a), Key(b))
}

func TestKeyDiffersOnSearchIn(t *testing.T) {
	a := research.SearchRequest{Query: "x", SearchIn: []string{"title"}}
	b := research.SearchRequest{Query: "x", SearchIn: []string{"abstract"}}

	assert.NotEqual(t, Key(a), Key(b))
}

func TestKeyStableUnderSearchInOrderAndDefaultEquivalence(t *testing.T) {
	a := research.SearchRequest{Query: "x", SearchIn: []string{"field", "title", "abstract", "author", "subject_area"}}
	b := research.SearchRequest{Query: "x"} // empty search_in normalizes to the same default set

	assert.Equal(t, Key(a), Key(b))
}
