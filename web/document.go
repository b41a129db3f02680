package web

import (
	"github.com/gin-gonic/gin"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/query"
)

// DocumentHandler exposes the authoritative store and engine similarity/collaborator
// lookups that fall outside the main search path.
type DocumentHandler struct {
	Store  research.DocumentStore
	Engine research.SearchEngine
}

// RegisterRoutes mounts the document HTTP surface under /api/v1.
func (h *DocumentHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.GET("/document/:id", JSONFormatter(h.get))
	v1.GET("/documents/by-author/:authorId", JSONFormatter(h.byAuthor))
	v1.GET("/document/:id/similar", JSONFormatter(h.similar))
	v1.GET("/author/:id/collaborators", JSONFormatter(h.collaborators))
}

func (h *DocumentHandler) get(c *gin.Context) (interface{}, error) {
	doc, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"document": doc}, nil
}

func (h *DocumentHandler) byAuthor(c *gin.Context) (interface{}, error) {
	page, err := queryInt("page", c, 1)
	if err != nil || page <= 0 {
		return nil, errors.ValidationError("invalid page", err)
	}
	perPage, err := queryInt("per_page", c, 20)
	if err != nil || perPage <= 0 || perPage > 100 {
		return nil, errors.ValidationError("invalid per_page", err)
	}

	docs, total, err := h.Store.ByAuthor(c.Request.Context(), c.Param("authorId"), (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"documents": docs,
		"pagination": paginationBody{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
		},
	}, nil
}

type similarResponseBody struct {
	Source  similarSourceBody `json:"source"`
	Similar []similarHitBody  `json:"similar"`
}

type similarSourceBody struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	SubjectAreas []string `json:"subject_areas"`
}

type similarHitBody struct {
	Document       research.Document `json:"document"`
	SimilarityScore float64          `json:"similarity_score"`
}

func (h *DocumentHandler) similar(c *gin.Context) (interface{}, error) {
	id := c.Param("id")

	limit, err := queryInt("limit", c, 10)
	if err != nil || limit <= 0 {
		return nil, errors.ValidationError("invalid limit", err)
	}

	source, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if source.OpenSearchID == "" {
		return nil, errors.DocumentNotFound("document has not been indexed")
	}

	vector, err := h.Engine.GetEmbedding(c.Request.Context(), source.OpenSearchID)
	if err != nil {
		return nil, err
	}

	dsl := query.BuildSimilar(vector, limit+5, id)
	result, err := h.Engine.Execute(c.Request.Context(), dsl)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Hits))
	scoreByID := make(map[string]float64, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.DocumentID)
		scoreByID[hit.DocumentID] = hit.Score
	}

	docs, err := h.Store.GetMany(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]research.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	similar := make([]similarHitBody, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		if len(similar) >= limit {
			break
		}
		similar = append(similar, similarHitBody{Document: doc, SimilarityScore: scoreByID[id]})
	}

	return similarResponseBody{
		Source: similarSourceBody{
			ID:           source.ID,
			Title:        source.Title,
			SubjectAreas: source.SubjectArea,
		},
		Similar: similar,
	}, nil
}

type collaboratorsResponseBody struct {
	AuthorID     string               `json:"author_id"`
	TotalPapers  int64                `json:"total_papers"`
	Collaborators []collaboratorBody  `json:"collaborators"`
}

type collaboratorBody struct {
	AuthorID    string `json:"author_id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	PaperCount  int64  `json:"paper_count"`
}

func (h *DocumentHandler) collaborators(c *gin.Context) (interface{}, error) {
	authorID := c.Param("id")

	dsl := query.BuildCollaborators(authorID, 50)
	raw, err := h.Engine.ExecuteRaw(c.Request.Context(), dsl)
	if err != nil {
		return nil, err
	}

	return collaboratorsResponseBody{
		AuthorID:      authorID,
		TotalPapers:   extractPaperCount(raw),
		Collaborators: extractCollaborators(raw),
	}, nil
}

func extractPaperCount(raw map[string]interface{}) int64 {
	aggs, _ := raw["aggregations"].(map[string]interface{})
	papers, _ := aggs["papers"].(map[string]interface{})
	count, _ := papers["doc_count"].(float64)
	return int64(count)
}

func extractCollaborators(raw map[string]interface{}) []collaboratorBody {
	aggs, _ := raw["aggregations"].(map[string]interface{})
	collaborators, _ := aggs["collaborators"].(map[string]interface{})
	excluding, _ := collaborators["excluding_self"].(map[string]interface{})
	byAuthor, _ := excluding["by_author"].(map[string]interface{})
	buckets, _ := byAuthor["buckets"].([]interface{})

	result := make([]collaboratorBody, 0, len(buckets))
	for _, b := range buckets {
		bucket, ok := b.(map[string]interface{})
		if !ok {
			continue
		}

		authorID, _ := bucket["key"].(string)
		count, _ := bucket["doc_count"].(float64)

		name, affiliation := extractTopHitAuthor(bucket, authorID)

		result = append(result, collaboratorBody{
			AuthorID:    authorID,
			Name:        name,
			Affiliation: affiliation,
			PaperCount:  int64(count),
		})
	}
	return result
}

func extractTopHitAuthor(bucket map[string]interface{}, authorID string) (name string, affiliation string) {
	info, _ := bucket["info"].(map[string]interface{})
	hits, _ := info["hits"].(map[string]interface{})
	hitsList, _ := hits["hits"].([]interface{})
	if len(hitsList) == 0 {
		return "", ""
	}
	hit, _ := hitsList[0].(map[string]interface{})
	source, _ := hit["_source"].(map[string]interface{})
	// Under a nested aggregation the hit's _source is the nested author object itself.
	if id, _ := source["author_id"].(string); id == authorID {
		n, _ := source["author_name"].(string)
		aff, _ := source["author_affiliation"].(string)
		return n, aff
	}
	authors, _ := source["authors"].([]interface{})
	for _, a := range authors {
		author, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		if id, _ := author["author_id"].(string); id == authorID {
			n, _ := author["author_name"].(string)
			aff, _ := author["author_affiliation"].(string)
			return n, aff
		}
	}
	return "", ""
}
