package web

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bobinette/research"
	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/search"
)

// SearchHandler exposes the C6 orchestrator over HTTP.
type SearchHandler struct {
	Orchestrator *search.Orchestrator
}

type searchRequestBody struct {
	Query     string   `json:"query"`
	Sort      string   `json:"sort"`
	Page      int      `json:"page"`
	PerPage   int      `json:"per_page"`
	SearchIn  []string `json:"search_in"`
	Bypass    bool     `json:"bypass_cache"`
	Filters   struct {
		YearFrom          int      `json:"year_from"`
		YearTo            int      `json:"year_to"`
		FieldAssociated   string   `json:"field_associated"`
		DocumentType      string   `json:"document_type"`
		DocumentTypes     []string `json:"document_types"`
		SubjectArea       []string `json:"subject_area"`
		AuthorID          string   `json:"author_id"`
		Affiliation       string   `json:"affiliation"`
		FirstAuthorOnly   bool     `json:"first_author_only"`
		Interdisciplinary bool     `json:"interdisciplinary"`
	} `json:"filters"`
}

type searchResponseBody struct {
	Results       []searchResultBody        `json:"results"`
	RelatedPeople []research.RelatedPerson  `json:"related_people,omitempty"`
	Facets        research.Facets           `json:"facets"`
	Pagination    paginationBody            `json:"pagination"`
	Meta          metaBody                  `json:"meta"`
}

type searchResultBody struct {
	Document research.Document `json:"document"`
	Score    float64           `json:"score"`
}

type paginationBody struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type metaBody struct {
	TookMs   int64  `json:"took_ms"`
	CacheHit bool   `json:"cache_hit"`
	Message  string `json:"message,omitempty"`
}

// RegisterRoutes mounts the search HTTP surface under /api/v1.
func (h *SearchHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/search", JSONFormatter(h.search))
}

func (h *SearchHandler) search(c *gin.Context) (interface{}, error) {
	var body searchRequestBody
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		return nil, errors.ValidationError("invalid request body", err)
	}

	perPage := body.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := body.Page
	if page <= 0 {
		page = 1
	}

	req := research.SearchRequest{
		Query:    body.Query,
		Mode:     research.SortMode(body.Sort),
		SearchIn: body.SearchIn,
		Pagination: research.Pagination{
			Offset: (page - 1) * perPage,
			Limit:  perPage,
		},
		Filters: research.Filters{
			YearFrom:          body.Filters.YearFrom,
			YearTo:            body.Filters.YearTo,
			FieldAssociated:   body.Filters.FieldAssociated,
			DocumentType:      body.Filters.DocumentType,
			DocumentTypes:     body.Filters.DocumentTypes,
			SubjectArea:       body.Filters.SubjectArea,
			AuthorID:          body.Filters.AuthorID,
			Affiliation:       body.Filters.Affiliation,
			FirstAuthorOnly:   body.Filters.FirstAuthorOnly,
			Interdisciplinary: body.Filters.Interdisciplinary,
		},
	}

	started := time.Now()

	resp, err := h.Orchestrator.Search(c.Request.Context(), req, body.Bypass)
	if err != nil {
		return nil, err
	}

	results := make([]searchResultBody, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultBody{Document: r.Document, Score: r.Score}
	}

	totalPages := 0
	if perPage > 0 {
		totalPages = int((resp.Total + int64(perPage) - 1) / int64(perPage))
	}

	message := ""
	if resp.Total == 0 {
		message = "No relevant results found for your query"
	}

	return searchResponseBody{
		Results:       results,
		RelatedPeople: resp.RelatedPeople,
		Facets:        resp.Facets,
		Pagination: paginationBody{
			Page:       page,
			PerPage:    perPage,
			Total:      resp.Total,
			TotalPages: totalPages,
		},
		Meta: metaBody{
			TookMs:   time.Since(started).Milliseconds(),
			CacheHit: resp.FromCache,
			Message:  message,
		},
	}, nil
}
