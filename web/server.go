// Package web is the gin-based HTTP surface for the search service: request binding,
// response shaping and error-to-status mapping live here; the actual search algorithm
// is the search package's Orchestrator.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bobinette/research"
	"github.com/bobinette/research/search"
)

// New builds the full router: CORS, the search endpoint, document/similarity/
// collaborator lookups, and the health endpoint.
func New(
	orchestrator *search.Orchestrator,
	store research.DocumentStore,
	engine research.SearchEngine,
	embedder embeddingHealth,
	cache pinger,
) http.Handler {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept-Language, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
		}
		c.Next()
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "page not found"})
	})

	searchHandler := SearchHandler{Orchestrator: orchestrator}
	searchHandler.RegisterRoutes(router)

	docHandler := DocumentHandler{Store: store, Engine: engine}
	docHandler.RegisterRoutes(router)

	healthHandler := HealthHandler{Engine: engine, Embedder: embedder, Cache: cache}
	healthHandler.RegisterRoutes(router)

	return router
}
