package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// pinger is the minimal surface the health handler needs from the result cache.
type pinger interface {
	Ping(ctx context.Context) error
}

// embeddingHealth is the minimal surface needed to probe the embedding service.
type embeddingHealth interface {
	Health(ctx context.Context) error
}

// engineHealth is the minimal surface needed to probe the search engine cluster.
type engineHealth interface {
	ClusterHealth(ctx context.Context) (string, error)
}

// HealthHandler reports liveness of the engine cluster, the embedding endpoint and the
// result-cache store.
type HealthHandler struct {
	Engine   engineHealth
	Embedder embeddingHealth
	Cache    pinger
}

type healthResponseBody struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details"`
}

// RegisterRoutes mounts /api/v1/search/health.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/search/health", h.health)
}

func (h *HealthHandler) health(c *gin.Context) {
	details := map[string]string{}
	overall := "green"

	clusterStatus, err := h.Engine.ClusterHealth(c.Request.Context())
	if err != nil {
		details["engine"] = "unreachable"
		overall = "red"
	} else {
		details["engine"] = clusterStatus
		if clusterStatus != "green" && overall == "green" {
			overall = "yellow"
		}
	}

	if h.Embedder != nil {
		if err := h.Embedder.Health(c.Request.Context()); err != nil {
			details["embedding"] = "unreachable"
			overall = "red"
		} else {
			details["embedding"] = "ok"
		}
	}

	if h.Cache != nil {
		if err := h.Cache.Ping(c.Request.Context()); err != nil {
			details["result_cache"] = "unreachable"
			if overall == "green" {
				overall = "yellow"
			}
		} else {
			details["result_cache"] = "ok"
		}
	}

	c.JSON(http.StatusOK, healthResponseBody{Status: overall, Details: details})
}
