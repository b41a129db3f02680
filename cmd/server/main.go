// Command server runs the search HTTP surface: it wires the authoritative store, the
// search engine, the embedding service, the two Redis-backed caches, the orchestrator
// and the gin router together and listens on the configured address.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobinette/research/config"
	"github.com/bobinette/research/embedding"
	"github.com/bobinette/research/kvcache"
	"github.com/bobinette/research/log"
	"github.com/bobinette/research/mongostore"
	"github.com/bobinette/research/opensearchengine"
	"github.com/bobinette/research/resultcache"
	"github.com/bobinette/research/search"
	"github.com/bobinette/research/web"
)

func main() {
	cfg := config.Load()
	logger := log.New(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := mongostore.New(ctx, mongostore.Config{
		URI:            cfg.MongoURI,
		Collection:     cfg.MongoCollection,
		MaxPoolSize:    cfg.MongoMaxPoolSize,
		BulkDelayMs:    cfg.MongoBulkDelayMs,
		MongoBatchSize: cfg.MongoBatchSize,
	})
	if err != nil {
		logger.Fatalf("could not connect to document store: %v", err)
	}

	engine, err := opensearchengine.New(opensearchengine.Config{
		Hosts:       cfg.OpenSearchHosts,
		User:        cfg.OpenSearchUser,
		Password:    cfg.OpenSearchPassword,
		Index:       cfg.OpenSearchIndex,
		VerifyCerts: cfg.OpenSearchVerifyCerts,
	})
	if err != nil {
		logger.Fatalf("could not connect to search engine: %v", err)
	}

	embedCache, err := kvcache.New(cfg.RedisURL, "embed", time.Duration(cfg.EmbedCacheTTLSecs)*time.Second)
	if err != nil {
		logger.Fatalf("could not connect to embedding cache: %v", err)
	}

	embedder := embedding.New(embedding.Options{
		BaseURL:    cfg.EmbeddingServiceURL,
		Timeout:    time.Duration(cfg.EmbeddingTimeout) * time.Second,
		MaxRetries: cfg.MaxRetries,
		QueryCache: embedCache,
		Logger:     logger,
	})

	resultStore, err := kvcache.New(cfg.RedisURL, "search", time.Duration(cfg.ResultCacheTTLSecs)*time.Second)
	if err != nil {
		logger.Fatalf("could not connect to result cache: %v", err)
	}
	cache := resultcache.New(resultStore)

	orchestrator := &search.Orchestrator{
		Store:               store,
		Engine:              engine,
		Embedder:            embedder,
		Cache:               cache,
		Logger:              logger,
		EnableRelatedPeople: cfg.EnableRelatedPeopleFallback,
	}

	handler := web.New(orchestrator, store, engine, embedder, cache)

	// spec.md §5: the overall search request timeout is enforced at the edge, not by
	// any single collaborator — a slow embed or engine call must still be cut off.
	requestTimeout := time.Duration(cfg.SearchRequestTimeoutSecs) * time.Second
	handler = http.TimeoutHandler(handler, requestTimeout, `{"message":"request timed out"}`)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Printf("search service listening on %s", addr)
	logger.Fatal(http.ListenAndServe(addr, handler))
}
