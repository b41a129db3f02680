// Package config loads every runtime setting from the environment once at startup
// into a single Config value, which is then handed to every component explicitly.
// Nothing outside this package calls os.Getenv.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for both the indexer and the search service.
type Config struct {
	Env  string
	Port int
	Host string

	// Authoritative document store
	MongoURI         string
	MongoCollection  string
	MongoMaxPoolSize int
	MongoBulkDelayMs int

	// Search engine
	OpenSearchHosts       []string
	OpenSearchUser        string
	OpenSearchPassword    string
	OpenSearchIndex       string
	OpenSearchVerifyCerts bool

	// Embedding service
	EmbeddingServiceURL string
	EmbeddingTimeout    int

	// Result / embedding cache
	RedisURL           string
	ResultCacheTTLSecs int
	EmbedCacheTTLSecs  int

	// Batch sizes
	MongoBatchSize     int
	EmbedBatchSize     int
	OpenSearchBulkSize int

	// Workers / retries
	NumWorkers int
	MaxRetries int

	// Cache directory for the two-phase pipeline checkpoint
	CacheDir string

	// Request timeout enforced at the HTTP edge for /search
	SearchRequestTimeoutSecs int

	// Related-people fallback toggle (spec.md §9 open question)
	EnableRelatedPeopleFallback bool
}

// Load reads configuration from environment variables, defaulting every field to the
// value named in spec.md §6. An optional .env file is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("ENV", "dev"),
		Port: getEnvInt("PORT", 3000),
		Host: getEnv("HOST", "0.0.0.0"),

		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017/research_db"),
		MongoCollection:  getEnv("MONGODB_COLLECTION", "researchmetadatascopuses"),
		MongoMaxPoolSize: getEnvInt("MONGO_MAX_POOL_SIZE", 20),
		MongoBulkDelayMs: getEnvInt("MONGO_BULK_DELAY_MS", 50),

		OpenSearchHosts:       strings.Split(getEnv("OPENSEARCH_HOSTS", getEnv("OPENSEARCH_NODE", "https://localhost:9200")), ","),
		OpenSearchUser:        getEnv("OPENSEARCH_USER", "admin"),
		OpenSearchPassword:    getEnv("OPENSEARCH_PASSWORD", "admin"),
		OpenSearchIndex:       getEnv("OPENSEARCH_INDEX", "research_documents"),
		OpenSearchVerifyCerts: getEnv("OPENSEARCH_VERIFY_CERTS", "false") == "true",

		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8001"),
		EmbeddingTimeout:    getEnvInt("EMBEDDING_TIMEOUT", 60),

		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ResultCacheTTLSecs: getEnvInt("RESULT_CACHE_TTL_SECONDS", 5*60),
		EmbedCacheTTLSecs:  getEnvInt("EMBED_CACHE_TTL_SECONDS", 24*60*60),

		MongoBatchSize:     getEnvInt("MONGO_BATCH_SIZE", 100),
		EmbedBatchSize:     getEnvInt("EMBED_BATCH_SIZE", 128),
		OpenSearchBulkSize: getEnvInt("OPENSEARCH_BULK_SIZE", 100),

		NumWorkers: getEnvInt("NUM_WORKERS", 8),
		MaxRetries: getEnvInt("MAX_RETRIES", 3),

		CacheDir: getEnv("CACHE_DIR", ".cache"),

		SearchRequestTimeoutSecs: getEnvInt("SEARCH_REQUEST_TIMEOUT_SECONDS", 15),

		EnableRelatedPeopleFallback: getEnv("ENABLE_RELATED_PEOPLE_FALLBACK", "false") == "true",
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
