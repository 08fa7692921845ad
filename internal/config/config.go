package config

import (
	"os"
	"strconv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CompletionServiceURL string
	CompletionModel      string
	SearchServiceURL     string

	MaxSearchResults int // global cap on deduplicated search results
	ResultsPerQuery  int // per-query result cap inside the search orchestrator
	FetchTimeoutSec  int // per-request document fetch timeout

	SessionSecret string
}

func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "research_briefs"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "brief-artifacts"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		CompletionServiceURL: getenv("COMPLETION_SERVICE_URL", "http://llm-service:8000"),
		CompletionModel:      getenv("COMPLETION_MODEL", "gpt-4"),
		SearchServiceURL:     getenv("SEARCH_SERVICE_URL", "http://search-service:8001"),

		MaxSearchResults: getenvInt("MAX_SEARCH_RESULTS", 10),
		ResultsPerQuery:  getenvInt("RESULTS_PER_QUERY", 2),
		FetchTimeoutSec:  getenvInt("FETCH_TIMEOUT", 10),

		SessionSecret: getenv("SESSION_SECRET", ""),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
