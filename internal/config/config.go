package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	TranslateAPIKey       string
	TranslationModel      string
	EmbeddingModel        string
	EmbeddingBaseURL      string
	EmbeddingDimensions   int
	DatabaseURL           string
	Neo4jURI              string
	Neo4jUser             string
	Neo4jPassword         string
	SourceLocale          string
	TargetLocale          string
	WorkerCount           int
	BatchSize             int
	MaxConcurrentAPICalls int
	RetryAttempts         int
	RetryBaseDelay        time.Duration
	AttemptTimeout        time.Duration
	OverallTimeout        time.Duration
	CacheTTL              time.Duration
	HeuristicsFile        string
	Heuristics            Heuristics
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		TranslateAPIKey:       getEnv("TRANSLATE_API_KEY", ""),
		TranslationModel:      getEnv("TRANSLATION_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingBaseURL:      getEnv("EMBEDDING_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		EmbeddingDimensions:   getEnvInt("EMBEDDING_DIMENSIONS", 768),
		DatabaseURL:           getEnv("DATABASE_URL", "postgres://localhost:5432/p3fes_translator?sslmode=disable"),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		SourceLocale:          getEnv("SOURCE_LOCALE", "en"),
		TargetLocale:          getEnv("TARGET_LOCALE", "fr"),
		WorkerCount:           getEnvInt("WORKER_COUNT", 8),
		BatchSize:             getEnvInt("BATCH_SIZE", 10),
		MaxConcurrentAPICalls: getEnvInt("MAX_CONCURRENT_API_CALLS", 5),
		RetryAttempts:         getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:        getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		AttemptTimeout:        getEnvDuration("ATTEMPT_TIMEOUT", 30*time.Second),
		OverallTimeout:        getEnvDuration("OVERALL_TIMEOUT", 3*time.Minute),
		CacheTTL:              getEnvDuration("CACHE_TTL", 30*24*time.Hour),
		HeuristicsFile:        getEnv("HEURISTICS_FILE", ""),
	}

	cfg.Heuristics = LoadHeuristics(cfg.HeuristicsFile)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
