package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB (users, LTI sessions, analytics)
	MongoURI string
	DBName   string

	// Vector index, source material and guide storage (RAG service)
	BaseIndexPath    string
	MaterialDataPath string
	GuideDataPath    string

	// Embedding endpoint (OpenAI-compatible /v1/embeddings)
	EmbeddingURL   string
	EmbeddingModel string
	EmbeddingRPS   int

	// Generation endpoint (OpenAI-compatible /v1/chat/completions)
	GenerationURL   string
	GenerationModel string

	// Optional fine-tuned generation endpoint for rag_lora mode
	LoraGenerationURL   string
	LoraGenerationModel string

	// Sibling services
	RAGServiceURL     string
	UserServiceURL    string
	LoggingServiceURL string

	// Moodle / LTI 1.3
	MoodleIssuer       string
	MoodleClientID     string
	MoodleJWKSURL      string
	MoodleAuthLoginURL string
	LTIConfigDir       string
	FrontendURL        string
	ChatbotBaseURL     string

	// Request plane
	RateLimitReqs         int
	RateLimitWindow       int
	SessionTimeoutMinutes int

	// Conversation checkpoints
	CheckpointDBPath string

	// Optional Redis for the LTI nonce replay cache
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Ingestion
	IngestBatchSize int
	ChunkSize       int
	ChunkOverlap    int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/ceprud_chatbot"),
		DBName:   getEnv("DB_NAME", "ceprud_chatbot"),

		BaseIndexPath:    getEnv("BASE_INDEX_PATH", "./data/index"),
		MaterialDataPath: getEnv("MATERIAL_DATA_PATH", "./data/materials"),
		GuideDataPath:    getEnv("GUIDE_DATA_PATH", "./data/guides"),

		EmbeddingURL:   getEnv("EMBEDDING_URL", "http://localhost:8001"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingRPS:   getEnvInt("EMBEDDING_RPS", 8),

		GenerationURL:   getEnv("GENERATION_URL", "http://localhost:8000"),
		GenerationModel: getEnv("GENERATION_MODEL", "Sreenington/Phi-3-mini-4k-instruct-AWQ"),

		LoraGenerationURL:   getEnv("LORA_GENERATION_URL", ""),
		LoraGenerationModel: getEnv("LORA_GENERATION_MODEL", ""),

		RAGServiceURL:     getEnv("RAG_SERVICE_URL", "http://localhost:8082"),
		UserServiceURL:    getEnv("USER_SERVICE_URL", "http://localhost:8081"),
		LoggingServiceURL: getEnv("LOGGING_SERVICE_URL", "http://localhost:8083"),

		MoodleIssuer:       getEnv("MOODLE_ISSUER", "https://moodle.ugr.es"),
		MoodleClientID:     getEnv("MOODLE_CLIENT_ID", ""),
		MoodleJWKSURL:      getEnv("MOODLE_JWKS_URL", "https://moodle.ugr.es/mod/lti/certs.php"),
		MoodleAuthLoginURL: getEnv("MOODLE_AUTH_LOGIN_URL", "https://moodle.ugr.es/mod/lti/auth.php"),
		LTIConfigDir:       getEnv("LTI_CONFIG_DIR", "./lti_config"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		ChatbotBaseURL:     getEnv("CHATBOT_BASE_URL", "http://localhost:8080"),

		RateLimitReqs:         getEnvInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:       getEnvInt("RATE_LIMIT_WINDOW", 60),
		SessionTimeoutMinutes: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),

		CheckpointDBPath: getEnv("CHECKPOINT_DB_PATH", "./storage/checkpoints.sqlite"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		IngestBatchSize: getEnvInt("INGEST_BATCH_SIZE", 128),
		ChunkSize:       getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 50),
	}

	return cfg, nil
}

// ValidateLTI checks the fields the LTI launch path cannot run without.
// Only the chatbot service needs them; the other services skip this.
func (c *Config) ValidateLTI() error {
	if c.MoodleClientID == "" {
		return fmt.Errorf("MOODLE_CLIENT_ID is required - set it in .env file")
	}
	if c.MoodleIssuer == "" {
		return fmt.Errorf("MOODLE_ISSUER is required - set it in .env file")
	}
	if c.MoodleJWKSURL == "" {
		return fmt.Errorf("MOODLE_JWKS_URL is required - set it in .env file")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
