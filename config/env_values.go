package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"tutor-ai/internal/constants"

	"github.com/joho/godotenv"
)

type Environment struct {
	// Server configs
	IsDocker          bool
	Port              string
	Environment       string
	CorsAllowedOrigin string
	DailyMessageLimit int

	// Auth configs
	JWTSecret            string
	JWTExpirationMinutes int

	// Primary database configs
	DatabaseType string
	DatabaseDSN  string

	// Document store configs
	MongoURI          string
	MongoDatabaseName string

	// Redis configs
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// Agent backend configs
	AgentBackendURL            string
	AgentBackendTimeoutSeconds int

	// Scenario configs
	ScenarioSaveDebounceMs int
	ScenarioStepDelayMs    int

	// Link preview configs
	LinkPreviewTTLMinutes int

	// LLM configs
	DefaultLLMClient string

	// OpenAI configs
	OpenAIAPIKey              string
	OpenAIModel               string
	OpenAIMaxCompletionTokens int
	OpenAITemperature         float64

	// Gemini configs
	GeminiAPIKey              string
	GeminiModel               string
	GeminiMaxCompletionTokens int
	GeminiTemperature         float64
}

var Env Environment

// LoadEnv loads environment variables from .env file if present
// and validates required variables
func LoadEnv() error {
	Env.IsDocker = getBoolEnvWithDefault("IS_DOCKER", false)

	// Load .env file only if not running in Docker
	if !Env.IsDocker {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: .env file not found: %v\n", err)
		}
	}

	// Server configs
	Env.Port = getEnvWithDefault("PORT", "3000")
	Env.Environment = getEnvWithDefault("ENVIRONMENT", "DEVELOPMENT")
	Env.CorsAllowedOrigin = getEnvWithDefault("CORS_ALLOWED_ORIGIN", "http://localhost:3001")
	Env.DailyMessageLimit = getIntEnvWithDefault("DAILY_MESSAGE_LIMIT", 0) // 0 disables the limit

	// Auth configs
	Env.JWTSecret = getEnvWithDefault("JWT_SECRET", "")
	Env.JWTExpirationMinutes = getIntEnvWithDefault("JWT_EXPIRATION_MINUTES", 60*24)

	// Primary database configs
	Env.DatabaseType = strings.ToLower(getEnvWithDefault("DATABASE_TYPE", constants.DatabaseTypePostgres))
	Env.DatabaseDSN = getEnvWithDefault("DATABASE_DSN", "host=localhost port=5432 user=postgres dbname=tutor sslmode=disable")

	// Document store configs
	Env.MongoURI = getEnvWithDefault("MONGODB_URI", "mongodb://localhost:27017/tutor")
	Env.MongoDatabaseName = getEnvWithDefault("MONGODB_NAME", "tutor")

	// Redis configs
	Env.RedisHost = getEnvWithDefault("REDIS_HOST", "localhost")
	Env.RedisPort = getEnvWithDefault("REDIS_PORT", "6379")
	Env.RedisUsername = getEnvWithDefault("REDIS_USERNAME", "")
	Env.RedisPassword = getEnvWithDefault("REDIS_PASSWORD", "")

	// Agent backend configs
	Env.AgentBackendURL = strings.TrimRight(getEnvWithDefault("AGENT_BACKEND_URL", "http://localhost:5002"), "/")
	Env.AgentBackendTimeoutSeconds = getIntEnvWithDefault("AGENT_BACKEND_TIMEOUT_SECONDS", 120)

	// Scenario configs
	Env.ScenarioSaveDebounceMs = getIntEnvWithDefault("SCENARIO_SAVE_DEBOUNCE_MS", 1000)
	Env.ScenarioStepDelayMs = getIntEnvWithDefault("SCENARIO_STEP_DELAY_MS", 500)

	// Link preview configs
	Env.LinkPreviewTTLMinutes = getIntEnvWithDefault("LINK_PREVIEW_TTL_MINUTES", 60*24)

	// LLM configs
	Env.DefaultLLMClient = getEnvWithDefault("DEFAULT_LLM_CLIENT", constants.OpenAI)

	// OpenAI configs
	Env.OpenAIAPIKey = getEnvWithDefault("OPENAI_API_KEY", "")
	Env.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", constants.OpenAIModel)
	Env.OpenAIMaxCompletionTokens = getIntEnvWithDefault("OPENAI_MAX_COMPLETION_TOKENS", constants.OpenAIMaxCompletionTokens)
	Env.OpenAITemperature = getFloatEnvWithDefault("OPENAI_TEMPERATURE", constants.OpenAITemperature)

	// Gemini configs
	Env.GeminiAPIKey = getEnvWithDefault("GEMINI_API_KEY", "")
	Env.GeminiModel = getEnvWithDefault("GEMINI_MODEL", constants.GeminiModel)
	Env.GeminiMaxCompletionTokens = getIntEnvWithDefault("GEMINI_MAX_COMPLETION_TOKENS", constants.GeminiMaxCompletionTokens)
	Env.GeminiTemperature = getFloatEnvWithDefault("GEMINI_TEMPERATURE", constants.GeminiTemperature)

	return validateConfig()
}

// IsDevelopment reports whether the server runs in DEVELOPMENT mode
func IsDevelopment() bool {
	return Env.Environment == "DEVELOPMENT"
}

// Helper functions to get environment variables with defaults and validation
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %d\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %v\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strValue)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %v\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func validateConfig() error {
	switch Env.DatabaseType {
	case constants.DatabaseTypePostgres, constants.DatabaseTypeMySQL:
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE: %s", Env.DatabaseType)
	}

	if Env.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN cannot be empty")
	}

	if !isValidURI(Env.MongoURI) {
		return fmt.Errorf("invalid MONGODB_URI format: %s", Env.MongoURI)
	}

	if !strings.HasPrefix(Env.AgentBackendURL, "http://") && !strings.HasPrefix(Env.AgentBackendURL, "https://") {
		return fmt.Errorf("AGENT_BACKEND_URL must be an http(s) URL, got: %s", Env.AgentBackendURL)
	}

	if Env.ScenarioSaveDebounceMs <= 0 {
		return fmt.Errorf("SCENARIO_SAVE_DEBOUNCE_MS must be positive, got: %d", Env.ScenarioSaveDebounceMs)
	}

	if Env.DailyMessageLimit < 0 {
		return fmt.Errorf("DAILY_MESSAGE_LIMIT cannot be negative, got: %d", Env.DailyMessageLimit)
	}

	return nil
}

func isValidURI(uri string) bool {
	return len(uri) > 10 && strings.HasPrefix(uri, "mongodb")
}
