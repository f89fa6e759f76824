package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Transcription TranscriptionConfig
	Anthropic     AnthropicConfig
	OTEL          OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TranscriptionConfig holds speech-to-text provider configuration
type TranscriptionConfig struct {
	// Primary selects which provider is tried first: "deepgram" or "assemblyai".
	Primary          string
	DeepgramAPIKey   string
	DeepgramModel    string
	AssemblyAIAPIKey string
	MaxRetries       int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration
	MinAudioBytes    int
	MaxAudioBytes    int
}

// AnthropicConfig holds completion model configuration
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// Advisory cost rates per 1K tokens, used for the analysis cost estimate only.
	InputCostPer1K  float64
	OutputCostPer1K float64
	// RateLimitRPM caps outbound requests per minute. Negative disables the limiter.
	RateLimitRPM   int
	RateLimitBurst int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "healthsnap"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Transcription: TranscriptionConfig{
			Primary:          getEnv("TRANSCRIPTION_PRIMARY", "deepgram"),
			DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
			DeepgramModel:    getEnv("DEEPGRAM_MODEL", "nova-2"),
			AssemblyAIAPIKey: getEnv("ASSEMBLYAI_API_KEY", ""),
			MaxRetries:       getEnvAsInt("TRANSCRIPTION_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsDuration("TRANSCRIPTION_RETRY_DELAY", time.Second),
			RequestTimeout:   getEnvAsDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
			MinAudioBytes:    getEnvAsInt("AUDIO_MIN_BYTES", 1024),
			MaxAudioBytes:    getEnvAsInt("AUDIO_MAX_BYTES", 10*1024*1024),
		},
		Anthropic: AnthropicConfig{
			APIKey:          getEnv("ANTHROPIC_API_KEY", ""),
			Model:           getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:       getEnvAsInt("ANTHROPIC_MAX_TOKENS", 2000),
			InputCostPer1K:  getEnvAsFloat("ANTHROPIC_INPUT_COST_PER_1K", 0.003),
			OutputCostPer1K: getEnvAsFloat("ANTHROPIC_OUTPUT_COST_PER_1K", 0.015),
			RateLimitRPM:    getEnvAsInt("ANTHROPIC_RATE_LIMIT_RPM", 60),
			RateLimitBurst:  getEnvAsInt("ANTHROPIC_RATE_LIMIT_BURST", 5),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "healthsnap-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
