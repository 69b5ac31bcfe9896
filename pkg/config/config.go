package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Fraud    FraudConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL     string
	Subject string
	Enabled bool
}

// FraudConfig holds every tunable of the detection engine. All values are
// independently overridable through the environment; zero values fall back
// to the engine defaults at construction.
type FraudConfig struct {
	ExactMatchThreshold        float64
	FuzzyMatchThreshold        float64
	SemanticMatchThreshold     float64
	StructuralMatchThreshold   float64
	DuplicateContentWeight     float64
	DevicePatternWeight        float64
	TemporalPatternWeight      float64
	VoicePatternWeight         float64
	SuspiciousTimeWindow       time.Duration
	MaxSubmissionsPerHour      int
	MinPatternOccurrences      int
	SuspiciousPatternThreshold int
	ConservativeMode           bool
	ConservativeModeMultiplier float64
	DetectorTimeout            time.Duration
	HistoryRetention           time.Duration
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "feedback"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_FRAUD_SUBJECT", "fraud.alerts"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Fraud: FraudConfig{
			ExactMatchThreshold:        getEnvAsFloat("FRAUD_EXACT_MATCH_THRESHOLD", 0.95),
			FuzzyMatchThreshold:        getEnvAsFloat("FRAUD_FUZZY_MATCH_THRESHOLD", 0.85),
			SemanticMatchThreshold:     getEnvAsFloat("FRAUD_SEMANTIC_MATCH_THRESHOLD", 0.90),
			StructuralMatchThreshold:   getEnvAsFloat("FRAUD_STRUCTURAL_MATCH_THRESHOLD", 0.80),
			DuplicateContentWeight:     getEnvAsFloat("FRAUD_DUPLICATE_CONTENT_WEIGHT", 0.35),
			DevicePatternWeight:        getEnvAsFloat("FRAUD_DEVICE_PATTERN_WEIGHT", 0.25),
			TemporalPatternWeight:      getEnvAsFloat("FRAUD_TEMPORAL_PATTERN_WEIGHT", 0.20),
			VoicePatternWeight:         getEnvAsFloat("FRAUD_VOICE_PATTERN_WEIGHT", 0.20),
			SuspiciousTimeWindow:       getEnvAsDuration("FRAUD_SUSPICIOUS_TIME_WINDOW", time.Hour),
			MaxSubmissionsPerHour:      getEnvAsInt("FRAUD_MAX_SUBMISSIONS_PER_HOUR", 3),
			MinPatternOccurrences:      getEnvAsInt("FRAUD_MIN_PATTERN_OCCURRENCES", 3),
			SuspiciousPatternThreshold: getEnvAsInt("FRAUD_SUSPICIOUS_PATTERN_THRESHOLD", 2),
			ConservativeMode:           getEnvAsBool("FRAUD_CONSERVATIVE_MODE", false),
			ConservativeModeMultiplier: getEnvAsFloat("FRAUD_CONSERVATIVE_MULTIPLIER", 1.3),
			DetectorTimeout:            getEnvAsDuration("FRAUD_DETECTOR_TIMEOUT", 250*time.Millisecond),
			HistoryRetention:           getEnvAsDuration("FRAUD_HISTORY_RETENTION", 7*24*time.Hour),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
