package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Elasticsearch, empty disables the search index
	ElasticsearchURL string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// Service Ports
	APIPort     string
	IndexerPort string

	// Search index sync
	IndexSyncInterval time.Duration

	// Booking wizard
	DraftTTL       time.Duration
	SeatMapMode    string
	SeatMapOpenPct float64

	// Mock bKash verification
	MockPaymentDelay       time.Duration
	MockPaymentSuccessRate float64

	UploadDir     string
	AdminEmail    string
	AdminPassword string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "explorebd"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),
		JWTExpiry: parseDuration(getEnv("JWT_EXPIRY", "24h"), 24*time.Hour),

		APIPort:     getEnv("API_PORT", "8080"),
		IndexerPort: getEnv("INDEXER_PORT", "8081"),

		IndexSyncInterval: parseDuration(getEnv("INDEX_SYNC_INTERVAL", "30s"), 30*time.Second),

		DraftTTL:       parseDuration(getEnv("BOOKING_DRAFT_TTL", "30m"), 30*time.Minute),
		SeatMapMode:    getEnv("SEATMAP_MODE", "derived"),
		SeatMapOpenPct: getEnvFloat("SEATMAP_OPEN_PROBABILITY", 0.7),

		MockPaymentDelay:       parseDuration(getEnv("MOCK_PAYMENT_DELAY", "2s"), 2*time.Second),
		MockPaymentSuccessRate: getEnvFloat("MOCK_PAYMENT_SUCCESS_RATE", 1.0),

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@explorebd.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return duration
}
