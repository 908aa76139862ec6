package helper

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	database "github.com/yishak-cs/FlavorAI/internal/database"
)

// AppConfig holds everything the server reads from the environment
type AppConfig struct {
	Neo4j database.Config

	Port     string
	Env      string
	LogLevel string

	// MaxArchiveBytes caps an uploaded Takeout archive
	MaxArchiveBytes int64
	// MaxEntryBytes caps a single JSON file inside the archive
	MaxEntryBytes     int64
	ProfileCacheSize  int
	CandidatePoolSize int

	VenueDataURL  string
	ImportOnStart bool
	LexiconFile   string
	Timezone      string
}

// LogSettingsFromEnv reads only the logger settings, so the logger can be
// configured before the rest of the config is parsed and warns about bad values
func LogSettingsFromEnv() (env, level string) {
	return getEnvOrDefault("APP_ENV", "development"), getEnvOrDefault("LOG_LEVEL", "info")
}

// LoadConfigFromEnv loads the application configuration from environment variables
func LoadConfigFromEnv() AppConfig {
	env, level := LogSettingsFromEnv()
	return AppConfig{
		Neo4j: database.Config{
			URI:      getEnvOrDefault("NEO4J_URI", ""),
			Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
			Password: getEnvOrDefault("NEO4J_PASSWORD", ""),
			Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
		},
		Port:              getEnvOrDefault("APP_PORT", "8080"),
		Env:               env,
		LogLevel:          level,
		MaxArchiveBytes:   getEnvAsInt64("MAX_ARCHIVE_BYTES", 256<<20),
		MaxEntryBytes:     getEnvAsInt64("MAX_ENTRY_BYTES", 32<<20),
		ProfileCacheSize:  getEnvAsInt("PROFILE_CACHE_SIZE", 1024),
		CandidatePoolSize: getEnvAsInt("CANDIDATE_POOL_SIZE", 20),
		VenueDataURL:      getEnvOrDefault("VENUE_DATA_URL", ""),
		ImportOnStart:     getEnvAsBool("IMPORT_ON_START", false),
		LexiconFile:       getEnvOrDefault("LEXICON_FILE", ""),
		Timezone:          getEnvOrDefault("MEAL_TIMEZONE", ""),
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean, using default")
		return defaultValue
	}
	return b
}
