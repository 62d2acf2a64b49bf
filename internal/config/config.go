package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Badge    BadgeConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

type RedisConfig struct {
	Addr     string
	Enabled  bool
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	BadgeCreated   string
	BadgeUpdated   string
	BadgeDeleted   string
	BadgeCheckedIn string
}

type AuthConfig struct {
	OIDCIssuer string
	Enabled    bool
}

type BadgeConfig struct {
	DefaultEventID string
	BulkBatchSize  int
	FontPath       string
	PublicBaseURL  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "badge_user"),
			Password:     getEnv("DB_PASSWORD", "badge_pass"),
			Database:     getEnv("DB_NAME", "badging"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			CacheTTL: time.Duration(getEnvInt("REDIS_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				BadgeCreated:   getEnv("KAFKA_TOPIC_BADGE_CREATED", "badge-created"),
				BadgeUpdated:   getEnv("KAFKA_TOPIC_BADGE_UPDATED", "badge-updated"),
				BadgeDeleted:   getEnv("KAFKA_TOPIC_BADGE_DELETED", "badge-deleted"),
				BadgeCheckedIn: getEnv("KAFKA_TOPIC_BADGE_CHECKED_IN", "badge-checked-in"),
			},
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			Enabled:    getEnvBool("AUTH_ENABLED", false),
		},
		Badge: BadgeConfig{
			DefaultEventID: getEnv("BADGE_DEFAULT_EVENT_ID", "default_event"),
			BulkBatchSize:  getEnvInt("BADGE_BULK_BATCH_SIZE", 10),
			FontPath:       getEnv("BADGE_FONT_PATH", "./fonts/DejaVuSans.ttf"),
			PublicBaseURL:  getEnv("BADGE_PUBLIC_BASE_URL", "http://localhost:8080"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
