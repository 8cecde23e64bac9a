package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Scheduling  SchedulingConfig
	Eligibility EligibilityConfig
	Notifier    NotifierConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	RetryMax     int
	RetryBase    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig tunes booking conflict detection.
type SchedulingConfig struct {
	// DeviceConflictCheck extends overlap detection to the device
	// dimension in addition to the teacher dimension.
	DeviceConflictCheck bool
}

// EligibilityConfig governs the eligible-device cache.
type EligibilityConfig struct {
	CacheTTL      time.Duration
	SnapshotTTL   time.Duration
	SnapshotCache bool
}

// NotifierConfig controls the fire-and-forget notification channel.
type NotifierConfig struct {
	Enabled bool
	Channel string
	Buffer  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		RetryMax:     v.GetInt("DB_RETRY_MAX"),
		RetryBase:    parseDuration(v.GetString("DB_RETRY_BASE"), 100*time.Millisecond),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		DeviceConflictCheck: v.GetBool("SCHEDULING_DEVICE_CONFLICT_CHECK"),
	}

	cfg.Eligibility = EligibilityConfig{
		CacheTTL:      parseDuration(v.GetString("ELIGIBILITY_CACHE_TTL"), 5*time.Minute),
		SnapshotTTL:   parseDuration(v.GetString("ELIGIBILITY_SNAPSHOT_TTL"), 30*time.Minute),
		SnapshotCache: v.GetBool("ELIGIBILITY_SNAPSHOT_CACHE"),
	}

	cfg.Notifier = NotifierConfig{
		Enabled: v.GetBool("NOTIFIER_ENABLED"),
		Channel: v.GetString("NOTIFIER_CHANNEL"),
		Buffer:  v.GetInt("NOTIFIER_BUFFER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "vr_fleet")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RETRY_MAX", 3)
	v.SetDefault("DB_RETRY_BASE", "100ms")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULING_DEVICE_CONFLICT_CHECK", false)

	v.SetDefault("ELIGIBILITY_CACHE_TTL", "5m")
	v.SetDefault("ELIGIBILITY_SNAPSHOT_TTL", "30m")
	v.SetDefault("ELIGIBILITY_SNAPSHOT_CACHE", false)

	v.SetDefault("NOTIFIER_ENABLED", false)
	v.SetDefault("NOTIFIER_CHANNEL", "fleet.notifications")
	v.SetDefault("NOTIFIER_BUFFER", 64)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
