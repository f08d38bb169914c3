package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	LeaderboardCacheTTL    time.Duration
	DashboardCacheTTL      time.Duration
	AnalyticsCacheTTL      time.Duration
	EnforceDeadline        bool
	DeadlineGrace          time.Duration
	SubmissionRateLimit    int
	SubmissionRateInterval time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Assessment API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("nats.subject", "gema.assessment")
	v.SetDefault("leaderboard.cache_ttl", "2m")
	v.SetDefault("dashboard.cache_ttl", "1m")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("submission.enforce_deadline", true)
	v.SetDefault("submission.deadline_grace", "30s")
	v.SetDefault("submission.rate_limit", 30)

	leaderboardTTL, err := parseDuration(v, "leaderboard.cache_ttl", 2*time.Minute)
	if err != nil {
		return Config{}, err
	}

	dashboardTTL, err := parseDuration(v, "dashboard.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}

	analyticsTTL, err := parseDuration(v, "analytics.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	grace, err := parseDuration(v, "submission.deadline_grace", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		DatabaseDriver:         strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		LeaderboardCacheTTL:    leaderboardTTL,
		DashboardCacheTTL:      dashboardTTL,
		AnalyticsCacheTTL:      analyticsTTL,
		EnforceDeadline:        v.GetBool("submission.enforce_deadline"),
		DeadlineGrace:          grace,
		SubmissionRateLimit:    v.GetInt("submission.rate_limit"),
		SubmissionRateInterval: time.Minute,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.SubmissionRateLimit <= 0 {
		cfg.SubmissionRateLimit = 30
	}

	if cfg.DeadlineGrace < 0 {
		cfg.DeadlineGrace = 0
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}
