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

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Waitlist      WaitlistConfig
	Planner       PlannerConfig
	Notifications NotificationsConfig
	Sweeps        SweepsConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WaitlistConfig tunes the promotion state machine.
type WaitlistConfig struct {
	// ResponseWindow is how long a notified student has to accept or decline an offer.
	ResponseWindow time.Duration
	// AvgTurnoverDaysPerSeat feeds the wait-time estimate shown to waitlisted students.
	AvgTurnoverDaysPerSeat int
}

// PlannerConfig governs the section capacity planner.
type PlannerConfig struct {
	Enabled            bool
	TargetUtilization  float64
	CacheTTL           time.Duration
	FeasibilityCutoff  float64
	DefaultSectionSize int
}

// NotificationsConfig selects the delivery channel for waitlist offers.
// With an empty SendGrid key, offers are logged to the console instead.
type NotificationsConfig struct {
	SendgridAPIKey string
	FromEmail      string
	FromName       string
	Workers        int
}

// SweepsConfig holds cron specs (with seconds) for the background sweeps.
type SweepsConfig struct {
	Enabled       bool
	ExpiredOffers string
	PromoteSeats  string
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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	turnover := v.GetInt("WAITLIST_AVG_TURNOVER_DAYS")
	if turnover <= 0 {
		turnover = 4
	}
	cfg.Waitlist = WaitlistConfig{
		ResponseWindow:         parseDuration(v.GetString("WAITLIST_RESPONSE_WINDOW"), 48*time.Hour),
		AvgTurnoverDaysPerSeat: turnover,
	}

	target := v.GetFloat64("PLANNER_TARGET_UTILIZATION")
	if target <= 0 || target > 1 {
		target = 0.85
	}
	cutoff := v.GetFloat64("PLANNER_FEASIBILITY_CUTOFF")
	if cutoff <= 0 || cutoff > 1 {
		cutoff = 0.6
	}
	sectionSize := v.GetInt("PLANNER_DEFAULT_SECTION_SIZE")
	if sectionSize <= 0 {
		sectionSize = 30
	}
	cfg.Planner = PlannerConfig{
		Enabled:            v.GetBool("ENABLE_PLANNER"),
		TargetUtilization:  target,
		CacheTTL:           parseDuration(v.GetString("PLANNER_CACHE_TTL"), 15*time.Minute),
		FeasibilityCutoff:  cutoff,
		DefaultSectionSize: sectionSize,
	}

	workers := v.GetInt("NOTIFY_WORKERS")
	if workers <= 0 {
		workers = 2
	}
	cfg.Notifications = NotificationsConfig{
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromEmail:      v.GetString("NOTIFY_FROM_EMAIL"),
		FromName:       v.GetString("NOTIFY_FROM_NAME"),
		Workers:        workers,
	}

	cfg.Sweeps = SweepsConfig{
		Enabled:       v.GetBool("ENABLE_SWEEPS"),
		ExpiredOffers: v.GetString("SWEEP_EXPIRED_OFFERS_CRON"),
		PromoteSeats:  v.GetString("SWEEP_PROMOTE_SEATS_CRON"),
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
	v.SetDefault("DB_NAME", "enrollment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WAITLIST_RESPONSE_WINDOW", "48h")
	v.SetDefault("WAITLIST_AVG_TURNOVER_DAYS", 4)

	v.SetDefault("ENABLE_PLANNER", true)
	v.SetDefault("PLANNER_CACHE_TTL", "15m")
	v.SetDefault("PLANNER_TARGET_UTILIZATION", 0.85)
	v.SetDefault("PLANNER_FEASIBILITY_CUTOFF", 0.6)
	v.SetDefault("PLANNER_DEFAULT_SECTION_SIZE", 30)

	v.SetDefault("NOTIFY_FROM_EMAIL", "registrar@classboard.example")
	v.SetDefault("NOTIFY_FROM_NAME", "Classboard Registrar")
	v.SetDefault("NOTIFY_WORKERS", 2)

	v.SetDefault("ENABLE_SWEEPS", true)
	v.SetDefault("SWEEP_EXPIRED_OFFERS_CRON", "0 */10 * * * *")
	v.SetDefault("SWEEP_PROMOTE_SEATS_CRON", "30 */10 * * * *")
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
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
