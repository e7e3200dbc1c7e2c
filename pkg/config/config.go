package config

import (
	"errors"
	"io/fs"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
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

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes the class timetable planner.
type TimetableConfig struct {
	MaxPeriodsPerDay     int
	MaxSameSubjectPerDay int
	CacheEnabled         bool
	CatalogCacheTTL      time.Duration
	CacheBreakerFailures uint32
	CacheBreakerTimeout  time.Duration
	ExportTitlePrefix    string
	AllowedPlannerRoles  []string
	AllowedSetupRoles    []string
}

// MaxWeeklyPeriods is the largest weekly quota a subject may be given.
func (c TimetableConfig) MaxWeeklyPeriods() int {
	return c.MaxPeriodsPerDay * 7
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxPeriods := v.GetInt("TIMETABLE_MAX_PERIODS_PER_DAY")
	if maxPeriods <= 0 {
		maxPeriods = 10
	}
	maxSame := v.GetInt("TIMETABLE_MAX_SAME_SUBJECT_PER_DAY")
	if maxSame <= 0 {
		maxSame = 1
	}
	failures := v.GetInt("TIMETABLE_CACHE_BREAKER_FAILURES")
	if failures <= 0 {
		failures = 5
	}
	cfg.Timetable = TimetableConfig{
		MaxPeriodsPerDay:     maxPeriods,
		MaxSameSubjectPerDay: maxSame,
		CacheEnabled:         v.GetBool("TIMETABLE_CACHE_ENABLED"),
		CatalogCacheTTL:      parseDuration(v.GetString("TIMETABLE_CATALOG_CACHE_TTL"), 10*time.Minute),
		CacheBreakerFailures: uint32(failures),
		CacheBreakerTimeout:  parseDuration(v.GetString("TIMETABLE_CACHE_BREAKER_TIMEOUT"), 30*time.Second),
		ExportTitlePrefix:    v.GetString("TIMETABLE_EXPORT_TITLE_PREFIX"),
		AllowedPlannerRoles:  splitAndTrim(v.GetString("TIMETABLE_PLANNER_ROLES")),
		AllowedSetupRoles:    splitAndTrim(v.GetString("TIMETABLE_SETUP_ROLES")),
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
	v.SetDefault("DB_NAME", "school")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "school-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_MAX_PERIODS_PER_DAY", 10)
	v.SetDefault("TIMETABLE_MAX_SAME_SUBJECT_PER_DAY", 1)
	v.SetDefault("TIMETABLE_CACHE_ENABLED", false)
	v.SetDefault("TIMETABLE_CATALOG_CACHE_TTL", "10m")
	v.SetDefault("TIMETABLE_CACHE_BREAKER_FAILURES", 5)
	v.SetDefault("TIMETABLE_CACHE_BREAKER_TIMEOUT", "30s")
	v.SetDefault("TIMETABLE_EXPORT_TITLE_PREFIX", "Timetable")
	v.SetDefault("TIMETABLE_PLANNER_ROLES", "SUPERADMIN,ADMIN,DIRECTOR,TIMETABLE_OFFICER")
	v.SetDefault("TIMETABLE_SETUP_ROLES", "SUPERADMIN,ADMIN,DIRECTOR,TIMETABLE_OFFICER")
}

// isMissingFile treats an absent .env as "use environment and defaults".
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
