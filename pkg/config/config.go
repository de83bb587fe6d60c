package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/sma-timetable-optimizer/pkg/errors"
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
	Optimizer OptimizerConfig
	Reports   ReportsConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OptimizerConfig tunes the scoring weights and diagnostic thresholds of the
// optimization engine. The five weights must sum to 1.0.
type OptimizerConfig struct {
	TeacherUtilizationWeight float64
	RoomUtilizationWeight    float64
	PreferenceWeight         float64
	ConflictWeight           float64
	CompactnessWeight        float64

	MaxCoursesPerTeacherDay int
	MaxGapMinutes           int
	AnalysisCacheTTL        time.Duration
}

// ReportsConfig governs the async export worker.
type ReportsConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	ResultTTL         time.Duration
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	sum := c.Optimizer.TeacherUtilizationWeight +
		c.Optimizer.RoomUtilizationWeight +
		c.Optimizer.PreferenceWeight +
		c.Optimizer.ConflictWeight +
		c.Optimizer.CompactnessWeight
	if sum < 0.999 || sum > 1.001 {
		return appErrors.ErrInvalidWeights
	}
	return nil
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

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Optimizer = OptimizerConfig{
		TeacherUtilizationWeight: v.GetFloat64("OPTIMIZER_WEIGHT_TEACHER_UTILIZATION"),
		RoomUtilizationWeight:    v.GetFloat64("OPTIMIZER_WEIGHT_ROOM_UTILIZATION"),
		PreferenceWeight:         v.GetFloat64("OPTIMIZER_WEIGHT_PREFERENCE"),
		ConflictWeight:           v.GetFloat64("OPTIMIZER_WEIGHT_CONFLICT"),
		CompactnessWeight:        v.GetFloat64("OPTIMIZER_WEIGHT_COMPACTNESS"),
		MaxCoursesPerTeacherDay:  v.GetInt("OPTIMIZER_MAX_COURSES_PER_TEACHER_DAY"),
		MaxGapMinutes:            v.GetInt("OPTIMIZER_MAX_GAP_MINUTES"),
		AnalysisCacheTTL:         parseDuration(v.GetString("OPTIMIZER_ANALYSIS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
		ResultTTL:         parseDuration(v.GetString("REPORTS_RESULT_TTL"), time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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
	v.SetDefault("DB_NAME", "timetable_optimizer")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OPTIMIZER_WEIGHT_TEACHER_UTILIZATION", 0.25)
	v.SetDefault("OPTIMIZER_WEIGHT_ROOM_UTILIZATION", 0.20)
	v.SetDefault("OPTIMIZER_WEIGHT_PREFERENCE", 0.25)
	v.SetDefault("OPTIMIZER_WEIGHT_CONFLICT", 0.15)
	v.SetDefault("OPTIMIZER_WEIGHT_COMPACTNESS", 0.15)
	v.SetDefault("OPTIMIZER_MAX_COURSES_PER_TEACHER_DAY", 4)
	v.SetDefault("OPTIMIZER_MAX_GAP_MINUTES", 60)
	v.SetDefault("OPTIMIZER_ANALYSIS_CACHE_TTL", "5m")

	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
	v.SetDefault("REPORTS_RESULT_TTL", "1h")
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
