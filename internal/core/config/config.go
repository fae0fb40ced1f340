package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type WeatherCfg struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxRetries  int
}

type Config struct {
	Addr     string
	LogLevel string

	RedisAddr      string
	MemCacheSize   int
	CacheTTL       time.Duration
	CacheOpTimeout time.Duration

	ModelPath    string
	ModelVersion string
	MaxBatch     int

	Invalidation InvalidationCfg

	Weather      WeatherCfg
	PostgresDSN  string
	ETLLocations string
	ETLSchedule  string
	H3Res        int
}

func FromEnv() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Addr:     getenv("ADDR", ":8085"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		RedisAddr:      getenv("REDIS_ADDR", ""),
		MemCacheSize:   getint("MEM_CACHE_SIZE", 4096),
		CacheTTL:       getduration("CACHE_TTL", time.Hour),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		ModelPath:    getenv("MODEL_PATH", "models/fire_risk_composite_v1.json"),
		ModelVersion: getenv("MODEL_VERSION", "v1.0"),
		MaxBatch:     getint("MAX_BATCH", 100),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "model-rollout"),
			GroupID: getenv("KAFKA_GROUP_ID", "prediction-cache-invalidator"),
		},

		Weather: WeatherCfg{
			APIKey:      getenv("WEATHER_API_KEY", ""),
			BaseURL:     getenv("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			Timeout:     getduration("WEATHER_TIMEOUT", 10*time.Second),
			MinInterval: getduration("WEATHER_MIN_INTERVAL", time.Second),
			MaxRetries:  getint("WEATHER_MAX_RETRIES", 2),
		},
		PostgresDSN:  getenv("PG_DSN", "postgres://localhost:5432/emberalert"),
		ETLLocations: getenv("ETL_LOCATIONS", ""),
		ETLSchedule:  getenv("ETL_SCHEDULE", "*/15 * * * *"),
		H3Res:        getint("H3_RES", 7),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
