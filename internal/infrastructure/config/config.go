package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	RecipeSource RecipeSourceConfig `mapstructure:"recipe_source"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Detection    DetectionConfig    `mapstructure:"detection"`
	Scorer       ScorerConfig       `mapstructure:"scorer"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	LogLevel     string             `mapstructure:"log_level"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RecipeSourceConfig holds settings for the external recipe source.
type RecipeSourceConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RatingScale float64       `mapstructure:"rating_scale"`
	MaxMissing  int           `mapstructure:"max_missing"`
}

// RedisConfig holds settings for the pantry/preference store.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// DetectionConfig holds detection resolver thresholds.
type DetectionConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	IoUThreshold  float64 `mapstructure:"iou_threshold"`
}

// ScorerConfig holds recipe scoring weights and parameters. The four
// weights must sum to 1.0; a config that does not is rejected at load time,
// never renormalized.
type ScorerConfig struct {
	AvailabilityWeight float64       `mapstructure:"availability_weight"`
	UrgencyWeight      float64       `mapstructure:"urgency_weight"`
	RatingWeight       float64       `mapstructure:"rating_weight"`
	AffinityWeight     float64       `mapstructure:"affinity_weight"`
	UrgencyHorizon     time.Duration `mapstructure:"urgency_horizon"`
}

// RateLimitConfig holds rate limit settings.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// weightTolerance is the allowed deviation when checking that scoring
// weights sum to 1.0.
const weightTolerance = 1e-6

// LoadConfig loads configuration from .env and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("recipe_source.base_url", "RECIPE_SOURCE_BASE_URL")
	viper.BindEnv("recipe_source.api_key", "RECIPE_SOURCE_API_KEY")
	viper.BindEnv("recipe_source.timeout", "RECIPE_SOURCE_TIMEOUT")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.ttl", "CACHE_TTL")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey masks an API key for logging, keeping 4 characters at each end.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	// Application
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "pantry-chef")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Recipe source
	viper.SetDefault("recipe_source.base_url", "https://api.recipes.example.com/v1")
	viper.SetDefault("recipe_source.timeout", "10s")
	viper.SetDefault("recipe_source.rating_scale", 5.0)
	viper.SetDefault("recipe_source.max_missing", 2)

	// Redis store
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Query cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")
	viper.SetDefault("cache.fetch_timeout", "15s")

	// Detection resolver
	viper.SetDefault("detection.min_confidence", 0.7)
	viper.SetDefault("detection.iou_threshold", 0.5)

	// Scorer
	viper.SetDefault("scorer.availability_weight", 0.4)
	viper.SetDefault("scorer.urgency_weight", 0.25)
	viper.SetDefault("scorer.rating_weight", 0.2)
	viper.SetDefault("scorer.affinity_weight", 0.15)
	viper.SetDefault("scorer.urgency_horizon", "168h")

	// Rate limit
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
		if config.Cache.FetchTimeout <= 0 {
			return fmt.Errorf("invalid cache fetch timeout")
		}
	}

	if config.RecipeSource.Timeout <= 0 {
		return fmt.Errorf("recipe source timeout is required")
	}
	if config.RecipeSource.RatingScale <= 0 {
		return fmt.Errorf("invalid recipe source rating scale")
	}
	if config.RecipeSource.MaxMissing < 0 {
		return fmt.Errorf("invalid recipe source max missing")
	}

	if config.Detection.MinConfidence < 0 || config.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection min confidence must be in [0,1]")
	}
	if config.Detection.IoUThreshold < 0 || config.Detection.IoUThreshold > 1 {
		return fmt.Errorf("detection iou threshold must be in [0,1]")
	}

	return validateScorer(&config.Scorer)
}

// validateScorer rejects weight configurations instead of renormalizing
// them. A bad weight set is a deployment mistake and must fail startup.
func validateScorer(sc *ScorerConfig) error {
	weights := []float64{sc.AvailabilityWeight, sc.UrgencyWeight, sc.RatingWeight, sc.AffinityWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("scorer weights must be non-negative, got %v", w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("scorer weights must sum to 1.0, got %v", sum)
	}
	if sc.UrgencyHorizon <= 0 {
		return fmt.Errorf("invalid scorer urgency horizon")
	}
	return nil
}
