package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LLM provider names accepted by LLM_PROVIDER.
const (
	ProviderAuto        = "auto"
	ProviderNone        = "none"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	QueryTimeout    time.Duration

	// Profile store.
	ProfileFixture    string
	SyntheticProfiles int
	SyntheticLevels   int
	SyntheticSeed     int64
	DepthTolerance    float64

	// LLM augmentation.
	LLMProvider       string
	LLMTimeout        time.Duration
	LLMRateLimit      float64
	LLMRateBurst      int
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	GeminiModel       string
	HuggingFaceAPIKey string
	HuggingFaceModel  string
	HuggingFaceURL    string

	// Session history.
	DatabaseURL         string
	HistoryRetention    time.Duration
	HistoryLimit        int
	HistoryTimeout      time.Duration
	HistoryKafkaEnabled bool
	KafkaBrokers        []string
	KafkaHistoryTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	OTelTracesStdout bool
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; it never
// overrides variables already set in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	queryTimeout, err := parsePositiveDuration("QUERY_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parsePositiveDuration("LLM_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}
	retention, err := parsePositiveDuration("HISTORY_RETENTION", "720h")
	if err != nil {
		return nil, err
	}
	historyTimeout, err := parsePositiveDuration("HISTORY_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}

	llmRate, err := parseNonNegativeFloat("LLM_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	llmBurst, err := parseIntInRange("LLM_RATE_BURST", 10, 1, 10000)
	if err != nil {
		return nil, err
	}

	profiles, err := parseIntInRange("SYNTHETIC_PROFILES", 50, 1, 100000)
	if err != nil {
		return nil, err
	}
	levels, err := parseIntInRange("SYNTHETIC_LEVELS", 100, 2, 10000)
	if err != nil {
		return nil, err
	}
	seed, err := parseSeed()
	if err != nil {
		return nil, err
	}
	tolerance, err := parsePositiveFloat("DEPTH_TOLERANCE", 25)
	if err != nil {
		return nil, err
	}
	historyLimit, err := parseIntInRange("HISTORY_LIMIT", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	historyKafka, err := parseBool("HISTORY_KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}
	tracesStdout, err := parseBool("OTEL_TRACES_STDOUT", false)
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		QueryTimeout:    queryTimeout,

		ProfileFixture:    os.Getenv("PROFILE_FIXTURE"),
		SyntheticProfiles: profiles,
		SyntheticLevels:   levels,
		SyntheticSeed:     seed,
		DepthTolerance:    tolerance,

		LLMProvider:       envOrDefault("LLM_PROVIDER", ProviderAuto),
		LLMTimeout:        llmTimeout,
		LLMRateLimit:      llmRate,
		LLMRateBurst:      llmBurst,
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		HuggingFaceAPIKey: os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceModel:  envOrDefault("HUGGINGFACE_MODEL", "mistralai/Mistral-7B-Instruct-v0.2"),
		HuggingFaceURL:    envOrDefault("HUGGINGFACE_URL", "https://api-inference.huggingface.co/models"),

		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HistoryRetention:    retention,
		HistoryLimit:        historyLimit,
		HistoryTimeout:      historyTimeout,
		HistoryKafkaEnabled: historyKafka,
		KafkaBrokers:        parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaHistoryTopic:   envOrDefault("KAFKA_HISTORY_TOPIC", "float-query-history"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,

		OTelTracesStdout: tracesStdout,
	}

	switch cfg.LLMProvider {
	case ProviderAuto, ProviderNone:
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("LLM_PROVIDER is openai but OPENAI_API_KEY is not set")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("LLM_PROVIDER is gemini but GEMINI_API_KEY is not set")
		}
	case ProviderHuggingFace:
		if cfg.HuggingFaceAPIKey == "" {
			return nil, errors.New("LLM_PROVIDER is huggingface but HUGGINGFACE_API_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if cfg.HistoryKafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when HISTORY_KAFKA_ENABLED is true")
		}
		if cfg.KafkaHistoryTopic == "" {
			return nil, errors.New("KAFKA_HISTORY_TOPIC is required when HISTORY_KAFKA_ENABLED is true")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// AugmentProvider resolves LLM_PROVIDER to a concrete provider. "auto" picks
// the first provider with a credential, in the order OpenAI, Gemini, HuggingFace.
func (c *Config) AugmentProvider() string {
	if c.LLMProvider != ProviderAuto {
		return c.LLMProvider
	}
	switch {
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.GeminiAPIKey != "":
		return ProviderGemini
	case c.HuggingFaceAPIKey != "":
		return ProviderHuggingFace
	default:
		return ProviderNone
	}
}

func parseSeed() (int64, error) {
	raw := os.Getenv("SYNTHETIC_SEED")
	if raw == "" {
		return 42, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SYNTHETIC_SEED %q: %w", raw, err)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
