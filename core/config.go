package core

import (
	"fmt"
	"os"
	"time"
)

// Dispatch backends recognized by DISPATCH_BACKEND.
const (
	// BackendHTTP dispatches to the local inference service over HTTP.
	BackendHTTP = "http"

	// BackendOpenAI dispatches to the OpenAI images API.
	BackendOpenAI = "openai"
)

// Config holds all configuration values for the gateway.
// Values are environment-sourced; see LoadConfig for defaults.
type Config struct {
	// Inference collaborator
	AIServiceAuthToken string        // Shared secret sent as X-Auth-Token
	AIServiceURL       string        // Base URL of the inference service
	RequestTimeout     time.Duration // Bound on each dispatch call

	// Dispatch backend selection
	DispatchBackend  string // BackendHTTP or BackendOpenAI
	OpenAIAPIKey     string // Required when DispatchBackend is openai
	OpenAIImageModel string // Image model name (default: dall-e-3)

	// HTTP surface
	Host string
	Port int

	// Generation parameter defaults (applied when the client omits a field)
	DefaultWidth  int
	DefaultHeight int
	DefaultSteps  int
	DefaultSeed   *int64 // nil means random seed per job

	// Admission control
	UserRateLimit     int           // Admissions per user per window
	GlobalRateLimit   int           // Admissions across all users per window
	RateLimitWindow   time.Duration // Rate window size
	MaxConcurrentJobs int           // Per-user in-flight job cap

	// Lifecycle
	JobRetention time.Duration // Terminal job retention before expiry sweep
	SweepEvery   time.Duration // Expiry sweep interval
	SessionTTL   time.Duration // Session inactivity expiry

	// Storage
	OutputDir          string // Artifact root directory
	CleanOutputOnStart bool   // Purge OutputDir at boot
	DBPath             string // SQLite generation-history database

	// Logging
	LogFile string
	DevMode bool
}

// ConfigError represents a configuration error with an actionable instruction.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingConfig = "MISSING_CONFIG"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
)

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidConfig returns an error for a recognized but invalid value.
func ErrInvalidConfig(varName, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("Invalid %s: %s", varName, reason),
		Action:  fmt.Sprintf("Correct %s in your .env file", varName),
	}
}

// LoadConfig builds a Config from environment variables, applying defaults
// for everything optional. The caller is expected to have loaded a .env file
// (godotenv) beforehand.
//
// AI_SERVICE_AUTH_TOKEN is always required: the HTTP backend sends it to the
// inference service, and the artifact/status endpoints of the collaborator
// expect it as well. OPENAI_API_KEY is additionally required when
// DISPATCH_BACKEND is "openai".
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AIServiceAuthToken: os.Getenv("AI_SERVICE_AUTH_TOKEN"),
		AIServiceURL:       GetEnvOrDefault("AI_SERVICE_URL", "http://localhost:5001"),
		RequestTimeout:     ParseDurationEnv("REQUEST_TIMEOUT_SECONDS", 60),

		DispatchBackend:  GetEnvOrDefault("DISPATCH_BACKEND", BackendHTTP),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIImageModel: GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),

		Host: GetEnvOrDefault("HOST", "0.0.0.0"),
		Port: ParseIntEnv("PORT", 5000),

		DefaultWidth:  ParseIntEnv("DEFAULT_WIDTH", 512),
		DefaultHeight: ParseIntEnv("DEFAULT_HEIGHT", 512),
		DefaultSteps:  ParseIntEnv("DEFAULT_NUM_INFERENCE_STEPS", 50),

		UserRateLimit:     ParseIntEnv("USER_RATE_LIMIT", 3),
		GlobalRateLimit:   ParseIntEnv("GLOBAL_RATE_LIMIT", 10),
		RateLimitWindow:   ParseDurationEnv("RATE_LIMIT_WINDOW_SECONDS", 60),
		MaxConcurrentJobs: ParseIntEnv("MAX_CONCURRENT_JOBS", 2),

		JobRetention: ParseDurationEnv("JOB_RETENTION_SECONDS", 600),
		SweepEvery:   ParseDurationEnv("SWEEP_INTERVAL_SECONDS", 30),
		SessionTTL:   ParseDurationEnv("SESSION_TTL_SECONDS", 86400),

		OutputDir:          GetEnvOrDefault("OUTPUT_DIR", "output"),
		CleanOutputOnStart: ParseBoolEnv("CLEAN_OUTPUT_ON_START", false),
		DBPath:             GetEnvOrDefault("DB_PATH", "data/gateway.db"),

		LogFile: GetEnvOrDefault("LOG_FILE", "gateway.log"),
		DevMode: ParseBoolEnv("DEV_MODE", false),
	}

	// DEFAULT_SEED is optional; unset means a random seed per job.
	if raw := os.Getenv("DEFAULT_SEED"); raw != "" {
		seed := ParseInt64Env("DEFAULT_SEED", -1)
		if seed < 0 || seed > MaxSeed {
			return nil, ErrInvalidConfig("DEFAULT_SEED", fmt.Sprintf("must be an integer between 0 and %d", MaxSeed))
		}
		cfg.DefaultSeed = &seed
	}

	if cfg.AIServiceAuthToken == "" {
		return nil, ErrMissingConfig("AI_SERVICE_AUTH_TOKEN")
	}

	switch cfg.DispatchBackend {
	case BackendHTTP:
		// AI_SERVICE_URL has a usable default.
	case BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrMissingConfig("OPENAI_API_KEY")
		}
	default:
		return nil, ErrInvalidConfig("DISPATCH_BACKEND", fmt.Sprintf("unknown backend %q (valid: %s, %s)", cfg.DispatchBackend, BackendHTTP, BackendOpenAI))
	}

	if cfg.UserRateLimit <= 0 || cfg.GlobalRateLimit <= 0 {
		return nil, ErrInvalidConfig("USER_RATE_LIMIT/GLOBAL_RATE_LIMIT", "rate limits must be positive")
	}
	if cfg.MaxConcurrentJobs <= 0 {
		return nil, ErrInvalidConfig("MAX_CONCURRENT_JOBS", "concurrency cap must be positive")
	}

	return cfg, nil
}

// Defaults returns the generation parameter defaults from the config.
func (c *Config) Defaults() ParamDefaults {
	return ParamDefaults{
		Width:  c.DefaultWidth,
		Height: c.DefaultHeight,
		Steps:  c.DefaultSteps,
		Seed:   c.DefaultSeed,
	}
}
