package core

import (
	"errors"
	"testing"
	"time"
)

// TestLoadConfig_Defaults tests that defaults apply when only the token is set.
func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AI_SERVICE_AUTH_TOKEN", "test-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if cfg.AIServiceURL != "http://localhost:5001" {
		t.Errorf("AIServiceURL = %q", cfg.AIServiceURL)
	}
	if cfg.UserRateLimit != 3 || cfg.GlobalRateLimit != 10 || cfg.MaxConcurrentJobs != 2 {
		t.Errorf("admission defaults wrong: %d/%d/%d", cfg.UserRateLimit, cfg.GlobalRateLimit, cfg.MaxConcurrentJobs)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want 1m", cfg.RateLimitWindow)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v, want 60s", cfg.RequestTimeout)
	}
	if cfg.DefaultWidth != 512 || cfg.DefaultHeight != 512 || cfg.DefaultSteps != 50 {
		t.Errorf("parameter defaults wrong: %d/%d/%d", cfg.DefaultWidth, cfg.DefaultHeight, cfg.DefaultSteps)
	}
	if cfg.DefaultSeed != nil {
		t.Errorf("DefaultSeed = %v, want nil", cfg.DefaultSeed)
	}
	if cfg.DispatchBackend != BackendHTTP {
		t.Errorf("DispatchBackend = %q, want http", cfg.DispatchBackend)
	}
}

// TestLoadConfig_MissingToken tests the required auth token check.
func TestLoadConfig_MissingToken(t *testing.T) {
	t.Setenv("AI_SERVICE_AUTH_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want missing-config error")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
	if ce.Code != ErrCodeMissingConfig {
		t.Errorf("code = %q, want %q", ce.Code, ErrCodeMissingConfig)
	}
}

// TestLoadConfig_OpenAIBackendRequiresKey tests backend-specific requirements.
func TestLoadConfig_OpenAIBackendRequiresKey(t *testing.T) {
	t.Setenv("AI_SERVICE_AUTH_TOKEN", "test-token")
	t.Setenv("DISPATCH_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() error = nil, want missing OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if cfg.DispatchBackend != BackendOpenAI {
		t.Errorf("DispatchBackend = %q, want openai", cfg.DispatchBackend)
	}
}

// TestLoadConfig_UnknownBackend tests rejection of unrecognized backends.
func TestLoadConfig_UnknownBackend(t *testing.T) {
	t.Setenv("AI_SERVICE_AUTH_TOKEN", "test-token")
	t.Setenv("DISPATCH_BACKEND", "grpc")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() error = nil, want invalid-config error")
	}
}

// TestLoadConfig_DefaultSeed tests optional seed parsing and bounds.
func TestLoadConfig_DefaultSeed(t *testing.T) {
	t.Setenv("AI_SERVICE_AUTH_TOKEN", "test-token")
	t.Setenv("DEFAULT_SEED", "42")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DefaultSeed == nil || *cfg.DefaultSeed != 42 {
		t.Errorf("DefaultSeed = %v, want 42", cfg.DefaultSeed)
	}

	t.Setenv("DEFAULT_SEED", "-5")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() error = nil, want out-of-range seed error")
	}
}

// TestConfig_Defaults tests the ParamDefaults projection.
func TestConfig_Defaults(t *testing.T) {
	seed := int64(9)
	cfg := &Config{DefaultWidth: 128, DefaultHeight: 256, DefaultSteps: 10, DefaultSeed: &seed}
	d := cfg.Defaults()
	if d.Width != 128 || d.Height != 256 || d.Steps != 10 || d.Seed == nil || *d.Seed != 9 {
		t.Errorf("Defaults() = %+v", d)
	}
}
