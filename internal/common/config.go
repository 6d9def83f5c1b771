package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Registry RegistryConfig
	Tiers    TiersConfig
	LLM      LLMConfig
	Layout   LayoutConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// RegistryConfig holds vendor-registry configuration
type RegistryConfig struct {
	Path string // JSON registry file; seeded with defaults when absent
}

// TiersConfig holds the cascade toggles and per-tier acceptance thresholds.
// Thresholds are independent per tier; the vision tier has no gate.
type TiersConfig struct {
	UsePattern     bool
	UseLayoutModel bool
	UseOCRLLM      bool
	UseVisionLLM   bool

	PatternThreshold float32
	LayoutThreshold  float32
	OCRLLMThreshold  float32
}

// LLMConfig holds text/vision LLM tier configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	VisionModel string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// LayoutConfig holds the layout-model serving endpoint configuration
type LayoutConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "invoices.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Registry: RegistryConfig{
			Path: getEnv("VENDOR_REGISTRY_PATH", "vendor_registry.json"),
		},
		Tiers: TiersConfig{
			UsePattern:       getEnvAsBool("TIER_PATTERN", true),
			UseLayoutModel:   getEnvAsBool("TIER_LAYOUT", true),
			UseOCRLLM:        getEnvAsBool("TIER_OCR_LLM", true),
			UseVisionLLM:     getEnvAsBool("TIER_VISION_LLM", true),
			PatternThreshold: getEnvAsFloat32("PATTERN_CONFIDENCE_THRESHOLD", 0.60),
			LayoutThreshold:  getEnvAsFloat32("LAYOUT_CONFIDENCE_THRESHOLD", 0.50),
			OCRLLMThreshold:  getEnvAsFloat32("OCR_LLM_CONFIDENCE_THRESHOLD", 0.60),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("LLM_VISION_MODEL", "gpt-4o"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Layout: LayoutConfig{
			BaseURL: getEnv("LAYOUT_MODEL_URL", ""),
			Timeout: getEnvAsDuration("LAYOUT_MODEL_TIMEOUT", 30*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Registry.Path == "" {
		return NewAppError("CONFIG_ERROR", "VENDOR_REGISTRY_PATH is required", ErrInvalidInput)
	}
	if (c.Tiers.UseOCRLLM || c.Tiers.UseVisionLLM) && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required when an LLM tier is enabled", ErrInvalidInput)
	}
	return nil
}
