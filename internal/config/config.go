// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"adaptivequiz/internal/models"
	contextutils "adaptivequiz/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Quiz engine tunables
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port        string   `json:"port" yaml:"port"`
	Debug       bool     `json:"debug" yaml:"debug"`
	LogLevel    string   `json:"log_level" yaml:"log_level"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// EngineConfig represents quiz engine tunables. Zero values fall back to the
// defaults in constants.go via the accessor methods.
type EngineConfig struct {
	QuestionCount    int           `json:"question_count" yaml:"question_count"`
	MinimumPoolSize  int           `json:"minimum_pool_size" yaml:"minimum_pool_size"`
	FreshnessHorizon time.Duration `json:"freshness_horizon" yaml:"freshness_horizon"`
	// Defaults stamped into a generated quiz's adaptive config.
	TargetCorrectAnswers int    `json:"target_correct_answers" yaml:"target_correct_answers"`
	ProgressionStrategy  string `json:"progression_strategy" yaml:"progression_strategy"`
	StartingDifficulty   int    `json:"starting_difficulty" yaml:"starting_difficulty"`
}

// QuestionCountOrDefault returns the configured quiz size or the default of 20
func (e *EngineConfig) QuestionCountOrDefault() int {
	if e.QuestionCount > 0 {
		return e.QuestionCount
	}
	return DefaultQuizQuestionCount
}

// MinimumPoolSizeOrDefault returns the configured minimum pool size or the default of 40
func (e *EngineConfig) MinimumPoolSizeOrDefault() int {
	if e.MinimumPoolSize > 0 {
		return e.MinimumPoolSize
	}
	return DefaultMinimumPoolSize
}

// FreshnessHorizonOrDefault returns the configured freshness horizon or the one-year default
func (e *EngineConfig) FreshnessHorizonOrDefault() time.Duration {
	if e.FreshnessHorizon > 0 {
		return e.FreshnessHorizon
	}
	return DefaultFreshnessHorizon
}

// TargetCorrectAnswersOrDefault returns the configured completion target or the default
func (e *EngineConfig) TargetCorrectAnswersOrDefault() int {
	if e.TargetCorrectAnswers > 0 {
		return e.TargetCorrectAnswers
	}
	return DefaultTargetCorrectAnswers
}

// ProgressionStrategyOrDefault returns the configured strategy name or the default
func (e *EngineConfig) ProgressionStrategyOrDefault() string {
	if e.ProgressionStrategy != "" {
		return e.ProgressionStrategy
	}
	return DefaultProgressionStrategy
}

// StartingDifficultyOrDefault returns the configured starting difficulty or the default
func (e *EngineConfig) StartingDifficultyOrDefault() int {
	if e.StartingDifficulty >= MinDifficulty && e.StartingDifficulty <= MaxDifficulty {
		return e.StartingDifficulty
	}
	return DefaultStartingDifficulty
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "adaptivequiz-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Use the auto-instrumentation SDK tracer provider
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate rejects values that would otherwise change engine behavior
// silently once stamped into generated quizzes.
func (c *Config) validate() error {
	switch c.Engine.ProgressionStrategy {
	case "", models.StrategyImmediate, models.StrategyGradual, models.StrategyMLBased:
	default:
		return contextutils.WrapErrorf(contextutils.ErrValidationFailed,
			"unknown progression strategy %q (must be %s, %s or %s)",
			c.Engine.ProgressionStrategy, models.StrategyImmediate, models.StrategyGradual, models.StrategyMLBased)
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.Split(yamlTag, ",")[0]

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Durations accept Go duration syntax (e.g. "8760h")
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
					continue
				}
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("QUIZ_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml
	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
