// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for the reminder tool
type ProductionConfig struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Batch     BatchConfig     `json:"batch"`
	Server    ServerConfig    `json:"server"`
	JWT       JWTConfig       `json:"jwt"`
	Operators OperatorsConfig `json:"operators"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// GatewayConfig describes the outbound SMS gateway
type GatewayConfig struct {
	Mode     string        `json:"mode"` // http, mock
	BaseURL  string        `json:"base_url"`
	Key      string        `json:"-"`
	Callback string        `json:"callback"`
	Format   string        `json:"format"`
	Timeout  time.Duration `json:"timeout"`
}

// IsMock reports whether sends go to the in-memory mock gateway
func (g GatewayConfig) IsMock() bool {
	return g.Mode == "mock"
}

type BatchConfig struct {
	Concurrency int `json:"concurrency"`
	MaxRows     int `json:"max_rows"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

type JWTConfig struct {
	SecretKey      string        `json:"-"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

// OperatorsConfig is the login credential store in clear text, as supplied by the environment.
// It is hashed once at startup and never kept around afterwards.
type OperatorsConfig struct {
	Credentials map[string]string `json:"-"`
	BcryptCost  int               `json:"bcrypt_cost"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig reads the environment (and .env) without validating, so callers can
// adjust settings such as the gateway mode before calling ValidateProductionConfig
func LoadConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Gateway: GatewayConfig{
			Mode:     getEnvString("GATEWAY_MODE", "http"),
			BaseURL:  getEnvString("GATEWAY_BASE_URL", "https://seeme.hu"),
			Key:      getEnvString("GATEWAY_KEY", getEnvString("CURL_KEY", "")),
			Callback: getEnvString("GATEWAY_CALLBACK", "4,6,7"),
			Format:   getEnvString("GATEWAY_FORMAT", "json"),
			Timeout:  getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		Batch: BatchConfig{
			Concurrency: getEnvInt("BATCH_CONCURRENCY", 1),
			MaxRows:     getEnvInt("BATCH_MAX_ROWS", 5000),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 8*1024*1024), // 8MB
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 10*time.Minute),
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", nil),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 8*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "okosplazma-sms"),
			Audience:       getEnvString("JWT_AUDIENCE", "okosplazma-sms-operators"),
		},
		Operators: OperatorsConfig{
			Credentials: loadOperatorCredentials(),
			BcryptCost:  getEnvInt("BCRYPT_COST", 12),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "data/okosplazma-sms.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists.
// Variables already present in the process environment win.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// loadOperatorCredentials reads OPERATOR_CREDENTIALS=user:pass,user:pass and the
// legacy USER1/PASSWORD1, USER2/PASSWORD2 pairs
func loadOperatorCredentials() map[string]string {
	creds := make(map[string]string)
	for _, pair := range getEnvStringSlice("OPERATOR_CREDENTIALS", nil) {
		user, pass, ok := strings.Cut(pair, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" || pass == "" {
			continue
		}
		creds[user] = pass
	}
	for i := 1; i <= 2; i++ {
		user := getEnvString(fmt.Sprintf("USER%d", i), "")
		pass := getEnvString(fmt.Sprintf("PASSWORD%d", i), "")
		if user != "" && pass != "" {
			creds[user] = pass
		}
	}
	return creds
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the configuration and reports every problem at once
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Gateway
	switch cfg.Gateway.Mode {
	case "http":
		if cfg.Gateway.Key == "" {
			errors = append(errors, "GATEWAY_KEY (or CURL_KEY) is required")
		}
		if cfg.Gateway.BaseURL == "" {
			errors = append(errors, "GATEWAY_BASE_URL is required")
		}
	case "mock":
	default:
		errors = append(errors, "GATEWAY_MODE must be one of: [http mock]")
	}
	if cfg.Gateway.Timeout <= 0 {
		errors = append(errors, "GATEWAY_TIMEOUT must be positive")
	}

	// Batch
	if cfg.Batch.Concurrency < 1 || cfg.Batch.Concurrency > 32 {
		errors = append(errors, "BATCH_CONCURRENCY must be between 1 and 32")
	}
	if cfg.Batch.MaxRows <= 0 {
		errors = append(errors, "BATCH_MAX_ROWS must be positive")
	}

	// Server
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	// Logging
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: [stdout file both]")
	}

	if cfg.Operators.BcryptCost < 4 || cfg.Operators.BcryptCost > 14 {
		errors = append(errors, "BCRYPT_COST must be between 4 and 14")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// ValidateServerConfig checks the settings only the HTTP server needs
func ValidateServerConfig(cfg *ProductionConfig) error {
	var errors []string
	if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if len(cfg.Operators.Credentials) == 0 {
		errors = append(errors, "OPERATOR_CREDENTIALS (or USER1/PASSWORD1) is required")
	}
	if len(errors) > 0 {
		return fmt.Errorf("server configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
