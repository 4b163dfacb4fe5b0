package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GATEWAY_MODE", "GATEWAY_KEY", "CURL_KEY", "GATEWAY_BASE_URL", "GATEWAY_TIMEOUT",
		"BATCH_CONCURRENCY", "OPERATOR_CREDENTIALS", "USER1", "PASSWORD1", "USER2", "PASSWORD2",
		"LOG_LEVEL", "LOG_OUTPUT", "JWT_SECRET_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadProductionConfig_MissingKeyFailsFast(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := LoadProductionConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "GATEWAY_KEY")
}

func TestLoadProductionConfig_LegacyCurlKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CURL_KEY", "legacy-key")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.Gateway.Key)
	assert.Equal(t, "https://seeme.hu", cfg.Gateway.BaseURL)
	assert.Equal(t, "4,6,7", cfg.Gateway.Callback)
	assert.Equal(t, "json", cfg.Gateway.Format)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
}

func TestLoadProductionConfig_MockModeNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GATEWAY_MODE", "mock")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Gateway.IsMock())
}

func TestLoadProductionConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	content := "GATEWAY_KEY=from-dotenv\nUSER1=anna\nPASSWORD1=secret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	// godotenv never overrides variables that are already set, so unset the cleared ones
	for _, key := range []string{"GATEWAY_KEY", "USER1", "PASSWORD1"} {
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range []string{"GATEWAY_KEY", "USER1", "PASSWORD1"} {
			_ = os.Unsetenv(key)
		}
	})

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Gateway.Key)
	assert.Equal(t, map[string]string{"anna": "secret"}, cfg.Operators.Credentials)
}

func TestLoadOperatorCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPERATOR_CREDENTIALS", "anna:pw1, bela:pw:with:colons ,broken,:nouser")
	t.Setenv("USER2", "cili")
	t.Setenv("PASSWORD2", "pw3")

	creds := loadOperatorCredentials()
	assert.Equal(t, map[string]string{
		"anna": "pw1",
		"bela": "pw:with:colons",
		"cili": "pw3",
	}, creds)
}

func TestValidateProductionConfig(t *testing.T) {
	valid := func() *ProductionConfig {
		return &ProductionConfig{
			Gateway:   GatewayConfig{Mode: "http", BaseURL: "https://seeme.hu", Key: "k", Timeout: time.Second},
			Batch:     BatchConfig{Concurrency: 1, MaxRows: 10},
			Server:    ServerConfig{Port: 8080},
			Operators: OperatorsConfig{BcryptCost: 10},
			Logging:   LoggingConfig{Level: "info", Output: "stdout"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *ProductionConfig)
		expectError string
	}{
		{name: "valid", mutate: func(c *ProductionConfig) {}},
		{name: "unknown mode", mutate: func(c *ProductionConfig) { c.Gateway.Mode = "curl" }, expectError: "GATEWAY_MODE"},
		{name: "zero timeout", mutate: func(c *ProductionConfig) { c.Gateway.Timeout = 0 }, expectError: "GATEWAY_TIMEOUT"},
		{name: "concurrency too high", mutate: func(c *ProductionConfig) { c.Batch.Concurrency = 100 }, expectError: "BATCH_CONCURRENCY"},
		{name: "bad log level", mutate: func(c *ProductionConfig) { c.Logging.Level = "trace" }, expectError: "LOG_LEVEL"},
		{name: "bad log output", mutate: func(c *ProductionConfig) { c.Logging.Output = "syslog" }, expectError: "LOG_OUTPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestValidateServerConfig(t *testing.T) {
	cfg := &ProductionConfig{
		JWT:       JWTConfig{SecretKey: "short", AccessTokenTTL: time.Hour},
		Operators: OperatorsConfig{},
	}
	err := ValidateServerConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	assert.Contains(t, err.Error(), "OPERATOR_CREDENTIALS")

	cfg.JWT.SecretKey = "test-secret-key-for-jwt-signing-32-chars"
	cfg.Operators.Credentials = map[string]string{"anna": "pw"}
	assert.NoError(t, ValidateServerConfig(cfg))
}
