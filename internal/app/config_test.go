package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:         defaultAddr,
		DatabaseURL:  "postgres://shop@localhost/shop",
		APIKeyPepper: "pepper",
		Storage:      StorageConfig{TxTimeout: 10 * time.Second},
		RateLimit:    RateLimitConfig{RPS: 20, Burst: 40},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	env := map[string]string{"DATABASE_URL": "postgres://platform/db", "PORT": "9090"}
	getenv := func(k string) string { return env[k] }

	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.applyPlatformDefaults(getenv)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = validConfig()
	cfg.Addr = "127.0.0.1:7000"
	cfg.applyPlatformDefaults(getenv)
	assert.Equal(t, "postgres://shop@localhost/shop", cfg.DatabaseURL, "explicit URL wins")
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "explicit address wins")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "OK", mutate: func(*Config) {}},
		{name: "NoDatabase", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL"},
		{name: "NoPepper", mutate: func(c *Config) { c.APIKeyPepper = "" }, wantErr: "pepper"},
		{name: "NoTxTimeout", mutate: func(c *Config) { c.Storage.TxTimeout = 0 }, wantErr: "tx timeout"},
		{name: "NoRate", mutate: func(c *Config) { c.RateLimit.RPS = 0 }, wantErr: "rps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
