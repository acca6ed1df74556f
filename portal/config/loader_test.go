package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/config"
	"github.com/zeebo/assert"
)

type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return []byte(s), nil
}

func TestLoadPortalConfig(t *testing.T) {
	t.Setenv(config.EnvRedisPassword, "")

	cfg, err := config.NewDefaultPortalConfigLoader().LoadPortalConfig("testdata/portal.toml")
	assert.NoError(t, err)
	assert.Equal(t, cfg.GatewayURL, "http://localhost:8080")
	assert.Equal(t, cfg.Origin, "http://localhost:3000")
	assert.Equal(t, cfg.ParsedNetwork(), models.Testnet)
	assert.Equal(t, cfg.Storage.Backend, config.StorageMemory)
	assert.Equal(t, cfg.RequestTimeout(), 30*time.Second)
	assert.Equal(t, cfg.Cache.MaxAge(), 10*time.Minute)
	assert.Equal(t, cfg.Cache.SweepInterval(), 5*time.Minute)

	assert.Equal(t, len(cfg.FallbackPools), 1)
	pool := cfg.FallbackPools[0]
	assert.Equal(t, pool.TokenB, "CUSDC")
	assert.Equal(t, pool.ReserveA, "100000000000")
}

func TestLoadPortalConfigDefaults(t *testing.T) {
	t.Setenv(config.EnvRedisPassword, "")
	loader := config.NewPortalConfigLoader(mapReader{
		"portal.toml": `gateway_url = "https://gateway.example"`,
	})

	cfg, err := loader.LoadPortalConfig("portal.toml")
	assert.NoError(t, err)
	assert.Equal(t, cfg.ParsedNetwork(), models.Mainnet)
	assert.Equal(t, cfg.Storage.Backend, config.StorageFile)
	assert.Equal(t, cfg.Storage.Dir, ".portal")
	assert.Equal(t, cfg.Storage.RedisPrefix, "portal")
}

func TestLoadPortalConfigRedisPasswordFromEnv(t *testing.T) {
	t.Setenv(config.EnvRedisPassword, "secret")
	loader := config.NewPortalConfigLoader(mapReader{
		"portal.toml": `
gateway_url = "https://gateway.example"

[storage]
backend = "redis"
redis_url = "redis://localhost:6379/0"
redis_password = "from-file"
`,
	})

	cfg, err := loader.LoadPortalConfig("portal.toml")
	assert.NoError(t, err)
	assert.Equal(t, cfg.Storage.RedisPassword, "secret")
}

func TestLoadPortalConfigErrors(t *testing.T) {
	t.Setenv(config.EnvRedisPassword, "")
	loader := config.NewPortalConfigLoader(mapReader{
		"no_gateway.toml":  `network = "mainnet"`,
		"bad_gateway.toml": `gateway_url = "localhost:8080"`,
		"bad_network.toml": "gateway_url = \"http://localhost\"\nnetwork = \"futurenet\"",
		"bad_backend.toml": "gateway_url = \"http://localhost\"\n[storage]\nbackend = \"s3\"",
		"bad_pool.toml":    "gateway_url = \"http://localhost\"\n[[fallback_pools]]\ntoken_a = \"CA\"\ntoken_b = \"CB\"\nreserve_a = \"1.5\"",
		"broken.toml":      `gateway_url = `,
	})

	tests := []string{
		"no_gateway.toml",
		"bad_gateway.toml",
		"bad_network.toml",
		"bad_backend.toml",
		"bad_pool.toml",
		"broken.toml",
		"missing.toml",
		"portal.yaml",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := loader.LoadPortalConfig(path)
			assert.Error(t, err)
		})
	}

	_, err := config.NewDefaultPortalConfigLoader().LoadPortalConfig("testdata/bad_storage.toml")
	assert.Error(t, err)
}
