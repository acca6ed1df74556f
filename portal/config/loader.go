package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvRedisPassword overrides storage.redis_password
const EnvRedisPassword = "PORTAL_REDIS_PASSWORD"

// FileReader defines the interface for reading files
type FileReader interface {
	// ReadFile reads the file at the given path and returns the contents
	ReadFile(path string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os.ReadFile
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// PortalConfigLoader wraps a FileReader to provide dependency injection for config loading functions
type PortalConfigLoader struct {
	fileReader FileReader
}

// NewPortalConfigLoader creates a new loader with the given FileReader
func NewPortalConfigLoader(fileReader FileReader) *PortalConfigLoader {
	return &PortalConfigLoader{fileReader: fileReader}
}

// NewDefaultPortalConfigLoader creates a loader with the default file reader
func NewDefaultPortalConfigLoader() *PortalConfigLoader {
	return NewPortalConfigLoader(&DefaultFileReader{})
}

// LoadPortalConfig loads the portal config from the given path
func (cl *PortalConfigLoader) LoadPortalConfig(configPath string) (*PortalConfig, error) {
	// read the config file
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}
	body, err := cl.fileReader.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// unmarshal the config
	var config PortalConfig
	if err := toml.Unmarshal(body, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// a missing .env is fine, the variable may come from the environment
	_ = godotenv.Load()
	if pw := os.Getenv(EnvRedisPassword); pw != "" {
		config.Storage.RedisPassword = pw
	}

	applyDefaults(&config)
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func applyDefaults(config *PortalConfig) {
	if config.Network == "" {
		config.Network = string(models.Mainnet)
	}
	if config.RequestTimeoutSeconds <= 0 {
		config.RequestTimeoutSeconds = 30
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = StorageFile
	}
	if config.Storage.Dir == "" {
		config.Storage.Dir = ".portal"
	}
	if config.Storage.RedisPrefix == "" {
		config.Storage.RedisPrefix = "portal"
	}
	if config.Cache.SweepIntervalSeconds <= 0 {
		config.Cache.SweepIntervalSeconds = 300
	}
	if config.Cache.MaxAgeSeconds <= 0 {
		config.Cache.MaxAgeSeconds = 3600
	}
}

func verifyConfig(config *PortalConfig) error {
	if config.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required")
	}
	u, err := url.Parse(config.GatewayURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("gateway_url %q must be an http or https url", config.GatewayURL)
	}

	if _, err := models.ParseNetwork(config.Network); err != nil {
		return fmt.Errorf("network: %w", err)
	}

	switch config.Storage.Backend {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	for i, p := range config.FallbackPools {
		if p.TokenA == "" || p.TokenB == "" {
			return fmt.Errorf("fallback_pools[%d]: token_a and token_b are required", i)
		}
		if _, err := p.ReserveAInt(); err != nil {
			return fmt.Errorf("fallback_pools[%d]: %w", i, err)
		}
		if _, err := p.ReserveBInt(); err != nil {
			return fmt.Errorf("fallback_pools[%d]: %w", i, err)
		}
	}
	return nil
}
