package config

import (
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type PortalConfig struct {
	// GatewayURL is the base URL of the proxy endpoints
	GatewayURL string `toml:"gateway_url"`
	// Origin is sent with every request and must be on the gateway allow-list
	Origin                string `toml:"origin"`
	Network               string `toml:"network"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`

	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`

	// FallbackPools are shown while the pool list cannot be loaded
	FallbackPools []models.Pool `toml:"fallback_pools"`
}

type StorageConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisURL      string `toml:"redis_url"`
	RedisPassword string `toml:"redis_password"`
	RedisPrefix   string `toml:"redis_prefix"`
}

type CacheConfig struct {
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
	MaxAgeSeconds        int `toml:"max_age_seconds"`
}

func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

func (c *PortalConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *PortalConfig) ParsedNetwork() models.Network {
	n, _ := models.ParseNetwork(c.Network)
	return n
}
