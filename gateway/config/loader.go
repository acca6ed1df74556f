package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Secrets read from the environment. They override the config file so API
// keys never have to be written to disk.
const (
	EnvSoroswapAPIKey = "SOROSWAP_API_KEY"
	EnvDefindexAPIKey = "DEFINDEX_API_KEY"
)

// LoadGatewayConfig loads the gateway config from the given path, or from
// GATEWAY_* environment variables when configPath is nil
func LoadGatewayConfig(configPath *string) (*GatewayConfig, error) {
	v := viper.New()

	// godot might fail if .env file is missing but
	// env can be applied through docker, systmed or other means, so skip error
	_ = godotenv.Load()

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func loadEnv(v *viper.Viper) (*GatewayConfig, error) {
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config GatewayConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	return finish(&config)
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests", "request_timeout_seconds",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode", "default_network",
		"soroswap.urls", "soroswap.api_key", "soroswap.timeout_seconds",
		"defindex.url", "defindex.api_key", "defindex.timeout_seconds",
		"token_list.public_url", "token_list.snapshot_path",
		"token_list.timeout_seconds", "token_list.ttl_seconds",
		"native_reserve_stroops",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*GatewayConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GatewayConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return finish(&config)
}

func finish(config *GatewayConfig) (*GatewayConfig, error) {
	applySecrets(config)
	applyDefaults(config)
	if err := verifyConfig(config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return config, nil
}

func applySecrets(config *GatewayConfig) {
	if key := os.Getenv(EnvSoroswapAPIKey); key != "" {
		config.Soroswap.APIKey = key
	}
	if key := os.Getenv(EnvDefindexAPIKey); key != "" {
		config.Defindex.APIKey = key
	}
}

func verifyConfig(config *GatewayConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if _, err := models.ParseNetwork(config.DefaultNetwork); err != nil {
		return fmt.Errorf("default_network: %w", err)
	}

	for _, u := range config.Soroswap.URLs {
		if err := verifyURL(u); err != nil {
			return fmt.Errorf("soroswap.urls: %w", err)
		}
	}
	if err := verifyURL(config.Defindex.URL); err != nil {
		return fmt.Errorf("defindex.url: %w", err)
	}
	if config.TokenList.SnapshotPath == "" {
		if err := verifyURL(config.TokenList.PublicURL); err != nil {
			return fmt.Errorf("token_list.public_url: %w", err)
		}
	}

	for network, token := range config.Native {
		if _, err := models.ParseNetwork(network); err != nil {
			return fmt.Errorf("native: %w", err)
		}
		if token.Contract == "" {
			return fmt.Errorf("native.%s.contract is required", network)
		}
	}

	return nil
}

func verifyURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	return nil
}
