package config

import "github.com/Cogwheel-Validator/soroswap-portal/models"

type GatewayConfig struct {
	// rpc configs
	Port int    `mapstructure:"port" toml:"port"`
	Host string `mapstructure:"host" toml:"host"`

	// CORS configs, also the origin allow-list of every endpoint
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `mapstructure:"rate_per_minute" toml:"rate_per_minute"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests" toml:"max_concurrent_requests"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" toml:"request_timeout_seconds"`

	// OpenTelemetry configs
	ServiceName    string `mapstructure:"service_name" toml:"service_name"`
	ServiceVersion string `mapstructure:"service_version" toml:"service_version"`
	Environment    string `mapstructure:"environment" toml:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `mapstructure:"enable_tracing" toml:"enable_tracing"`
	UseOTLPTraces  bool   `mapstructure:"use_otlp_traces" toml:"use_otlp_traces"`
	OTLPTracesURL  string `mapstructure:"otlp_traces_url" toml:"otlp_traces_url"`
	EnableMetrics  bool   `mapstructure:"enable_metrics" toml:"enable_metrics"`
	UsePrometheus  bool   `mapstructure:"use_prometheus" toml:"use_prometheus"`
	UseOTLPMetrics bool   `mapstructure:"use_otlp_metrics" toml:"use_otlp_metrics"`
	OTLPMetricsURL string `mapstructure:"otlp_metrics_url" toml:"otlp_metrics_url"`
	EnableLogs     bool   `mapstructure:"enable_logs" toml:"enable_logs"`
	UseOTLPLogs    bool   `mapstructure:"use_otlp_logs" toml:"use_otlp_logs"`
	OTLPLogsURL    string `mapstructure:"otlp_logs_url" toml:"otlp_logs_url"`

	InsecureOTLP bool `mapstructure:"insecure_otlp" toml:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `mapstructure:"development_mode" toml:"development_mode"`

	// DefaultNetwork is used when a request carries no network header
	DefaultNetwork string `mapstructure:"default_network" toml:"default_network"`

	Soroswap  SoroswapConfig  `mapstructure:"soroswap" toml:"soroswap"`
	Defindex  DefindexConfig  `mapstructure:"defindex" toml:"defindex"`
	TokenList TokenListConfig `mapstructure:"token_list" toml:"token_list"`

	// Native is the native asset entry per network, prepended to the token
	// list when the upstream list lacks it
	Native map[string]models.Token `mapstructure:"native" toml:"native"`
	// NativeReserveStroops is subtracted from the native balance to get the
	// spendable amount
	NativeReserveStroops int64 `mapstructure:"native_reserve_stroops" toml:"native_reserve_stroops"`
}

// SoroswapConfig is the authenticated aggregator API. The first URL is the
// primary, the rest are backups.
type SoroswapConfig struct {
	URLs           []string `mapstructure:"urls" toml:"urls"`
	APIKey         string   `mapstructure:"api_key" toml:"api_key"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// DefindexConfig is the vault API
type DefindexConfig struct {
	URL            string `mapstructure:"url" toml:"url"`
	APIKey         string `mapstructure:"api_key" toml:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// TokenListConfig controls curated token list resolution
type TokenListConfig struct {
	// PublicURL serves the unauthenticated list used on testnet
	PublicURL string `mapstructure:"public_url" toml:"public_url"`
	// SnapshotPath, when set, is read instead of PublicURL
	SnapshotPath   string `mapstructure:"snapshot_path" toml:"snapshot_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	TTLSeconds     int    `mapstructure:"ttl_seconds" toml:"ttl_seconds"`
}
