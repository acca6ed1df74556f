package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/gateway/config"
	"github.com/Cogwheel-Validator/soroswap-portal/gateway/rpc"
	"github.com/Cogwheel-Validator/soroswap-portal/gateway/service"
	"github.com/Cogwheel-Validator/soroswap-portal/gateway/tokenlist"
	"github.com/Cogwheel-Validator/soroswap-portal/gateway/upstream"
	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// one logger for every package of the binary
	rpc.SetLogger(log.With().Str("component", "rpc").Logger())
	service.SetLogger(log.With().Str("component", "service").Logger())
	tokenlist.SetLogger(log.With().Str("component", "tokenlist").Logger())
	upstream.SetLogger(log.With().Str("component", "upstream").Logger())
}

func main() {
	configPath := flag.String("config", "", "gateway config file (.toml), GATEWAY_* env variables are used when empty")
	download := flag.String("download-token-list", "", "download the public token list to this path and exit")
	source := flag.String("token-list-source", config.DefaultPublicTokenList, "source for -download-token-list, any go-getter address")
	flag.Parse()

	if *download != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := upstream.DownloadTokenList(ctx, *source, *download); err != nil {
			log.Fatal().Err(err).Str("source", *source).Msg("Failed to download token list")
		}
		log.Info().Str("source", *source).Str("path", *download).Msg("Token list snapshot saved")
		return
	}

	var path *string
	if *configPath != "" {
		path = configPath
	}
	gatewayConfig, err := config.LoadGatewayConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load gateway config")
	}

	log.Info().
		Str("config", *configPath).
		Str("default_network", gatewayConfig.DefaultNetwork).
		Int("soroswap_urls", len(gatewayConfig.Soroswap.URLs)).
		Msg("Starting Soroswap gateway")

	failover := upstream.DefaultFailoverConfig()
	failover.Timeout = seconds(gatewayConfig.Soroswap.TimeoutSeconds)
	soroswap := upstream.NewSoroswapClient(gatewayConfig.Soroswap.URLs, gatewayConfig.Soroswap.APIKey, failover)
	defer soroswap.Close()

	defindex := upstream.NewDefindexClient(
		gatewayConfig.Defindex.URL,
		gatewayConfig.Defindex.APIKey,
		seconds(gatewayConfig.Defindex.TimeoutSeconds),
	)

	native := make(map[models.Network]models.Token, len(gatewayConfig.Native))
	for name, token := range gatewayConfig.Native {
		network, err := models.ParseNetwork(name)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid native asset network")
		}
		native[network] = token
	}

	resolver := tokenlist.NewResolver(soroswap, publicSource(gatewayConfig.TokenList), native)
	backend := service.New(resolver, soroswap, defindex, service.Config{
		TokenListTTL:  seconds(gatewayConfig.TokenList.TTLSeconds),
		Native:        native,
		NativeReserve: gatewayConfig.NativeReserveStroops,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := rpc.NewServer(ctx, buildServerConfig(gatewayConfig), backend)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gateway server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// publicSource reads the local snapshot when one is configured
func publicSource(cfg config.TokenListConfig) tokenlist.PublicSource {
	if cfg.SnapshotPath != "" {
		log.Info().Str("path", cfg.SnapshotPath).Msg("Serving testnet token list from snapshot")
		return tokenlist.PublicSourceFunc(func(context.Context) ([]models.TokenList, error) {
			return upstream.ReadTokenListSnapshot(cfg.SnapshotPath)
		})
	}
	return upstream.NewPublicListClient(cfg.PublicURL, seconds(cfg.TimeoutSeconds))
}

// buildServerConfig converts the loaded GatewayConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.GatewayConfig) *rpc.ServerConfig {
	network, err := models.ParseNetwork(cfg.DefaultNetwork)
	if err != nil {
		network = models.Mainnet
	}

	serverConfig := &rpc.ServerConfig{
		Address:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus,
		RequestTimeout: seconds(cfg.RequestTimeoutSeconds),
		DefaultNetwork: network,
	}

	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     defaultString(cfg.ServiceName, "soroswap-gateway"),
			ServiceVersion:  defaultString(cfg.ServiceVersion, "1.0.0"),
			Environment:     defaultString(cfg.Environment, "development"),
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}

	return serverConfig
}

// defaultString returns the default value if s is empty
func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
