// Command portal drives the Soroswap data layer from a terminal: token
// lists, prices, pools with TVL, wallet positions and balances, vaults and
// the persisted swap settings.
//
// Usage:
//
//	go run ./portal/cmd -config ./portal.toml pools
//	go run ./portal/cmd -config ./portal.toml add-token <contract>
//	go run ./portal/cmd -config ./portal.toml settings slippage 1.5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/portal/app"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/config"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/pools"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/queries"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/settings"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/tokens"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	app.SetLogger(log.With().Str("component", "app").Logger())
	cache.SetLogger(log.With().Str("component", "cache").Logger())
	pools.SetLogger(log.With().Str("component", "pools").Logger())
	queries.SetLogger(log.With().Str("component", "queries").Logger())
	settings.SetLogger(log.With().Str("component", "settings").Logger())
	storage.SetLogger(log.With().Str("component", "storage").Logger())
	tokens.SetLogger(log.With().Str("component", "tokens").Logger())
}

func main() {
	configPath := flag.String("config", "./portal.toml", "portal config file (.toml)")
	metricsAddr := flag.String("metrics", "", "serve cache metrics on this address, e.g. :9100")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	portalConfig, err := config.NewDefaultPortalConfigLoader().LoadPortalConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load portal config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	portal, err := app.New(ctx, portalConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, portal)
	}

	runErr := cmd.run(ctx, portal, flag.Args()[1:])
	if err := portal.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close portal")
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func serveMetrics(addr string, portal *app.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(portal.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("address", addr).Msg("Serving cache metrics on /metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: portal [flags] <command> [args]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "\t%-14s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
