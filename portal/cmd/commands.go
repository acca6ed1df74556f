package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/app"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/pools"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/settings"
	"github.com/Cogwheel-Validator/soroswap-portal/units"
)

type command struct {
	help string
	run  func(ctx context.Context, portal *app.App, args []string) error
}

var commandOrder = []string{
	"tokens", "token", "add-token", "remove-token", "prices", "pools", "pair",
	"positions", "balances", "vaults", "watch-pools", "settings", "min-out", "units",
}

var commands = map[string]command{
	"tokens":       {"list curated and user tokens", runTokens},
	"token":        {"<contract> show token metadata", runToken},
	"add-token":    {"<contract> resolve a token and add it to the user list", runAddToken},
	"remove-token": {"<contract> remove a user token", runRemoveToken},
	"prices":       {"<asset>... USD prices, unknown assets are reported separately", runPrices},
	"pools":        {"pools with TVL", runPools},
	"pair":         {"<tokenA> <tokenB> pool between two tokens", runPair},
	"positions":    {"<user> liquidity positions of a wallet", runPositions},
	"balances":     {"<user> token balances of a wallet", runBalances},
	"vaults":       {"<user> <vaultId>... vault descriptions and balances", runVaults},
	"watch-pools":  {"print pools on every refresh until interrupted", runWatchPools},
	"settings":     {"[show|slippage <pct>|auto|hops <n>|protocols <p,...>|reset] swap settings", runSettings},
	"min-out":      {"<amount> <decimals> minimum output under the current slippage", runMinOut},
	"units":        {"parse|format <value> <decimals> fixed point conversion", runUnits},
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func runTokens(ctx context.Context, portal *app.App, _ []string) error {
	return printJSON(portal.Tokens(ctx).Tokens)
}

func runToken(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "token <contract>"); err != nil {
		return err
	}
	if token, ok := portal.Tokens(ctx).Token(args[0]); ok {
		return printJSON(token)
	}
	token, err := portal.Queries.TokenMetadata(args[0]).Get(ctx)
	if err != nil {
		return err
	}
	return printJSON(token)
}

func runAddToken(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "add-token <contract>"); err != nil {
		return err
	}
	token, err := portal.AddToken(ctx, args[0])
	if err != nil {
		return err
	}
	log.Info().Str("code", token.Code).Str("contract", token.Contract).Msg("Token added")
	return nil
}

func runRemoveToken(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "remove-token <contract>"); err != nil {
		return err
	}
	return portal.UserTokens.Remove(ctx, args[0])
}

func runPrices(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "prices <asset>..."); err != nil {
		return err
	}
	batch, err := portal.Queries.Prices(args).Get(ctx)
	if err != nil {
		return err
	}
	unknown := make([]string, 0, len(batch.Unknown))
	for asset := range batch.Unknown {
		unknown = append(unknown, asset)
	}
	return printJSON(map[string]any{"prices": batch.Prices, "unknown": unknown})
}

func runPools(ctx context.Context, portal *app.App, _ []string) error {
	view := portal.Pools.Load(ctx)
	if view.Err != nil {
		log.Warn().Err(view.Err).Bool("fallback", view.Fallback).Msg("Pool list unavailable")
	}
	return printJSON(view.Pools)
}

func runPair(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 2, "pair <tokenA> <tokenB>"); err != nil {
		return err
	}
	pool, err := portal.Queries.PoolByPair(args[0], args[1]).Get(ctx)
	if err != nil {
		return err
	}
	prices, _ := portal.Queries.Prices([]string{pool.TokenA, pool.TokenB}).Get(ctx)
	return printJSON(pools.Enrich([]models.Pool{pool}, portal.Tokens(ctx), prices)[0])
}

func runPositions(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "positions <user>"); err != nil {
		return err
	}
	positions, err := portal.Queries.UserPositions(args[0]).Get(ctx)
	if err != nil {
		return err
	}
	return printJSON(positions)
}

func runBalances(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 1, "balances <user>"); err != nil {
		return err
	}
	balances, err := portal.Queries.Balances(args[0]).Get(ctx)
	if err != nil {
		return err
	}
	return printJSON(balances)
}

func runVaults(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 2, "vaults <user> <vaultId>..."); err != nil {
		return err
	}
	user, ids := args[0], args[1:]
	infos, err := portal.Queries.VaultInfos(ids).Get(ctx)
	if err != nil {
		return fmt.Errorf("vault info: %w", err)
	}
	balances, err := portal.Queries.VaultBalances(ids, user).Get(ctx)
	if err != nil {
		return fmt.Errorf("vault balances: %w", err)
	}
	return printJSON(map[string]any{"vaults": infos, "balances": balances})
}

func runWatchPools(ctx context.Context, portal *app.App, _ []string) error {
	portal.Queries.Pools().Watch(ctx, func(snap cache.Snapshot[[]models.Pool]) {
		if snap.IsLoading {
			return
		}
		view := portal.Pools.Load(ctx)
		log.Info().
			Int("pools", len(view.Pools)).
			Bool("fallback", view.Fallback).
			Bool("error", snap.IsError).
			Msg("Pools refreshed")
		_ = printJSON(view.Pools)
	})
	return nil
}

func runSettings(ctx context.Context, portal *app.App, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "show":
	case "slippage":
		if err := needArgs(args, 2, "settings slippage <pct>"); err != nil {
			return err
		}
		if _, err := portal.Swap.SetCustomSlippage(ctx, args[1]); err != nil {
			return err
		}
	case "auto":
		if _, err := portal.Swap.Update(ctx, func(s *settings.SwapSettings) {
			s.Mode = settings.SlippageAuto
		}); err != nil {
			return err
		}
	case "hops":
		if err := needArgs(args, 2, "settings hops <n>"); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid hop count %q", args[1])
		}
		if _, err := portal.Swap.Update(ctx, func(s *settings.SwapSettings) { s.MaxHops = n }); err != nil {
			return err
		}
	case "protocols":
		if err := needArgs(args, 2, "settings protocols <p,...>"); err != nil {
			return err
		}
		var protocols []settings.Protocol
		for _, p := range strings.Split(args[1], ",") {
			if p = strings.TrimSpace(p); p != "" {
				protocols = append(protocols, settings.Protocol(strings.ToLower(p)))
			}
		}
		if _, err := portal.Swap.Update(ctx, func(s *settings.SwapSettings) { s.Protocols = protocols }); err != nil {
			return err
		}
	case "reset":
		if err := portal.Swap.Reset(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown settings action %q", action)
	}

	current := portal.Swap.Get(ctx)
	return printJSON(map[string]any{
		"settings":    current,
		"slippage":    current.Slippage().String(),
		"slippageBps": current.SlippageBps(),
	})
}

func runMinOut(ctx context.Context, portal *app.App, args []string) error {
	if err := needArgs(args, 2, "min-out <amount> <decimals>"); err != nil {
		return err
	}
	decimals, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid decimals %q", args[1])
	}
	expected, err := units.ParseUnits(args[0], decimals)
	if err != nil {
		return err
	}

	current := portal.Swap.Get(ctx)
	minimum, err := settings.MinOutput(expected.String(), current.SlippageBps())
	if err != nil {
		return err
	}
	minimumInt, _ := new(big.Int).SetString(minimum, 10)
	return printJSON(map[string]any{
		"expected":    args[0],
		"minimum":     units.FormatUnits(minimumInt, decimals),
		"minimumRaw":  minimum,
		"slippageBps": current.SlippageBps(),
	})
}

func runUnits(_ context.Context, _ *app.App, args []string) error {
	if err := needArgs(args, 3, "units parse|format <value> <decimals>"); err != nil {
		return err
	}
	decimals, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid decimals %q", args[2])
	}
	switch args[0] {
	case "parse":
		v, err := units.ParseUnits(args[1], decimals)
		if err != nil {
			return err
		}
		fmt.Println(v.String())
	case "format":
		v, ok := new(big.Int).SetString(args[1], 10)
		if !ok {
			return fmt.Errorf("invalid integer %q", args[1])
		}
		fmt.Println(units.FormatUnits(v, decimals))
	default:
		return fmt.Errorf("unknown units action %q", args[0])
	}
	return nil
}
