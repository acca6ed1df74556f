package pools

import (
	"context"
	"os"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/queries"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/tokens"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "pools").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// PoolView is a pool with its USD value. TVL is nil while the value cannot
// be computed yet.
type PoolView struct {
	models.Pool
	TVL *int64 `json:"tvl"`
}

// Enrich values every pool. The TVL of a pool is only set when both of its
// tokens are in the lookup and both prices were resolved.
func Enrich(pools []models.Pool, lookup tokens.Lookup, prices queries.PriceBatch) []PoolView {
	views := make([]PoolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, PoolView{Pool: p, TVL: valuate(p, lookup, prices)})
	}
	return views
}

func valuate(p models.Pool, lookup tokens.Lookup, prices queries.PriceBatch) *int64 {
	if _, ok := lookup.Token(p.TokenA); !ok {
		return nil
	}
	if _, ok := lookup.Token(p.TokenB); !ok {
		return nil
	}
	if !prices.Known(p.TokenA) || !prices.Known(p.TokenB) {
		return nil
	}

	ra, err := p.ReserveAInt()
	if err != nil {
		log.Warn().Err(err).Str("pool", p.Address).Msg("Skipping pool valuation")
		return nil
	}
	rb, err := p.ReserveBInt()
	if err != nil {
		log.Warn().Err(err).Str("pool", p.Address).Msg("Skipping pool valuation")
		return nil
	}

	tvl := TVL(p.TokenA, p.TokenB, ra, rb, lookup.ByContract, prices.Prices)
	return &tvl
}

// TokenSource yields the user's current token list. *tokens.Reader
// implements it.
type TokenSource interface {
	Tokens() []models.Token
}

// View is the assembled pool screen state
type View struct {
	Pools  []PoolView
	Tokens tokens.Lookup
	// Fallback is set when Pools comes from the static list
	Fallback bool
	// Err is the last pool list error, if any
	Err error
}

// Aggregator combines the pool list, token lists and prices into a View
type Aggregator struct {
	queries  *queries.Service
	user     TokenSource
	fallback []models.Pool
	memo     tokens.Memo
}

// NewAggregator creates an aggregator. fallback is served while the pool
// list has never loaded successfully.
func NewAggregator(q *queries.Service, user TokenSource, fallback []models.Pool) *Aggregator {
	return &Aggregator{queries: q, user: user, fallback: fallback}
}

// Load refreshes every input, honoring each query's dedup window, and
// returns the combined view. It does not fail: errors are reported in the
// view and stale or fallback data is used.
func (a *Aggregator) Load(ctx context.Context) View {
	var view View

	poolSnap := a.queries.Pools().Load(ctx)
	pools := poolSnap.Data
	view.Err = poolSnap.Err
	if !poolSnap.HasData {
		pools = a.fallback
		view.Fallback = true
	}

	listSnap := a.queries.TokenList().Load(ctx)
	var user []models.Token
	if a.user != nil {
		user = a.user.Tokens()
	}
	view.Tokens = a.memo.Get(queries.TokensOrEmpty(listSnap), user)

	var prices queries.PriceBatch
	if ids := poolTokens(pools); len(ids) > 0 {
		prices = a.queries.Prices(ids).Load(ctx).Data
	}
	view.Pools = Enrich(pools, view.Tokens, prices)
	return view
}

func poolTokens(pools []models.Pool) []string {
	ids := make([]string, 0, 2*len(pools))
	for _, p := range pools {
		ids = append(ids, p.TokenA, p.TokenB)
	}
	return ids
}
