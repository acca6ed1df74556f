package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

// RawBalance is a wallet balance as reported by the aggregator, in the
// token's smallest unit
type RawBalance struct {
	Contract string `json:"contract"`
	Balance  string `json:"balance"`
}

// SoroswapClient talks to the authenticated Soroswap aggregator API with
// failover between a primary and backup base URLs
type SoroswapClient struct {
	endpoints *endpoints
	apiKey    string
}

// NewSoroswapClient creates a client over urls, the first being the primary
func NewSoroswapClient(urls []string, apiKey string, config FailoverConfig) *SoroswapClient {
	client := newHTTPClient(config.Timeout)
	return &SoroswapClient{
		endpoints: newEndpoints("soroswap", urls, client, config),
		apiKey:    apiKey,
	}
}

// Close stops background health checks
func (c *SoroswapClient) Close() {
	c.endpoints.Close()
}

func (c *SoroswapClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.endpoints.get(ctx, path, c.apiKey, out)
}

func networkQuery(network models.Network) url.Values {
	return url.Values{"network": []string{string(network)}}
}

// TokenList returns the curated list the aggregator holds for network
func (c *SoroswapClient) TokenList(ctx context.Context, network models.Network) (models.TokenList, error) {
	var lists []models.TokenList
	if err := c.get(ctx, "/api/tokens", nil, &lists); err != nil {
		return models.TokenList{}, err
	}
	for _, l := range lists {
		if l.Network == string(network) {
			return l, nil
		}
	}
	return models.TokenList{}, models.NewError(models.KindNotFound, fmt.Sprintf("no token list for %s", network))
}

// Price returns the USD price of asset
func (c *SoroswapClient) Price(ctx context.Context, network models.Network, asset string) (models.PriceEntry, error) {
	q := networkQuery(network)
	q.Set("asset", asset)
	q.Set("referenceCurrency", "USD")

	var entries []models.PriceEntry
	if err := c.get(ctx, "/price", q, &entries); err != nil {
		return models.PriceEntry{}, err
	}
	for _, e := range entries {
		if e.Asset == asset {
			return e, nil
		}
	}
	return models.PriceEntry{}, models.NewError(models.KindNotFound, fmt.Sprintf("no price for %s", asset))
}

// Asset returns the metadata the aggregator knows for a token contract
func (c *SoroswapClient) Asset(ctx context.Context, network models.Network, contract string) (models.Token, error) {
	var token models.Token
	err := c.get(ctx, "/asset/"+url.PathEscape(contract), networkQuery(network), &token)
	return token, err
}

// Pools lists every pool on network
func (c *SoroswapClient) Pools(ctx context.Context, network models.Network) ([]models.Pool, error) {
	var pools []models.Pool
	if err := c.get(ctx, "/pools", networkQuery(network), &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// PoolByPair returns the pool between two tokens
func (c *SoroswapClient) PoolByPair(ctx context.Context, network models.Network, tokenA, tokenB string) (models.Pool, error) {
	var pool models.Pool
	path := fmt.Sprintf("/pools/%s/%s", url.PathEscape(tokenA), url.PathEscape(tokenB))
	err := c.get(ctx, path, networkQuery(network), &pool)
	return pool, err
}

// Positions lists the liquidity positions of user
func (c *SoroswapClient) Positions(ctx context.Context, network models.Network, user string) ([]models.Position, error) {
	var positions []models.Position
	if err := c.get(ctx, "/liquidity/positions/"+url.PathEscape(user), networkQuery(network), &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Balances lists the raw token balances of user
func (c *SoroswapClient) Balances(ctx context.Context, network models.Network, user string) ([]RawBalance, error) {
	var balances []RawBalance
	if err := c.get(ctx, "/balances/"+url.PathEscape(user), networkQuery(network), &balances); err != nil {
		return nil, err
	}
	return balances, nil
}
