package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

// DefindexClient reads vaults from the Defindex API. Responses are passed
// through undecoded.
type DefindexClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDefindexClient creates a vault API client
func NewDefindexClient(baseURL, apiKey string, timeout time.Duration) *DefindexClient {
	return &DefindexClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
	}
}

// VaultInfo returns the description of a vault
func (c *DefindexClient) VaultInfo(ctx context.Context, network models.Network, vaultID string) (models.VaultInfo, error) {
	var info models.VaultInfo
	u := c.baseURL + "/vault/" + url.PathEscape(vaultID) + "?" + networkQuery(network).Encode()
	err := getJSON(ctx, c.httpClient, "defindex", u, c.apiKey, &info)
	return info, err
}

// VaultBalance returns the position of user in a vault
func (c *DefindexClient) VaultBalance(ctx context.Context, network models.Network, vaultID, user string) (models.VaultBalance, error) {
	var balance models.VaultBalance
	q := networkQuery(network)
	q.Set("from", user)
	u := c.baseURL + "/vault/" + url.PathEscape(vaultID) + "/balance?" + q.Encode()
	err := getJSON(ctx, c.httpClient, "defindex", u, c.apiKey, &balance)
	return balance, err
}
