package models_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/zeebo/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rateLimited bool
		terminal    bool
	}{
		{"nil", nil, false, false},
		{"rate limited kind", models.NewError(models.KindRateLimited, "slow down"), true, false},
		{"429 status", models.NewFetchError(http.StatusTooManyRequests, "", ""), true, false},
		{"sdk message", errors.New("request failed: Too Many Requests"), true, false},
		{"wrapped 429 text", fmt.Errorf("token list: %w", errors.New("status 429")), true, false},
		{"validation", models.NewError(models.KindValidation, "bad contract"), false, true},
		{"cors", models.NewError(models.KindCORS, "origin not allowed"), false, true},
		{"duplicate", models.NewError(models.KindDuplicate, "exists"), false, true},
		{"forbidden status", models.NewFetchError(http.StatusForbidden, "TOKENS_ERROR_CORS", ""), false, true},
		{"server error", models.NewFetchError(http.StatusBadGateway, "TOKENS_ERROR", "bad gateway"), false, false},
		{"plain error", errors.New("connection reset"), false, false},
		{"429 inside a tagged message", models.NewError(models.KindNotFound, "pool CA429 not found"), false, true},
		{"rate limit text on upstream error", models.NewFetchError(http.StatusBadGateway, "", "rate limit backend down"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, models.IsRateLimited(tt.err), tt.rateLimited)
			assert.Equal(t, models.IsTerminal(tt.err), tt.terminal)
		})
	}
}

func TestErrorAccessorsSeeThroughWrapping(t *testing.T) {
	base := models.NewFetchError(http.StatusNotFound, "POOL_PAIR_ERROR", "pool does not exist")
	err := fmt.Errorf("load pool: %w", base)

	assert.Equal(t, models.KindOf(err), models.KindFetch)
	assert.Equal(t, models.StatusOf(err), http.StatusNotFound)
	assert.Equal(t, models.MessageOf(err), "pool does not exist")
	assert.True(t, errors.Is(err, base))

	assert.Equal(t, models.KindOf(errors.New("x")), models.ErrorKind(""))
	assert.Equal(t, models.MessageOf(errors.New("x")), "x")
	assert.Equal(t, models.MessageOf(nil), "")
}

func TestFetchErrorDefaultsMessage(t *testing.T) {
	err := models.NewFetchError(http.StatusServiceUnavailable, "", "")
	assert.Equal(t, err.Message, "Service Unavailable")
	assert.Equal(t, err.Error(), "fetch: Service Unavailable (status 503)")
}

func TestParseNetwork(t *testing.T) {
	n, err := models.ParseNetwork(" TESTNET ")
	assert.NoError(t, err)
	assert.Equal(t, n, models.Testnet)

	_, err = models.ParseNetwork("futurenet")
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestPoolReserves(t *testing.T) {
	p := models.Pool{TokenA: "CA", TokenB: "CB", ReserveA: "123456789012345678901234567890"}
	a, err := p.ReserveAInt()
	assert.NoError(t, err)
	assert.Equal(t, a.String(), "123456789012345678901234567890")

	b, err := p.ReserveBInt()
	assert.NoError(t, err)
	assert.Equal(t, b.Sign(), 0)

	p.ReserveB = "1e5"
	_, err = p.ReserveBInt()
	assert.True(t, models.IsKind(err, models.KindParse))
}

func TestTokenDecimalsDefaultOnlyWhenMissing(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		decimals int
	}{
		{"missing", `{"code":"XLM","contract":"CX"}`, models.DefaultDecimals},
		{"null", `{"code":"XLM","contract":"CX","decimals":null}`, models.DefaultDecimals},
		{"zero", `{"code":"NFT","contract":"CN","decimals":0}`, 0},
		{"explicit", `{"code":"ETH","contract":"CE","decimals":18}`, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var token models.Token
			assert.NoError(t, json.Unmarshal([]byte(tt.body), &token))
			assert.Equal(t, token.Decimals, tt.decimals)
			assert.True(t, token.Contract != "")
		})
	}
}
