package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/fetch"
	"github.com/zeebo/assert"
)

func TestGetDecodesEnvelope(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, r.URL.Path, "/api/price")
		assert.Equal(t, r.Header.Get("asset"), "CASSET")
		assert.Equal(t, r.Header.Get("Origin"), "https://app.example")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"PRICE_SUCCESS","data":{"asset":"CASSET","price":0.42}}`))
	}))
	defer srv.Close()

	client := fetch.NewClient(srv.URL+"/", fetch.WithOrigin("https://app.example"))
	got, err := fetch.Get[models.PriceEntry](context.Background(), client, "/api/price", map[string]string{"asset": "CASSET"})
	assert.NoError(t, err)
	assert.Equal(t, got.Asset, "CASSET")
	assert.Equal(t, got.Price, 0.42)
	assert.Equal(t, calls.Load(), int32(1))
}

func TestNonSuccessStatusIsFetchError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.ErrorKind
		wantCode string
	}{
		{name: "bad request", status: 400, body: `{"code":"PRICE_ERROR_MISSING_PARAM","message":"asset header is required"}`, wantKind: models.KindFetch, wantCode: "PRICE_ERROR_MISSING_PARAM"},
		{name: "rate limited", status: 429, body: `{"code":"TOKENS_ERROR","message":"rate limit exceeded"}`, wantKind: models.KindRateLimited, wantCode: "TOKENS_ERROR"},
		{name: "plain text", status: 502, body: `bad gateway`, wantKind: models.KindFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := fetch.NewClient(srv.URL)
			_, err := fetch.Get[models.TokenList](context.Background(), client, "api/tokens", nil)
			assert.Error(t, err)
			assert.Equal(t, models.KindOf(err), tt.wantKind)
			assert.Equal(t, models.StatusOf(err), tt.status)

			var fe *models.Error
			assert.True(t, asError(err, &fe))
			assert.Equal(t, fe.Code, tt.wantCode)
			// no retries at this layer
			assert.Equal(t, calls.Load(), int32(1))
		})
	}
}

func TestMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"POOLS_SUCCESS","data":`))
	}))
	defer srv.Close()

	_, err := fetch.Get[[]models.Pool](context.Background(), fetch.NewClient(srv.URL), "/api/pools", nil)
	assert.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindParse))
}

func asError(err error, target **models.Error) bool {
	e, ok := err.(*models.Error)
	if ok {
		*target = e
	}
	return ok
}
