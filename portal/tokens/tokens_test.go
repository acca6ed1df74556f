package tokens_test

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/tokens"
	"github.com/zeebo/assert"
)

var (
	xlm  = models.Token{Code: "XLM", Contract: "CNATIVE", Decimals: 7}
	usdc = models.Token{Code: "USDC", Contract: "CUSDC", Decimals: 7}
	aqua = models.Token{Code: "AQUA", Contract: "CAQUA", Decimals: 7}
)

func TestMergeOrderAndIndexes(t *testing.T) {
	userUSDC := models.Token{Code: "usdc", Contract: "CUSDC2", Name: "Bridged USDC", Decimals: 6}
	dupXLM := models.Token{Code: "XLM", Contract: "CNATIVE", Name: "Lumens again", Decimals: 7}

	l := tokens.Merge([]models.Token{xlm, usdc}, []models.Token{aqua, userUSDC, dupXLM})

	assert.Equal(t, len(l.Tokens), 5)
	assert.Equal(t, l.Tokens[0], xlm)
	assert.Equal(t, l.Tokens[2], aqua)
	assert.Equal(t, l.Tokens[4], dupXLM)

	for _, tok := range l.Tokens[1:4] {
		assert.Equal(t, l.ByContract[tok.Contract], tok)
	}
	// last write wins on both indexes
	assert.Equal(t, l.ByContract["CNATIVE"], dupXLM)
	got, ok := l.Symbol("Usdc")
	assert.True(t, ok)
	assert.Equal(t, got, userUSDC)

	_, ok = l.Token("CMISSING")
	assert.False(t, ok)
}

func TestMemoRecomputesOnNewSlice(t *testing.T) {
	var memo tokens.Memo
	curated := []models.Token{xlm}
	user := []models.Token{usdc}

	first := memo.Get(curated, user)
	second := memo.Get(curated, user)
	assert.True(t, &first.Tokens[0] == &second.Tokens[0])

	// same contents, different slice
	third := memo.Get(append([]models.Token(nil), curated...), user)
	assert.False(t, &first.Tokens[0] == &third.Tokens[0])
	assert.DeepEqual(t, first.Tokens, third.Tokens)
}

func TestAddUserToken(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		tok  models.Token
		kind models.ErrorKind
	}{
		{name: "missing contract", tok: models.Token{Code: "NEW"}, kind: models.KindValidation},
		{name: "same contract different code", tok: models.Token{Code: "OTHER", Contract: "CUSDC"}, kind: models.KindDuplicate},
		{name: "same code different contract", tok: models.Token{Code: "usdc", Contract: "CFAKE"}, kind: models.KindDuplicate},
		{name: "new token", tok: aqua},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tokens.NewUserTokens(storage.NewMemoryStore())
			assert.NoError(t, u.Add(ctx, usdc))

			err := u.Add(ctx, tt.tok)
			if tt.kind == "" {
				assert.NoError(t, err)
				assert.Equal(t, len(u.List(ctx)), 2)
				return
			}
			assert.Error(t, err)
			assert.True(t, models.IsKind(err, tt.kind))
			assert.Equal(t, len(u.List(ctx)), 1)
		})
	}
}

func TestAddKeepsZeroDecimals(t *testing.T) {
	ctx := context.Background()
	u := tokens.NewUserTokens(storage.NewMemoryStore())
	assert.NoError(t, u.Add(ctx, models.Token{Code: "NFT", Contract: "CNFT", Decimals: 0}))
	assert.Equal(t, u.List(ctx)[0].Decimals, 0)
}

func TestListDefaultsMissingDecimals(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	assert.NoError(t, store.Set(ctx, tokens.StorageKey, []byte(`[{"code":"OLD","contract":"COLD"},{"code":"NFT","contract":"CNFT","decimals":0}]`)))

	list := tokens.NewUserTokens(store).List(ctx)
	assert.Equal(t, len(list), 2)
	assert.Equal(t, list[0].Decimals, models.DefaultDecimals)
	assert.Equal(t, list[1].Decimals, 0)
}

func TestRemoveUserToken(t *testing.T) {
	ctx := context.Background()
	u := tokens.NewUserTokens(storage.NewMemoryStore())
	assert.NoError(t, u.Add(ctx, usdc))
	assert.NoError(t, u.Add(ctx, aqua))

	assert.NoError(t, u.Remove(ctx, "CUSDC"))
	assert.DeepEqual(t, u.List(ctx), []models.Token{aqua})

	err := u.Remove(ctx, "CUSDC")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestListTreatsCorruptDataAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	assert.NoError(t, store.Set(ctx, tokens.StorageKey, []byte("{not json")))

	u := tokens.NewUserTokens(store)
	list := u.List(ctx)
	assert.NotNil(t, list)
	assert.Equal(t, len(list), 0)

	// a corrupt list is overwritten by the next add
	assert.NoError(t, u.Add(ctx, usdc))
	assert.Equal(t, len(u.List(ctx)), 1)
}

func TestReadersStayInSync(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writer := tokens.NewUserTokens(store)

	var seen [][]models.Token
	a := tokens.NewUserTokens(store).NewReader(ctx, func(list []models.Token) {
		seen = append(seen, list)
	})
	b := tokens.NewUserTokens(store).NewReader(ctx, nil)
	assert.Equal(t, len(a.Tokens()), 0)

	assert.NoError(t, writer.Add(ctx, usdc))
	// notifications are delivered synchronously
	assert.DeepEqual(t, a.Tokens(), []models.Token{usdc})
	assert.DeepEqual(t, b.Tokens(), []models.Token{usdc})
	assert.Equal(t, len(seen), 1)

	b.Close()
	assert.NoError(t, writer.Add(ctx, aqua))
	assert.Equal(t, len(a.Tokens()), 2)
	assert.Equal(t, len(b.Tokens()), 1)

	a.Close()
	assert.Equal(t, store.Subscribers(tokens.StorageKey), 0)
}
