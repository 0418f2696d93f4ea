package pricecache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	prices  map[string]float64
	loadErr error
	written map[string]float64
}

func (f *fakeRepo) LoadPrices(ctx context.Context) (map[string]float64, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.prices, nil
}

func (f *fakeRepo) UpsertPricesTx(ctx context.Context, prices map[string]float64) error {
	f.written = prices
	for sym, p := range prices {
		f.prices[sym] = p
	}
	return nil
}

func TestRefreshNormalizesSymbolCase(t *testing.T) {
	repo := &fakeRepo{prices: map[string]float64{"ETH": 2000, "usdc": 1}}
	c := New(repo)
	require.NoError(t, c.Refresh(context.Background()))

	p, ok := c.Lookup("eth")
	require.True(t, ok)
	assert.Equal(t, 2000.0, p)

	p, ok = c.Lookup("USDC")
	require.True(t, ok)
	assert.Equal(t, 1.0, p)
}

func TestLookupUnknownSymbol(t *testing.T) {
	c := New(&fakeRepo{prices: map[string]float64{}})
	require.NoError(t, c.Refresh(context.Background()))
	_, ok := c.Lookup("doesnotexist")
	assert.False(t, ok)
}

func TestRefreshPropagatesRepoError(t *testing.T) {
	repo := &fakeRepo{loadErr: errors.New("db down")}
	c := New(repo)
	assert.Error(t, c.Refresh(context.Background()))
}

func TestUpdateWritesThenRefreshes(t *testing.T) {
	repo := &fakeRepo{prices: map[string]float64{}}
	c := New(repo)
	require.NoError(t, c.Update(context.Background(), map[string]float64{"btc": 60000}))

	p, ok := c.Lookup("BTC")
	require.True(t, ok)
	assert.Equal(t, 60000.0, p)
}
