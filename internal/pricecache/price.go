// Package pricecache implements the Price Cache (C9, spec §4.8): reads
// and writes symbol-keyed USD prices, case-insensitive on symbol.
package pricecache

import (
	"context"
	"strings"
	"sync"
)

// Repository is implemented by internal/store against symbol_prices.
type Repository interface {
	LoadPrices(ctx context.Context) (map[string]float64, error)
	UpsertPricesTx(ctx context.Context, prices map[string]float64) error
}

// Cache is an in-memory, case-insensitive lookup map refreshed from the
// repository.
type Cache struct {
	repo Repository
	mu   sync.RWMutex
	data map[string]float64 // lowercased symbol -> usd price
}

func New(repo Repository) *Cache {
	return &Cache{repo: repo, data: make(map[string]float64)}
}

// Refresh reloads the full price map from Postgres.
func (c *Cache) Refresh(ctx context.Context) error {
	prices, err := c.repo.LoadPrices(ctx)
	if err != nil {
		return err
	}
	normalized := make(map[string]float64, len(prices))
	for sym, p := range prices {
		normalized[strings.ToLower(sym)] = p
	}
	c.mu.Lock()
	c.data = normalized
	c.mu.Unlock()
	return nil
}

// Lookup returns the USD price for symbol (case-insensitive), or false if
// unknown.
func (c *Cache) Lookup(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.data[strings.ToLower(symbol)]
	return p, ok
}

// Update writes new prices to Postgres inside a single transaction
// (rolled back on any row failure, spec §5) and refreshes the in-memory
// map on success.
func (c *Cache) Update(ctx context.Context, prices map[string]float64) error {
	if err := c.repo.UpsertPricesTx(ctx, prices); err != nil {
		return err
	}
	return c.Refresh(ctx)
}
