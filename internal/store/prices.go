package store

import "context"

// LoadPrices and UpsertPricesTx implement pricecache.Repository.
func (p *Pool) LoadPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := p.Query(ctx, "SELECT symbol, price_usd FROM symbol_prices")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, err
		}
		out[symbol] = price
	}
	return out, rows.Err()
}

// UpsertPricesTx writes prices inside a single transaction, rolling back
// on any row failure (spec §5: "bulk token-price refreshes wrap their
// upsert in a single transaction and ROLLBACK on any row failure").
func (p *Pool) UpsertPricesTx(ctx context.Context, prices map[string]float64) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := Now()
	for symbol, price := range prices {
		_, err := tx.Exec(ctx, `
INSERT INTO symbol_prices (symbol, price_usd, last_updated) VALUES ($1, $2, $3)
ON CONFLICT (symbol) DO UPDATE SET price_usd = excluded.price_usd, last_updated = excluded.last_updated
`, symbol, price, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
