// Package fundupdate implements the Fund Updater (C10, spec §4.8): native
// and ERC-20 balance fetch via the batch read engine, USD valuation using
// the price cache, and a per-token cap that discards implausible balances
// before they corrupt an address's total fund value.
package fundupdate

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/batchread"
	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/optimizer"
	"github.com/kismp123/bugchainindexer-go/internal/pricecache"
)

// perTokenCapUSD is the spec's literal "$1B per-token position" cap (spec
// §4.8, §9 Design Notes). It is the only implausibility filter; no
// balance-vs-totalSupply check is made.
const perTokenCapUSD = 1_000_000_000.0

// Token is a network's tracked ERC-20 (symbol, decimals) used to convert
// raw balances into USD.
type Token struct {
	Address  string
	Symbol   string
	Decimals int
}

// Aggregator is the subset of batchread.Aggregator the updater needs.
type Aggregator interface {
	GetNativeBalance(ctx context.Context, addrs []string) ([]*big.Int, error)
	GetTokenBalance(ctx context.Context, holders, tokens []string) ([]*big.Int, error)
}

// Updater computes total USD fund value per address.
type Updater struct {
	network chainconfig.NetworkConfig
	agg     Aggregator
	prices  *pricecache.Cache
	tokens  []Token
	nativeSession *optimizer.Session
	tokenSession  *optimizer.Session
	log     *zap.Logger
}

// New builds an Updater for one network.
func New(network chainconfig.NetworkConfig, agg Aggregator, prices *pricecache.Cache, tokens []Token, nativeSession, tokenSession *optimizer.Session, log *zap.Logger) *Updater {
	return &Updater{network: network, agg: agg, prices: prices, tokens: tokens, nativeSession: nativeSession, tokenSession: tokenSession, log: log}
}

// Result is one address's computed fund value.
type Result struct {
	Address string
	FundUSD int64 // floor(sum of valid positions), spec stores Fund as an integer
}

// Update computes native + ERC-20 USD fund value for a batch of
// addresses (spec §4.8 steps 1-4), via the chunked batch-read engine so
// the same adaptive sizing and degrade-to-singleton semantics apply.
func (u *Updater) Update(ctx context.Context, addresses []string) ([]Result, error) {
	totals := make(map[string]float64, len(addresses))
	for _, a := range addresses {
		totals[a] = 0
	}

	if err := u.addNativeBalances(ctx, addresses, totals); err != nil {
		return nil, err
	}
	if len(u.tokens) > 0 {
		if err := u.addTokenBalances(ctx, addresses, totals); err != nil {
			return nil, err
		}
	}

	out := make([]Result, len(addresses))
	for i, a := range addresses {
		out[i] = Result{Address: a, FundUSD: int64(totals[a])}
	}
	return out, nil
}

func (u *Updater) addNativeBalances(ctx context.Context, addresses []string, totals map[string]float64) error {
	price, ok := u.prices.Lookup(u.network.NativeSymbol)
	if !ok || price <= 0 {
		return nil
	}
	op := func(ctx context.Context, chunk []string) ([]*big.Int, error) {
		return u.agg.GetNativeBalance(ctx, chunk)
	}
	single := func(ctx context.Context, addr string) (*big.Int, error) {
		r, err := u.agg.GetNativeBalance(ctx, []string{addr})
		if err != nil || len(r) == 0 {
			return nil, err
		}
		return r[0], nil
	}
	results, _ := batchread.Run(ctx, addresses, u.nativeSession, 2000, 1, 500, op, single, (*big.Int)(nil))
	for i, bal := range results {
		if bal == nil {
			continue
		}
		usd := weiToUSD(bal, 18, price)
		if usd > perTokenCapUSD {
			u.log.Warn("fundupdate: dropping over-cap native position", zap.String("address", addresses[i]), zap.Float64("usd", usd))
			continue
		}
		totals[addresses[i]] += usd
	}
	return nil
}

func (u *Updater) addTokenBalances(ctx context.Context, addresses []string, totals map[string]float64) error {
	for _, tok := range u.tokens {
		price, ok := u.prices.Lookup(tok.Symbol)
		if !ok || price <= 0 {
			continue
		}
		tokenAddr := tok.Address
		op := func(ctx context.Context, chunk []string) ([]*big.Int, error) {
			return u.agg.GetTokenBalance(ctx, chunk, []string{tokenAddr})
		}
		single := func(ctx context.Context, addr string) (*big.Int, error) {
			r, err := u.agg.GetTokenBalance(ctx, []string{addr}, []string{tokenAddr})
			if err != nil || len(r) == 0 {
				return nil, err
			}
			return r[0], nil
		}
		results, _ := batchread.Run(ctx, addresses, u.tokenSession, 2000, 1, 500, op, single, (*big.Int)(nil))
		for i, bal := range results {
			if bal == nil {
				continue
			}
			usd := weiToUSD(bal, tok.Decimals, price)
			if usd > perTokenCapUSD {
				u.log.Warn("fundupdate: dropping over-cap token position", zap.String("address", addresses[i]), zap.String("symbol", tok.Symbol), zap.Float64("usd", usd))
				continue
			}
			totals[addresses[i]] += usd
		}
	}
	return nil
}

func weiToUSD(amount *big.Int, decimals int, price float64) float64 {
	if amount == nil || amount.Sign() == 0 {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetFloat64(pow10(decimals))
	f.Quo(f, divisor)
	f.Mul(f, big.NewFloat(price))
	v, _ := f.Float64()
	return v
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
