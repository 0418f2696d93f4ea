// Command fundupdater refreshes native + ERC-20 USD fund values for a
// network's addresses in bulk (C10, spec §4.8), separate from the
// revalidator so an operator can run a full balance sweep without also
// re-resolving deployment timestamps.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/config"
	"github.com/kismp123/bugchainindexer-go/internal/metrics"
	"github.com/kismp123/bugchainindexer-go/internal/obslog"
	"github.com/kismp123/bugchainindexer-go/internal/runtime"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

func main() {
	tokensDir := flag.String("tokens-dir", "tokens", "directory of per-network token metadata JSON files")
	network := flag.String("network", "", "network to sweep (required)")
	pageSize := flag.Int("page-size", 500, "addresses fetched per page")
	flag.Parse()

	if *network == "" {
		os.Stderr.WriteString("fundupdater: -network is required\n")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := obslog.New(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("fundupdater: open db", zap.Error(err))
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		log.Fatal("fundupdater: metrics registration failed", zap.Error(err))
	}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		log.Info("fundupdater: metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("fundupdater: metrics serve failed", zap.Error(err))
		}
	}()
	defer metricsSrv.Close()

	registry := chainconfig.NewRegistry(chainconfig.Default14())
	netCfg, ok := registry.Get(*network)
	if !ok {
		log.Fatal("fundupdater: unknown network", zap.String("network", *network))
	}
	rt, err := runtime.New(ctx, netCfg, chainconfig.TierFree, db, *tokensDir, log)
	if err != nil {
		log.Fatal("fundupdater: runtime init failed", zap.Error(err))
	}

	if err := rt.Prices.Refresh(ctx); err != nil {
		log.Warn("fundupdater: price refresh failed", zap.Error(err))
	}

	var after *store.Cursor
	total := 0
	for {
		page, err := db.QueryAddresses(ctx, store.QueryFilter{
			Network: *network,
			Sort:    store.SortByFirstSeen,
			After:   after,
			Limit:   *pageSize,
		})
		if err != nil {
			log.Fatal("fundupdater: query page failed", zap.Error(err))
		}
		if len(page.Addresses) == 0 {
			break
		}

		addrs := make([]string, len(page.Addresses))
		for i, a := range page.Addresses {
			addrs[i] = a.Address
		}
		results, err := rt.FundUpdater.Update(ctx, addrs)
		if err != nil {
			log.Error("fundupdater: update failed", zap.Error(err))
		} else {
			now := store.Now()
			for _, r := range results {
				fund := r.FundUSD
				_ = db.UpsertAddress(ctx, store.UpsertPayload{
					Address: r.Address, Network: *network,
					FirstSeen: now, Fund: &fund, LastFundUpdated: &now,
				})
			}
		}

		total += len(addrs)
		last := page.Addresses[len(page.Addresses)-1]
		after = &store.Cursor{FirstSeen: &last.FirstSeen, Address: last.Address}

		if len(page.Addresses) < *pageSize {
			break
		}
	}

	log.Info("fundupdater: sweep complete", zap.Int("addresses", total))
}
