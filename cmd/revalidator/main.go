// Command revalidator periodically re-resolves deployment time and fund
// value for stale (standard mode) or newly-seen (recent mode) addresses
// (C11, spec §4.9).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/config"
	"github.com/kismp123/bugchainindexer-go/internal/metrics"
	"github.com/kismp123/bugchainindexer-go/internal/obslog"
	"github.com/kismp123/bugchainindexer-go/internal/revalidate"
	"github.com/kismp123/bugchainindexer-go/internal/runtime"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

func main() {
	tokensDir := flag.String("tokens-dir", "tokens", "directory of per-network token metadata JSON files")
	mode := flag.String("mode", "recent", "revalidation mode: standard or recent")
	force := flag.Bool("force", false, "bypass the recent-mode time window")
	limit := flag.Int("limit", 200, "max addresses per revalidation pass")
	flag.Parse()

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
		log.Fatal("revalidator: open db", zap.Error(err))
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		log.Fatal("revalidator: metrics registration failed", zap.Error(err))
	}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		log.Info("revalidator: metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("revalidator: metrics serve failed", zap.Error(err))
		}
	}()

	revalMode := revalidate.ModeRecent
	if *mode == "standard" {
		revalMode = revalidate.ModeStandard
	}

	registry := chainconfig.NewRegistry(chainconfig.Default14())
	runtimes := make([]*runtime.Runtime, 0, len(cfg.Networks))
	for _, name := range cfg.Networks {
		netCfg, ok := registry.Get(name)
		if !ok {
			continue
		}
		rt, err := runtime.New(ctx, netCfg, chainconfig.TierFree, db, *tokensDir, log)
		if err != nil {
			log.Error("revalidator: runtime init failed", zap.String("network", name), zap.Error(err))
			continue
		}
		runtimes = append(runtimes, rt)
	}

	go func() {
		contractsTicker := time.NewTicker(24 * time.Hour)
		defer contractsTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = metricsSrv.Shutdown(shutdownCtx)
				cancel()
				return
			case <-contractsTicker.C:
				if err := db.RefreshDistinctContracts(ctx); err != nil {
					log.Warn("revalidator: refresh distinct contracts failed", zap.Error(err))
				}
			}
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		for _, rt := range runtimes {
			patched, err := rt.Revalidator.Run(ctx, revalMode, *limit, *force)
			if err != nil {
				rt.Log.Warn("revalidator: pass failed", zap.Error(err))
				continue
			}
			rt.Log.Info("revalidator: pass complete", zap.Int("patched", patched))
		}
		if err := db.RefreshNetworkCounts(ctx); err != nil {
			log.Warn("revalidator: refresh network counts failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
