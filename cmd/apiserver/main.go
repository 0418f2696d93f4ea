// Command apiserver exposes the chi-routed address listing/detail API
// (spec §6) over internal/store.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/config"
	"github.com/kismp123/bugchainindexer-go/internal/httpapi"
	"github.com/kismp123/bugchainindexer-go/internal/metrics"
	"github.com/kismp123/bugchainindexer-go/internal/obslog"
	"github.com/kismp123/bugchainindexer-go/internal/ratecache"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

func main() {
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
		log.Fatal("apiserver: open db", zap.Error(err))
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		log.Fatal("apiserver: metrics registration failed", zap.Error(err))
	}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}

	cache := ratecache.New(cfg.RedisURL, log)
	router := httpapi.NewRouter(db, cache, log)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("apiserver: metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("apiserver: metrics serve failed", zap.Error(err))
		}
	}()

	log.Info("apiserver: listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("apiserver: serve failed", zap.Error(err))
	}
}
