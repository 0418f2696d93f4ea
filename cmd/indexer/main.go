// Command indexer runs the adaptive log-fetch pipeline (C7) against every
// configured network: pull Transfer logs in a rolling window and upsert
// the addresses they name with first_seen only; this loop does not
// classify them (EOA vs contract). Flag/env-driven startup in the
// teacher's cmd/*/main.go idiom, not a cobra/urfave CLI (out of scope per
// spec §1).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/config"
	"github.com/kismp123/bugchainindexer-go/internal/jsonrpc"
	"github.com/kismp123/bugchainindexer-go/internal/obslog"
	"github.com/kismp123/bugchainindexer-go/internal/runtime"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

func main() {
	tokensDir := flag.String("tokens-dir", "tokens", "directory of per-network token metadata JSON files")
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
		log.Fatal("indexer: open db", zap.Error(err))
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal("indexer: ensure schema", zap.Error(err))
	}

	registry := chainconfig.NewRegistry(chainconfig.Default14())

	for _, name := range cfg.Networks {
		netCfg, ok := registry.Get(name)
		if !ok {
			log.Warn("indexer: unknown network, skipping", zap.String("network", name))
			continue
		}
		rt, err := runtime.New(ctx, netCfg, chainconfig.TierFree, db, *tokensDir, log)
		if err != nil {
			log.Error("indexer: runtime init failed", zap.String("network", name), zap.Error(err))
			continue
		}
		go runIndexLoop(ctx, rt)
	}

	<-ctx.Done()
	log.Info("indexer: shutting down")
}

func runIndexLoop(ctx context.Context, rt *runtime.Runtime) {
	head, err := jsonrpc.GetBlockNumber(ctx, rt.RPC)
	if err != nil {
		rt.Log.Error("indexer: initial head lookup failed", zap.Error(err))
		return
	}
	from := head
	if rt.Config.GenesisUnix != 0 && head > 100_000 {
		from = head - 100_000
	} else {
		from = 0
	}

	batch := int64(100)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		head, err := jsonrpc.GetBlockNumber(ctx, rt.RPC)
		if err != nil {
			rt.Log.Warn("indexer: head lookup failed", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}
		if from >= head {
			time.Sleep(10 * time.Second)
			continue
		}

		result, err := rt.LogFetcher.FetchWindow(ctx, from, head, batch)
		if err != nil {
			rt.Log.Warn("indexer: fetch window failed", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if result.Shrunk {
			rt.Log.Info("indexer: provider rejected range, shrinking batch", zap.Int64("next_batch", result.NextBatch))
			batch = result.NextBatch
			continue
		}

		now := store.Now()
		for _, t := range result.Transfers {
			for _, addr := range []string{t.From, t.To, t.Contract} {
				if addr == "" || addr == "0x0000000000000000000000000000000000000000" {
					continue
				}
				_ = rt.DB.UpsertAddress(ctx, store.UpsertPayload{
					Address:   addr,
					Network:   rt.Network,
					FirstSeen: now,
				})
			}
		}

		from = result.ToBlock + 1
		batch = result.NextBatch
	}
}
