// Package runtime assembles one network's full component graph (C1-C12)
// into a single explicit value, per Design Notes row 4: "no ambient
// mutable globals — every component takes its dependencies through its
// constructor." cmd/* entrypoints build a Runtime per network and drive
// it; nothing in this package reaches for a package-level variable.
package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/batchread"
	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/deployres"
	"github.com/kismp123/bugchainindexer-go/internal/explorer"
	"github.com/kismp123/bugchainindexer-go/internal/fundupdate"
	"github.com/kismp123/bugchainindexer-go/internal/jsonrpc"
	"github.com/kismp123/bugchainindexer-go/internal/logfetch"
	"github.com/kismp123/bugchainindexer-go/internal/nameresolve"
	"github.com/kismp123/bugchainindexer-go/internal/obslog"
	"github.com/kismp123/bugchainindexer-go/internal/optimizer"
	"github.com/kismp123/bugchainindexer-go/internal/pricecache"
	"github.com/kismp123/bugchainindexer-go/internal/revalidate"
	"github.com/kismp123/bugchainindexer-go/internal/rpcstate"
	"github.com/kismp123/bugchainindexer-go/internal/scheduler"
	"github.com/kismp123/bugchainindexer-go/internal/store"
	"github.com/kismp123/bugchainindexer-go/internal/tokens"
)

// Runtime is the fully wired component graph for one network.
type Runtime struct {
	Network     string
	Config      chainconfig.NetworkConfig
	Log         *zap.Logger
	DB          *store.Pool
	RPC         *jsonrpc.Client
	Explorer    *explorer.Client
	Aggregator  *batchread.Aggregator
	Prices      *pricecache.Cache
	LogFetcher  *logfetch.Fetcher
	DeployRes   *deployres.Resolver
	FundUpdater *fundupdate.Updater
	Revalidator *revalidate.Revalidator
	Names       *nameresolve.Resolver
	Scheduler   *scheduler.Scheduler
}

// densityRepo adapts store.DensityStats to logfetch.DensityStatsDTO.
type densityRepo struct{ db *store.Pool }

func (r densityRepo) LoadDensityStats(ctx context.Context, network string) (logfetch.DensityStatsDTO, bool, error) {
	d, ok, err := r.db.LoadDensityStats(ctx, network)
	if err != nil || !ok {
		return logfetch.DensityStatsDTO{}, ok, err
	}
	return logfetch.DensityStatsDTO{
		Network: d.Network, AvgLogsPerBlock: d.AvgLogsPerBlock, TotalBlocks: d.TotalBlocks,
		TotalLogs: d.TotalLogs, SampleCount: d.SampleCount, OptimalBatchSize: d.OptimalBatchSize,
		RecommendedProfile: d.RecommendedProfile, LastUpdated: d.LastUpdated,
	}, true, nil
}
func (r densityRepo) SaveDensityStats(ctx context.Context, d logfetch.DensityStatsDTO) error {
	return r.db.SaveDensityStats(ctx, store.DensityStats{
		Network: d.Network, AvgLogsPerBlock: d.AvgLogsPerBlock, TotalBlocks: d.TotalBlocks,
		TotalLogs: d.TotalLogs, SampleCount: d.SampleCount, OptimalBatchSize: d.OptimalBatchSize,
		RecommendedProfile: d.RecommendedProfile, LastUpdated: d.LastUpdated,
	})
}

// New builds a Runtime for one network, resolving discovered helper
// addresses over the static config (chainconfig.ResolveHelpers) before
// constructing the aggregator.
func New(ctx context.Context, cfg chainconfig.NetworkConfig, tier chainconfig.Tier, db *store.Pool, tokensDir string, baseLog *zap.Logger) (*Runtime, error) {
	log := obslog.Named(baseLog, cfg.Name)

	sched := scheduler.New()

	state := rpcstate.NewStore()
	rpc := jsonrpc.NewClient(cfg.Name, cfg.RPCURLs, state, log).WithScheduler(sched.RPC)

	discoveredBalance, _, err := db.LoadDiscoveredHelper(ctx, cfg.Name, store.HelperBalanceHelper)
	if err != nil {
		return nil, fmt.Errorf("runtime: load balance helper: %w", err)
	}
	discoveredValidator, _, err := db.LoadDiscoveredHelper(ctx, cfg.Name, store.HelperContractValidator)
	if err != nil {
		return nil, fmt.Errorf("runtime: load contract validator: %w", err)
	}
	helpers := cfg.ResolveHelpers(discoveredBalance, discoveredValidator)

	agg, err := batchread.NewAggregator(rpc, helpers.BalanceHelper, helpers.ContractValidator)
	if err != nil {
		return nil, fmt.Errorf("runtime: build aggregator: %w", err)
	}

	exp := explorer.New(cfg, log).WithScheduler(sched.Explorer)

	prices := pricecache.New(db)
	if err := prices.Refresh(ctx); err != nil {
		log.Warn("runtime: initial price refresh failed", zap.Error(err))
	}

	optMgr := optimizer.NewManager(db)
	nativeSession, err := optMgr.Get(ctx, cfg.Name, optimizer.OpNativeBalance)
	if err != nil {
		return nil, err
	}
	tokenSession, err := optMgr.Get(ctx, cfg.Name, optimizer.OpERC20)
	if err != nil {
		return nil, err
	}

	fetcher := logfetch.NewFetcher(ctx, cfg, tier, rpc, densityRepo{db: db}, log)

	resolver := deployres.New(cfg, exp, rpc, log)

	toks, err := tokens.Load(tokensDir, cfg.Name)
	if err != nil {
		log.Warn("runtime: token list load failed", zap.Error(err))
	}
	updater := fundupdate.New(cfg, agg, prices, toks, nativeSession, tokenSession, log)

	names := nameresolve.New(exp, log)
	reval := revalidate.New(cfg.Name, db, agg, names, resolver, updater, log)

	return &Runtime{
		Network: cfg.Name, Config: cfg, Log: log, DB: db, RPC: rpc,
		Explorer: exp, Aggregator: agg, Prices: prices, LogFetcher: fetcher,
		DeployRes: resolver, FundUpdater: updater, Revalidator: reval,
		Names: names, Scheduler: sched,
	}, nil
}
