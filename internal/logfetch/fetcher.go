package logfetch

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/jsonrpc"
	"github.com/kismp123/bugchainindexer-go/internal/metrics"
)

// transferEventABI is the single-event ABI fragment used to compute
// topic0, the same idiom geth-09-events_solution uses via
// abi.Events["Transfer"].ID rather than hardcoding the hash.
const transferEventABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var transferTopic0 common.Hash

func init() {
	parsed, err := abi.JSON(strings.NewReader(transferEventABI))
	if err != nil {
		panic(err)
	}
	transferTopic0 = parsed.Events["Transfer"].ID
}

// Transfer is a decoded ERC-20 Transfer log (geth-17-indexer idiom).
type Transfer struct {
	Contract    string
	From        string
	To          string
	Value       *big.Int
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
}

// DensityRepository persists NetworkLogDensityStats rows (spec §4.6 step 4).
type DensityRepository interface {
	LoadDensityStats(ctx context.Context, network string) (DensityStatsDTO, bool, error)
	SaveDensityStats(ctx context.Context, d DensityStatsDTO) error
}

// DensityStatsDTO mirrors store.DensityStats without importing internal/store
// directly, keeping logfetch a leaf package the runtime wires.
type DensityStatsDTO struct {
	Network            string
	AvgLogsPerBlock    float64
	TotalBlocks        int64
	TotalLogs          int64
	SampleCount        int64
	OptimalBatchSize   int
	RecommendedProfile string
	LastUpdated        int64
}

// Fetcher runs the rolling-window adaptive eth_getLogs loop for one
// network (spec §4.6).
type Fetcher struct {
	network  chainconfig.NetworkConfig
	tier     chainconfig.Tier
	rpc      *jsonrpc.Client
	density  DensityRepository
	log      *zap.Logger
	profile  Profile
}

// NewFetcher builds a Fetcher, applying a persisted density-stats override
// to InitialBatchSize when one exists (spec §4.6 step 4: "a prior run's
// measured density can override the cold-start initial batch size").
func NewFetcher(ctx context.Context, network chainconfig.NetworkConfig, tier chainconfig.Tier, rpc *jsonrpc.Client, density DensityRepository, log *zap.Logger) *Fetcher {
	profile := ResolveProfile(network.Activity, tier)
	if density != nil {
		if d, ok, err := density.LoadDensityStats(ctx, network.Name); err == nil && ok && d.OptimalBatchSize > 0 {
			profile.OriginalInitial = profile.InitialBatchSize
			profile.InitialBatchSize = int64(d.OptimalBatchSize)
			profile.DynamicallyTuned = true
		}
	}
	return &Fetcher{network: network, tier: tier, rpc: rpc, density: density, log: log, profile: profile}
}

// Result is one window's outcome, handed back to the caller so it can
// advance its own cursor and accumulate density samples.
type Result struct {
	Transfers  []Transfer
	FromBlock  uint64
	ToBlock    uint64
	DurationMs float64
	NextBatch  int64 // the batch size the caller should use for the next window
	Shrunk     bool  // true if this window returned no logs because the provider rejected the range; caller should not advance fromBlock
}

// rangedLogsErrorFragments are the provider error-message substrings that
// mean "this block range is too large for eth_getLogs", distinct from a
// transient network failure. Collected from the teacher's provider-error
// idiom generalized across Alchemy/Infura/QuickNode wording.
var rangedLogsErrorFragments = []string{
	"query returned more than",
	"block range is too large",
	"exceed maximum block range",
	"range is too wide",
	"limit exceeded",
	"response size should not greater than",
}

func isRangedLogsError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range rangedLogsErrorFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// FetchWindow pulls Transfer logs for addresses in [fromBlock, fromBlock+batchSize]
// capped at the chain head and the provider-tier block-range cap, then
// adjusts batchSize toward the profile's target duration/log-count for the
// next call (spec §4.6 steps 1-3).
func (f *Fetcher) FetchWindow(ctx context.Context, fromBlock, chainHead uint64, batchSize int64) (Result, error) {
	cap := f.network.BlockRangeCap(f.tier)
	if batchSize > cap {
		batchSize = cap
	}
	if batchSize < f.profile.MinBatchSize {
		batchSize = f.profile.MinBatchSize
	}
	toBlock := fromBlock + uint64(batchSize)
	if toBlock > chainHead {
		toBlock = chainHead
	}

	// Watchdog: a getLogs call still running after getLogsWatchdog is
	// abandoned and the RPC client is forced onto its next endpoint.
	const getLogsWatchdog = 120 * time.Second
	wctx, cancel := context.WithTimeout(ctx, getLogsWatchdog)
	watchdog := time.AfterFunc(getLogsWatchdog, f.rpc.ForceNextRPC)
	start := time.Now()
	logs, err := jsonrpc.GetLogs(wctx, f.rpc, jsonrpc.LogFilter{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Topics:    [][]string{{transferTopic0.Hex()}},
	})
	watchdog.Stop()
	cancel()
	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		if isRangedLogsError(err) {
			next := int64(float64(batchSize) * f.profile.SlowMultiplier)
			if next < f.profile.MinBatchSize {
				next = f.profile.MinBatchSize
			}
			return Result{
				FromBlock:  fromBlock,
				ToBlock:    fromBlock, // range rejected outright: caller must not advance past fromBlock
				DurationMs: durationMs,
				NextBatch:  next,
				Shrunk:     true,
			}, nil
		}
		return Result{}, err
	}

	transfers := make([]Transfer, 0, len(logs))
	for _, l := range logs {
		t, ok := decodeTransfer(l)
		if ok {
			transfers = append(transfers, t)
		}
	}
	metrics.LogsFetched.WithLabelValues(f.network.Name).Add(float64(len(transfers)))

	next := f.adjustBatchSize(batchSize, durationMs, int64(len(logs)))
	if f.density != nil {
		f.recordDensity(ctx, toBlock-fromBlock+1, int64(len(logs)), next)
	}

	return Result{
		Transfers:  transfers,
		FromBlock:  fromBlock,
		ToBlock:    toBlock,
		DurationMs: durationMs,
		NextBatch:  next,
	}, nil
}

// adjustBatchSize implements spec §4.6 step 3: shrink on overshoot of
// either the duration or log-count target, grow on comfortable undershoot
// of both, using the profile's Fast/SlowMultiplier.
func (f *Fetcher) adjustBatchSize(current int64, durationMs float64, logCount int64) int64 {
	p := f.profile
	overDuration := durationMs > p.TargetDurationMs
	overLogs := logCount > p.TargetLogsPerRequest
	next := current
	switch {
	case overDuration || overLogs:
		next = int64(float64(current) * p.SlowMultiplier)
	case durationMs < p.TargetDurationMs*0.5 && logCount < p.TargetLogsPerRequest/2:
		next = int64(float64(current) * p.FastMultiplier)
	}
	if next < p.MinBatchSize {
		next = p.MinBatchSize
	}
	if next > p.MaxBatchSize {
		next = p.MaxBatchSize
	}
	return next
}

// densityAlpha is the EMA smoothing factor for avgLogsPerBlock (spec
// §4.6 step 4): low enough that one noisy window doesn't swing the
// recommended batch size, high enough to track a real density shift
// within a handful of windows.
const densityAlpha = 0.2

func (f *Fetcher) recordDensity(ctx context.Context, blocks, logs, optimalBatch int64) {
	prev, hasPrior, _ := f.density.LoadDensityStats(ctx, f.network.Name)
	totalBlocks := prev.TotalBlocks + blocks
	totalLogs := prev.TotalLogs + logs

	sample := 0.0
	if blocks > 0 {
		sample = float64(logs) / float64(blocks)
	}
	avg := sample
	if hasPrior {
		avg = prev.AvgLogsPerBlock + (sample-prev.AvgLogsPerBlock)*densityAlpha
	}

	_ = f.density.SaveDensityStats(ctx, DensityStatsDTO{
		Network:            f.network.Name,
		AvgLogsPerBlock:    avg,
		TotalBlocks:        totalBlocks,
		TotalLogs:          totalLogs,
		SampleCount:        prev.SampleCount + 1,
		OptimalBatchSize:   int(optimalBatch),
		RecommendedProfile: string(f.network.Activity),
		LastUpdated:        time.Now().Unix(),
	})
}

func decodeTransfer(l jsonrpc.Log) (Transfer, bool) {
	if len(l.Topics) < 3 {
		return Transfer{}, false
	}
	value := new(big.Int)
	if len(l.Data) >= 2 {
		value.SetString(strings.TrimPrefix(l.Data, "0x"), 16)
	}
	return Transfer{
		Contract:    strings.ToLower(l.Address),
		From:        strings.ToLower(topicToAddress(l.Topics[1])),
		To:          strings.ToLower(topicToAddress(l.Topics[2])),
		Value:       value,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TransactionHash,
		LogIndex:    l.LogIndex,
	}, true
}

func topicToAddress(topic string) string {
	t := strings.TrimPrefix(topic, "0x")
	if len(t) < 40 {
		return "0x" + t
	}
	return "0x" + t[len(t)-40:]
}
