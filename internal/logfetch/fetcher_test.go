package logfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/jsonrpc"
	"github.com/kismp123/bugchainindexer-go/internal/rpcstate"
)

func testFetcher() *Fetcher {
	return &Fetcher{
		network: chainconfig.NetworkConfig{Name: "test"},
		profile: Profile{
			InitialBatchSize: 100, MinBatchSize: 10, MaxBatchSize: 1000,
			TargetDurationMs: 2000, TargetLogsPerRequest: 500,
			FastMultiplier: 1.5, SlowMultiplier: 0.5,
		},
	}
}

func TestAdjustBatchSizeShrinksOnOvershoot(t *testing.T) {
	f := testFetcher()
	next := f.adjustBatchSize(100, 3000, 100)
	assert.Equal(t, int64(50), next)
}

func TestAdjustBatchSizeGrowsOnComfortableUndershoot(t *testing.T) {
	f := testFetcher()
	next := f.adjustBatchSize(100, 500, 100)
	assert.Equal(t, int64(150), next)
}

func TestAdjustBatchSizeHoldsWithinRange(t *testing.T) {
	f := testFetcher()
	next := f.adjustBatchSize(100, 1800, 400)
	assert.Equal(t, int64(100), next)
}

func TestAdjustBatchSizeClampsToBounds(t *testing.T) {
	f := testFetcher()
	next := f.adjustBatchSize(900, 500, 100)
	assert.Equal(t, int64(1000), next, "clamped to MaxBatchSize")

	next = f.adjustBatchSize(15, 3000, 900)
	assert.Equal(t, int64(10), next, "clamped to MinBatchSize")
}

func TestTopicToAddress(t *testing.T) {
	topic := "0x000000000000000000000000dac17f958d2ee523a2206206994597c13d831ec7"
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", topicToAddress(topic))
}

type fakeDensityRepo struct {
	stats DensityStatsDTO
	saved DensityStatsDTO
}

func (f *fakeDensityRepo) LoadDensityStats(ctx context.Context, network string) (DensityStatsDTO, bool, error) {
	return f.stats, f.stats.TotalBlocks > 0, nil
}

func (f *fakeDensityRepo) SaveDensityStats(ctx context.Context, d DensityStatsDTO) error {
	f.saved = d
	return nil
}

func TestFetchWindowDecodesTransfersAndRecordsDensity(t *testing.T) {
	logJSON := `[{
		"address": "0xDAC17F958D2ee523a2206206994597C13D831ec7",
		"topics": ["` + transferTopic0.Hex() + `", "0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0x000000000000000000000000bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"],
		"data": "0x64",
		"blockNumber": "0x64",
		"transactionHash": "0xdeadbeef",
		"logIndex": "0x1"
	}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":` + logJSON + `}`))
	}))
	defer srv.Close()

	state := rpcstate.NewStore()
	rpc := jsonrpc.NewClient("eth", []string{srv.URL}, state, zap.NewNop())
	density := &fakeDensityRepo{}

	network := chainconfig.NetworkConfig{Name: "eth", BlockRangeCaps: map[chainconfig.Tier]int64{chainconfig.TierFree: 1000}}
	f := NewFetcher(context.Background(), network, chainconfig.TierFree, rpc, density, zap.NewNop())

	result, err := f.FetchWindow(context.Background(), 100, 200, 50)
	require.NoError(t, err)
	require.Len(t, result.Transfers, 1)

	tr := result.Transfers[0]
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", tr.Contract)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", tr.From)
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", tr.To)
	assert.Equal(t, uint64(100), tr.BlockNumber)
	assert.Equal(t, uint(1), tr.LogIndex)

	assert.Equal(t, int64(1), density.saved.TotalLogs)
	assert.Equal(t, int64(1), density.saved.SampleCount)
}

func TestFetchWindowShrinksOnRangedProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32000,"message":"query returned more than 10000 results"}}`))
	}))
	defer srv.Close()

	state := rpcstate.NewStore()
	rpc := jsonrpc.NewClient("eth", []string{srv.URL}, state, zap.NewNop())
	density := &fakeDensityRepo{}

	network := chainconfig.NetworkConfig{Name: "eth", BlockRangeCaps: map[chainconfig.Tier]int64{chainconfig.TierFree: 1000}}
	f := NewFetcher(context.Background(), network, chainconfig.TierFree, rpc, density, zap.NewNop())

	result, err := f.FetchWindow(context.Background(), 100, 2000, 500)
	require.NoError(t, err)
	assert.True(t, result.Shrunk)
	assert.Equal(t, uint64(100), result.ToBlock, "rejected range must not advance the cursor")
	assert.Less(t, result.NextBatch, int64(500))
}

func TestRecordDensityUsesEMATowardNewSample(t *testing.T) {
	f := testFetcher()
	f.network = chainconfig.NetworkConfig{Name: "eth"}
	density := &fakeDensityRepo{stats: DensityStatsDTO{TotalBlocks: 100, TotalLogs: 1000, AvgLogsPerBlock: 10, SampleCount: 1}}
	f.density = density

	f.recordDensity(context.Background(), 10, 0, 50)

	// sample = 0/10 = 0; EMA: 10 + (0-10)*0.2 = 8
	assert.InDelta(t, 8.0, density.saved.AvgLogsPerBlock, 0.0001)
	assert.Equal(t, int64(110), density.saved.TotalBlocks)
	assert.Equal(t, int64(1000), density.saved.TotalLogs)
}
