package deployres

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/explorer"
)

// fakeCaller is a minimal jsonrpc.Caller stub for tests that don't need a
// real RPC endpoint.
type fakeCaller struct {
	responses map[string]json.RawMessage
}

func (f *fakeCaller) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return f.responses[method], nil
}

func TestResolveGenesisMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"contractAddress":"0xabc","txHash":"GENESIS","blockNumber":"0"}]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL, GenesisUnix: 1438269973}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)
	rpc := &fakeCaller{responses: map[string]json.RawMessage{}}

	r := New(cfg, exp, rpc, log)
	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsGenesis)
	require.NotNil(t, out[0].Timestamp)
	assert.Equal(t, int64(1438269973), *out[0].Timestamp)
}

func TestResolveFallbackDetectsEOA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No data found","result":[]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)
	codeResp, _ := json.Marshal("0x")
	rpc := &fakeCaller{responses: map[string]json.RawMessage{"eth_getCode": codeResp}}

	r := New(cfg, exp, rpc, log)
	out, err := r.Resolve(context.Background(), []string{"0xdef"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsEOA)
	assert.Nil(t, out[0].Timestamp)
}

func TestResolveFallsBackToBlockTimestampWhenExplorerOmitsIt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"contractAddress":"0xabc","txHash":"0xdeadbeef","blockNumber":"100"}]}`))
	}))
	defer srv.Close()

	txResp, _ := json.Marshal(map[string]string{"blockNumber": "0x64"})
	blkResp, _ := json.Marshal(map[string]string{"timestamp": "0x55ba4215"})
	rpc := &fakeCaller{responses: map[string]json.RawMessage{
		"eth_getTransactionByHash": txResp,
		"eth_getBlockByNumber":     blkResp,
	}}

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)

	r := New(cfg, exp, rpc, log)
	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	require.NotNil(t, out[0].Timestamp)
	assert.Equal(t, int64(1438269973), *out[0].Timestamp)
	assert.False(t, out[0].IsGenesis)
}

func TestResolveChunksAddressesIntoBatchesOfFive(t *testing.T) {
	var gotBatches [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		addrs := r.Form.Get("contractaddresses")
		gotBatches = append(gotBatches, strings.Split(addrs, ","))
		w.Write([]byte(`{"status":"0","message":"No data found","result":[]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)
	codeResp, _ := json.Marshal("0x")
	rpc := &fakeCaller{responses: map[string]json.RawMessage{"eth_getCode": codeResp}}

	r := New(cfg, exp, rpc, log)
	addrs := []string{"0x1", "0x2", "0x3", "0x4", "0x5", "0x6", "0x7"}
	out, err := r.Resolve(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, out, 7)
	require.Len(t, gotBatches, 2)
	assert.Len(t, gotBatches[0], 5)
	assert.Len(t, gotBatches[1], 2)
}

func TestResolveWithFirstSeenFallsBackToFirstSeenForUnindexedContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No data found","result":[]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)
	codeResp, _ := json.Marshal("0x6080")
	rpc := &fakeCaller{responses: map[string]json.RawMessage{"eth_getCode": codeResp}}

	r := New(cfg, exp, rpc, log)
	out, err := r.ResolveWithFirstSeen(context.Background(), []string{"0xabc"}, map[string]int64{"0xabc": 1600000000})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].IsEOA)
	require.NotNil(t, out[0].Timestamp)
	assert.Equal(t, int64(1600000000), *out[0].Timestamp)
}

func TestResolveUsesExplorerTimestampDirectly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"contractAddress":"0xabc","txHash":"0x1","timestamp":"1700000000"}]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	log := zap.NewNop()
	exp := explorer.New(cfg, log)
	rpc := &fakeCaller{}

	r := New(cfg, exp, rpc, log)
	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	require.NotNil(t, out[0].Timestamp)
	assert.Equal(t, int64(1700000000), *out[0].Timestamp)
}
