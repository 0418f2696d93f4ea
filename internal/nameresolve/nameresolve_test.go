package nameresolve

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
	"github.com/kismp123/bugchainindexer-go/internal/explorer"
)

func TestResolveFillsVerifiedName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract X {}","ContractName":"Tether","Proxy":"0","Implementation":""}]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	r := New(explorer.New(cfg, zap.NewNop()), zap.NewNop())

	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Verified)
	assert.Equal(t, "Tether", out[0].ContractName)
	assert.False(t, out[0].IsProxy)
}

func TestResolveFollowsProxyImplementationForName(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"","ContractName":"","Proxy":"1","Implementation":"0xdef"}]}`))
			return
		}
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract Y {}","ContractName":"USDCImpl","Proxy":"0","Implementation":""}]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	r := New(explorer.New(cfg, zap.NewNop()), zap.NewNop())

	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsProxy)
	assert.Equal(t, "USDCImpl", out[0].ContractName)
	assert.Equal(t, 2, calls)
}

func TestResolveUnverifiedLeavesNameBlank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"","ContractName":"","Proxy":"0","Implementation":""}]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	r := New(explorer.New(cfg, zap.NewNop()), zap.NewNop())

	out, err := r.Resolve(context.Background(), []string{"0xabc"})
	require.NoError(t, err)
	assert.False(t, out[0].Verified)
	assert.Empty(t, out[0].ContractName)
}
