package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
)

func TestRequestUnifiedModeSetsChainID(t *testing.T) {
	var gotChainID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotChainID = r.URL.Query().Get("chainid")
		w.Write([]byte(`{"status":"1","message":"OK","result":"ok"}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerUnified, ExplorerBaseURL: srv.URL, ExplorerChainID: 1}
	c := New(cfg, zap.NewNop())
	result, err := c.Request(context.Background(), "account", "balance", map[string]string{"address": "0xABC"})
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(result))
	assert.Equal(t, "1", gotChainID)
}

func TestRequestDedicatedModeOmitsChainID(t *testing.T) {
	var sawChainID bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chainid") != "" {
			sawChainID = true
		}
		w.Write([]byte(`{"status":"1","message":"OK","result":"ok"}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	c := New(cfg, zap.NewNop())
	_, err := c.Request(context.Background(), "account", "balance", map[string]string{"address": "0xABC"})
	require.NoError(t, err)
	assert.False(t, sawChainID)
}

func TestRequestLowercasesAddressParams(t *testing.T) {
	var gotAddr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddr = r.URL.Query().Get("address")
		w.Write([]byte(`{"status":"1","message":"OK","result":"ok"}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	c := New(cfg, zap.NewNop())
	_, err := c.Request(context.Background(), "account", "balance", map[string]string{"address": "0xABCDEF"})
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef", gotAddr)
}

func TestRequestNoDataIsNilNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No records found","result":[]}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	c := New(cfg, zap.NewNop())
	result, err := c.Request(context.Background(), "account", "txlist", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRequestHardErrorIsRetryableAndCancellable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"status":"0","message":"something broke"}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	c := New(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Request(ctx, "account", "balance", nil)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1), "the first attempt must still hit the server before backoff kicks in")
}

func TestRequestProxyFallsBackToDirectOnUnreachableProxy(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":"direct-ok"}`))
	}))
	defer direct.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: direct.URL}
	c := New(cfg, zap.NewNop())
	c.proxyURL = "http://127.0.0.1:1" // nothing listening; connection refused

	result, err := c.Request(context.Background(), "account", "balance", nil)
	require.NoError(t, err)
	assert.Equal(t, `"direct-ok"`, string(result))
}

func TestRequestProxyModeBareJSONRPCShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"0x10"}`))
	}))
	defer srv.Close()

	cfg := chainconfig.NetworkConfig{Name: "eth", ExplorerMode: chainconfig.ExplorerDedicated, ExplorerBaseURL: srv.URL}
	c := New(cfg, zap.NewNop())
	result, err := c.Request(context.Background(), "proxy", "eth_getCode", map[string]string{"address": "0xABC"})
	require.NoError(t, err)
	assert.Equal(t, `"0x10"`, string(result))
}
