package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/rpcstate"
)

func TestRedactTruncatesLongURLs(t *testing.T) {
	long := "https://mainnet.infura.io/v3/abcdef0123456789secret"
	got := redact(long)
	assert.Len(t, got, 27) // 24 chars + "..."
	assert.NotContains(t, got, "secret")
}

func TestRedactLeavesShortURLsAlone(t *testing.T) {
	short := "http://localhost:8545"
	assert.Equal(t, short, redact(short))
}

func TestOrderedEndpointsExcludesFailedAndPutsFastFirst(t *testing.T) {
	state := rpcstate.NewStore()
	endpoints := []string{"a", "b", "c"}
	state.MarkSlow("eth", "b")
	state.MarkPermanentlyFailed("eth", "c")

	c := NewClient("eth", endpoints, state, zap.NewNop())
	ordered := c.orderedEndpoints()
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0], "fast endpoint must come before slow")
	assert.Equal(t, "b", ordered[1])
}

func TestOrderedEndpointsResetsWhenAllFailed(t *testing.T) {
	state := rpcstate.NewStore()
	endpoints := []string{"a"}
	state.MarkPermanentlyFailed("eth", "a")

	c := NewClient("eth", endpoints, state, zap.NewNop())
	ordered := c.orderedEndpoints()
	require.Len(t, ordered, 1, "should fall back to resetting permanent failures rather than returning none")
	assert.Equal(t, "a", ordered[0])
}

func TestCallSucceedsOnFirstEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":"0x1"}`))
	}))
	defer srv.Close()

	state := rpcstate.NewStore()
	c := NewClient("eth", []string{srv.URL}, state, zap.NewNop())
	result, err := c.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, `"0x1"`, string(result))
}

func TestCallRotatesPastFailingEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":"0x2"}`))
	}))
	defer good.Close()

	state := rpcstate.NewStore()
	// force selection order: good marked slow so the failing endpoint is
	// tried first and the client has to rotate past it.
	state.MarkSlow("eth", good.URL)
	c := NewClient("eth", []string{bad.URL, good.URL}, state, zap.NewNop())
	result, err := c.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, `"0x2"`, string(result))
}
