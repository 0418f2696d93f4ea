package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/ratecache"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

type fakeStore struct {
	result   store.QueryResult
	queryErr error
	addr     store.Address
	found    bool
	getErr   error
	count    int64
	countErr error
}

func (f *fakeStore) QueryAddresses(ctx context.Context, filt store.QueryFilter) (store.QueryResult, error) {
	return f.result, f.queryErr
}

func (f *fakeStore) GetAddress(ctx context.Context, address, network string) (store.Address, bool, error) {
	return f.addr, f.found, f.getErr
}

func (f *fakeStore) CountAddresses(ctx context.Context, network string) (int64, error) {
	return f.count, f.countErr
}

func noCache() *ratecache.Cache { return ratecache.New("", zap.NewNop()) }

func TestHealthzReturnsOK(t *testing.T) {
	r := NewRouter(&fakeStore{}, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAddressesReturnsJSON(t *testing.T) {
	fs := &fakeStore{result: store.QueryResult{Addresses: []store.Address{{Address: "0xabc", Network: "eth"}}}}
	r := NewRouter(fs, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses/?network=eth&limit=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got store.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Addresses, 1)
	assert.Equal(t, "0xabc", got.Addresses[0].Address)
}

func TestListAddressesIncludesTotalWhenRequested(t *testing.T) {
	fs := &fakeStore{result: store.QueryResult{Addresses: []store.Address{{Address: "0xabc", Network: "eth"}}}, count: 42}
	r := NewRouter(fs, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses/?network=eth&total=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got store.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Total)
	assert.Equal(t, int64(42), *got.Total)
}

func TestListAddressesPropagatesStoreError(t *testing.T) {
	fs := &fakeStore{queryErr: errors.New("db down")}
	r := NewRouter(fs, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetAddressFound(t *testing.T) {
	fs := &fakeStore{addr: store.Address{Address: "0xabc", Network: "eth"}, found: true}
	r := NewRouter(fs, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses/eth/0xabc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got store.Address
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "0xabc", got.Address)
}

func TestGetAddressNotFound(t *testing.T) {
	fs := &fakeStore{found: false}
	r := NewRouter(fs, noCache(), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses/eth/0xmissing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
