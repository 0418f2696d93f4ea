package chainconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHelpersPrefersDiscoveredOverStatic(t *testing.T) {
	n := NetworkConfig{Helpers: HelperAddresses{BalanceHelper: "0xstatic", ContractValidator: "0xstaticval"}}

	h := n.ResolveHelpers("0xdiscovered", "")
	assert.Equal(t, "0xdiscovered", h.BalanceHelper)
	assert.Equal(t, "0xstaticval", h.ContractValidator, "empty discovered value leaves static untouched")
}

func TestBlockRangeCapFallsBackToFree(t *testing.T) {
	n := NetworkConfig{BlockRangeCaps: map[Tier]int64{TierFree: 10}}
	assert.Equal(t, int64(10), n.BlockRangeCap(TierPayg))
	assert.Equal(t, int64(10), n.BlockRangeCap(TierFree))
}

func TestBlockRangeCapUsesConfiguredTier(t *testing.T) {
	n := NetworkConfig{BlockRangeCaps: map[Tier]int64{TierFree: 10, TierPayg: 2000}}
	assert.Equal(t, int64(2000), n.BlockRangeCap(TierPayg))
}

func TestRegistryGetAndNames(t *testing.T) {
	r := NewRegistry([]NetworkConfig{{Name: "ethereum"}, {Name: "bsc"}})
	_, ok := r.Get("polygon")
	assert.False(t, ok)

	cfg, ok := r.Get("ethereum")
	require.True(t, ok)
	assert.Equal(t, "ethereum", cfg.Name)

	names := r.Names()
	assert.ElementsMatch(t, []string{"ethereum", "bsc"}, names)
}

func TestWithRPCOverrideReplacesURLsAndLeavesOriginalRegistryUntouched(t *testing.T) {
	r := NewRegistry([]NetworkConfig{{Name: "ethereum", RPCURLs: []string{"https://a"}}})
	overridden := r.WithRPCOverride("ethereum", "https://b, https://c")

	cfg, _ := overridden.Get("ethereum")
	assert.Equal(t, []string{"https://b", "https://c"}, cfg.RPCURLs)

	original, _ := r.Get("ethereum")
	assert.Equal(t, []string{"https://a"}, original.RPCURLs, "original registry must be unchanged (copy-on-write)")
}

func TestWithRPCOverrideUnknownNetworkIsNoop(t *testing.T) {
	r := NewRegistry([]NetworkConfig{{Name: "ethereum"}})
	out := r.WithRPCOverride("nonexistent", "https://a")
	assert.Equal(t, r, out)
}

func TestWithRPCOverrideEmptyStringIsNoop(t *testing.T) {
	r := NewRegistry([]NetworkConfig{{Name: "ethereum", RPCURLs: []string{"https://a"}}})
	out := r.WithRPCOverride("ethereum", "   ")
	cfg, _ := out.Get("ethereum")
	assert.Equal(t, []string{"https://a"}, cfg.RPCURLs)
}

func TestSplitURLListHandlesMixedSeparators(t *testing.T) {
	got := splitURLList("https://a, https://b\thttps://c\n https://d")
	assert.Equal(t, []string{"https://a", "https://b", "https://c", "https://d"}, got)
}

func TestDefault14SeedDataIsSane(t *testing.T) {
	networks := Default14()
	require.NotEmpty(t, networks)
	seen := map[string]bool{}
	for _, n := range networks {
		assert.NotEmpty(t, n.Name)
		assert.NotZero(t, n.ChainID)
		assert.NotEmpty(t, n.RPCURLs)
		assert.NotEmpty(t, n.NativeSymbol)
		assert.NotZero(t, n.BlockRangeCaps[TierFree])
		assert.False(t, seen[n.Name], "duplicate network name %s", n.Name)
		seen[n.Name] = true
	}
}
