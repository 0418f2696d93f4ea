package logfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kismp123/bugchainindexer-go/internal/chainconfig"
)

func TestResolveProfileExactMatch(t *testing.T) {
	p := ResolveProfile(chainconfig.ActivityUltraHigh, chainconfig.TierFree)
	assert.Equal(t, int64(8), p.InitialBatchSize)
}

func TestResolveProfileFoldsGrowthAndPremiumToPayg(t *testing.T) {
	payg := ResolveProfile(chainconfig.ActivityHigh, chainconfig.TierPayg)
	growth := ResolveProfile(chainconfig.ActivityHigh, chainconfig.TierGrowth)
	premium := ResolveProfile(chainconfig.ActivityHigh, chainconfig.TierPremium)
	assert.Equal(t, payg, growth)
	assert.Equal(t, payg, premium)
}

func TestResolveProfileFallsBackToMediumFree(t *testing.T) {
	p := ResolveProfile("unknown-activity", "unknown-tier")
	assert.Equal(t, profiles[profileKey{chainconfig.ActivityMedium, chainconfig.TierFree}], p)
}
