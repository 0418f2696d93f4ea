// Package logfetch implements the Adaptive Log Fetcher (C7, spec §4.6):
// rolling-window eth_getLogs fetch with per-request adjustment converging
// on a target duration and target log count, subject to provider-tier
// caps. Grounded on geth-09-events_solution/geth-10-filters_solution
// (topic0 via abi.Events["Transfer"].ID + ethereum.FilterQuery) and
// geth-17-indexer (ERC-20 Transfer ABI + log decode), generalized from
// the teacher's static -from/-to flags into a converging window
// controller.
package logfetch

import "github.com/kismp123/bugchainindexer-go/internal/chainconfig"

// Profile is a LogsOptimizationProfile row (spec §3.1): the ten rows below
// cover the cross product of activity x {free, payg} and are the seed data
// for the default 14-network deployment; growth and premium tiers resolve
// to the payg rows.
type Profile struct {
	InitialBatchSize     int64
	MinBatchSize         int64
	MaxBatchSize         int64
	TargetDurationMs     float64
	TargetLogsPerRequest int64
	FastMultiplier       float64
	SlowMultiplier       float64

	// DynamicallyTuned and OriginalInitial are set at runtime when a
	// NetworkLogDensityStats row overrides InitialBatchSize (spec §4.6
	// step 4).
	DynamicallyTuned bool
	OriginalInitial  int64
}

type profileKey struct {
	activity chainconfig.Activity
	tier     chainconfig.Tier
}

var profiles = map[profileKey]Profile{
	{chainconfig.ActivityUltraHigh, chainconfig.TierFree}:  {InitialBatchSize: 8, MinBatchSize: 2, MaxBatchSize: 10, TargetDurationMs: 1500, TargetLogsPerRequest: 400, FastMultiplier: 1.3, SlowMultiplier: 0.5},
	{chainconfig.ActivityUltraHigh, chainconfig.TierPayg}:  {InitialBatchSize: 500, MinBatchSize: 50, MaxBatchSize: 2000, TargetDurationMs: 2000, TargetLogsPerRequest: 2000, FastMultiplier: 1.5, SlowMultiplier: 0.5},
	{chainconfig.ActivityHigh, chainconfig.TierFree}:       {InitialBatchSize: 10, MinBatchSize: 2, MaxBatchSize: 10, TargetDurationMs: 1500, TargetLogsPerRequest: 300, FastMultiplier: 1.3, SlowMultiplier: 0.5},
	{chainconfig.ActivityHigh, chainconfig.TierPayg}:       {InitialBatchSize: 800, MinBatchSize: 50, MaxBatchSize: 2500, TargetDurationMs: 2000, TargetLogsPerRequest: 1500, FastMultiplier: 1.6, SlowMultiplier: 0.5},
	{chainconfig.ActivityMedium, chainconfig.TierFree}:     {InitialBatchSize: 10, MinBatchSize: 2, MaxBatchSize: 10, TargetDurationMs: 1500, TargetLogsPerRequest: 200, FastMultiplier: 1.5, SlowMultiplier: 0.5},
	{chainconfig.ActivityMedium, chainconfig.TierPayg}:     {InitialBatchSize: 1200, MinBatchSize: 100, MaxBatchSize: 3500, TargetDurationMs: 2000, TargetLogsPerRequest: 1000, FastMultiplier: 1.8, SlowMultiplier: 0.5},
	{chainconfig.ActivityLow, chainconfig.TierFree}:        {InitialBatchSize: 10, MinBatchSize: 2, MaxBatchSize: 10, TargetDurationMs: 1200, TargetLogsPerRequest: 100, FastMultiplier: 1.8, SlowMultiplier: 0.6},
	{chainconfig.ActivityLow, chainconfig.TierPayg}:        {InitialBatchSize: 2000, MinBatchSize: 200, MaxBatchSize: 5000, TargetDurationMs: 2000, TargetLogsPerRequest: 500, FastMultiplier: 2.0, SlowMultiplier: 0.6},
	{chainconfig.ActivityLegacy, chainconfig.TierFree}:     {InitialBatchSize: 10, MinBatchSize: 2, MaxBatchSize: 10, TargetDurationMs: 1200, TargetLogsPerRequest: 50, FastMultiplier: 2.0, SlowMultiplier: 0.6},
	{chainconfig.ActivityLegacy, chainconfig.TierPayg}:     {InitialBatchSize: 3000, MinBatchSize: 500, MaxBatchSize: 5000, TargetDurationMs: 2000, TargetLogsPerRequest: 300, FastMultiplier: 2.2, SlowMultiplier: 0.6},
}

// ResolveProfile looks up the (activity, tier) profile, falling back to
// premium/growth tiers onto the payg row (spec §3.1: "tier {free,
// payg/premium}").
func ResolveProfile(activity chainconfig.Activity, tier chainconfig.Tier) Profile {
	t := tier
	if t == chainconfig.TierGrowth || t == chainconfig.TierPremium {
		t = chainconfig.TierPayg
	}
	if p, ok := profiles[profileKey{activity, t}]; ok {
		return p
	}
	return profiles[profileKey{chainconfig.ActivityMedium, chainconfig.TierFree}]
}
