// Package chainconfig holds the static per-chain configuration described
// in spec.md §3 (NetworkConfig) and §4.1 (C1 Network Registry): RPC
// endpoint lists, explorer-API settings, helper contract addresses,
// provider-tier block-range caps, and the activity profile used to pick a
// LogsOptimizationProfile.
package chainconfig

import "strings"

// Tier is a provider pricing tier, used to cap getLogs block ranges.
type Tier string

const (
	TierFree    Tier = "free"
	TierPayg    Tier = "payg"
	TierGrowth  Tier = "growth"
	TierPremium Tier = "premium"
)

// Activity is a per-network log-density class, keying into the
// (activity, tier) LogsOptimizationProfile matrix (spec §3.1).
type Activity string

const (
	ActivityUltraHigh Activity = "ultra-high"
	ActivityHigh      Activity = "high"
	ActivityMedium    Activity = "medium"
	ActivityLow       Activity = "low"
	ActivityLegacy    Activity = "legacy"
)

// ExplorerMode selects the explorer-API dispatch shape (spec §4.3).
type ExplorerMode string

const (
	ExplorerUnified   ExplorerMode = "unified"   // single base URL + chainid query param
	ExplorerDedicated ExplorerMode = "dedicated" // per-network base URL, no chainid
)

// HelperAddresses are the on-chain aggregator contracts used by the batch
// read engine (C6).
type HelperAddresses struct {
	BalanceHelper      string
	ContractValidator  string
}

// NetworkConfig is the static configuration for one supported chain.
type NetworkConfig struct {
	Name            string
	ChainID         int64
	RPCURLs         []string
	ExplorerMode    ExplorerMode
	ExplorerBaseURL string
	ExplorerChainID int64 // only meaningful when ExplorerMode == ExplorerUnified
	APIKeys         []string
	NativeSymbol    string
	Helpers         HelperAddresses
	BlockRangeCaps  map[Tier]int64
	Activity        Activity
	GenesisUnix     int64 // 0 if the chain has no known genesis-deployment timestamp
	ProxyURL        string
}

// ResolveHelpers merges discovered (persisted) helper addresses over the
// static config, table taking precedence, per Design Notes row 7 and
// SPEC_FULL.md supplemented feature #1. Empty discovered values leave the
// static value untouched.
func (n NetworkConfig) ResolveHelpers(discoveredBalanceHelper, discoveredContractValidator string) HelperAddresses {
	h := n.Helpers
	if discoveredBalanceHelper != "" {
		h.BalanceHelper = discoveredBalanceHelper
	}
	if discoveredContractValidator != "" {
		h.ContractValidator = discoveredContractValidator
	}
	return h
}

// BlockRangeCap returns the provider-tier cap for this network, falling
// back to the free tier's cap (the most conservative) if the tier is
// unconfigured.
func (n NetworkConfig) BlockRangeCap(tier Tier) int64 {
	if cap, ok := n.BlockRangeCaps[tier]; ok {
		return cap
	}
	return n.BlockRangeCaps[TierFree]
}

// Registry is the full set of supported networks, keyed by name.
type Registry struct {
	networks map[string]NetworkConfig
}

// NewRegistry builds the static registry. It applies no RPC URL overrides
// (<NETWORK>_RPC_URL, spec §6); WithRPCOverride applies one on a copy,
// keeping this constructor pure and independent of the out-of-scope
// env-loading layer. The cmd/* entrypoints do not call WithRPCOverride.
func NewRegistry(networks []NetworkConfig) *Registry {
	r := &Registry{networks: make(map[string]NetworkConfig, len(networks))}
	for _, n := range networks {
		r.networks[n.Name] = n
	}
	return r
}

// Get returns the config for a network by name, and whether it exists.
func (r *Registry) Get(network string) (NetworkConfig, bool) {
	n, ok := r.networks[network]
	return n, ok
}

// Names returns all configured network names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.networks))
	for name := range r.networks {
		out = append(out, name)
	}
	return out
}

// WithRPCOverride returns a copy of the registry with the given network's
// RPC URL list replaced, parsed from a comma/whitespace separated string
// (the <NETWORK>_RPC_URL env var format from spec §6).
func (r *Registry) WithRPCOverride(network, commaOrWhitespaceSeparated string) *Registry {
	cfg, ok := r.networks[network]
	if !ok {
		return r
	}
	urls := splitURLList(commaOrWhitespaceSeparated)
	if len(urls) == 0 {
		return r
	}
	cfg.RPCURLs = urls
	out := &Registry{networks: make(map[string]NetworkConfig, len(r.networks))}
	for k, v := range r.networks {
		out.networks[k] = v
	}
	out.networks[network] = cfg
	return out
}

func splitURLList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// GenesisTimestamps maps chain-id to the chain's genesis-block unix
// timestamp, used by the deployment resolver (C8) to resolve GENESIS_*
// explorer markers (spec §4.7). Chains with no entry leave deployment
// null on a genesis marker, per spec Testable Properties §8.
var GenesisTimestamps = map[int64]int64{
	1:      1438269973, // ethereum
	10:     1636665385, // optimism
	56:     1598671449, // bsc
	100:    1539024185, // gnosis (xdai chain)
	137:    1590824836, // polygon
	250:    1589899019, // fantom opera
	324:    1679987881, // zksync era
	1284:   1643961360, // moonbeam
	8453:   1686789347, // base
	42161:  1622243344, // arbitrum one
	42220:  1587571230, // celo mainnet
	43114:  1600960829, // avalanche c-chain
	59144:  1689159600, // linea mainnet
	534352: 1696917599, // scroll mainnet
}

// Default14 returns the ~14-network registry seed used by the reference
// deployment. Callers may substitute their own list; this is provided so
// cmd/* entrypoints and tests have a concrete starting registry.
func Default14() []NetworkConfig {
	freePayg := func(free, payg int64) map[Tier]int64 {
		return map[Tier]int64{TierFree: free, TierPayg: payg, TierGrowth: payg, TierPremium: payg}
	}
	return []NetworkConfig{
		{
			Name: "ethereum", ChainID: 1,
			RPCURLs:         []string{"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 1,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityUltraHigh,
			GenesisUnix:     GenesisTimestamps[1],
		},
		{
			Name: "optimism", ChainID: 10,
			RPCURLs:         []string{"https://mainnet.optimism.io"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 10,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityHigh,
			GenesisUnix:     GenesisTimestamps[10],
		},
		{
			Name: "bsc", ChainID: 56,
			RPCURLs:         []string{"https://bsc-dataseed.binance.org"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 56,
			NativeSymbol:    "BNB",
			BlockRangeCaps:  freePayg(10, 5000),
			Activity:        ActivityUltraHigh,
			GenesisUnix:     GenesisTimestamps[56],
		},
		{
			Name: "polygon", ChainID: 137,
			RPCURLs:         []string{"https://polygon-rpc.com"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 137,
			NativeSymbol:    "POL",
			BlockRangeCaps:  freePayg(10, 3500),
			Activity:        ActivityUltraHigh,
			GenesisUnix:     GenesisTimestamps[137],
		},
		{
			Name: "arbitrum", ChainID: 42161,
			RPCURLs:         []string{"https://arb1.arbitrum.io/rpc"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 42161,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityHigh,
			GenesisUnix:     GenesisTimestamps[42161],
		},
		{
			Name: "base", ChainID: 8453,
			RPCURLs:         []string{"https://mainnet.base.org"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 8453,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityHigh,
			GenesisUnix:     GenesisTimestamps[8453],
		},
		{
			Name: "avalanche", ChainID: 43114,
			RPCURLs:         []string{"https://api.avax.network/ext/bc/C/rpc"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 43114,
			NativeSymbol:    "AVAX",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityMedium,
			GenesisUnix:     GenesisTimestamps[43114],
		},
		{
			Name: "fantom", ChainID: 250,
			RPCURLs:         []string{"https://rpc.ftm.tools"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 250,
			NativeSymbol:    "FTM",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityMedium,
			GenesisUnix:     GenesisTimestamps[250],
		},
		{
			Name: "gnosis", ChainID: 100,
			RPCURLs:         []string{"https://rpc.gnosischain.com"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 100,
			NativeSymbol:    "xDAI",
			BlockRangeCaps:  freePayg(10, 3000),
			Activity:        ActivityLow,
			GenesisUnix:     GenesisTimestamps[100],
		},
		{
			Name: "celo", ChainID: 42220,
			RPCURLs:         []string{"https://forno.celo.org"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 42220,
			NativeSymbol:    "CELO",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityLow,
			GenesisUnix:     GenesisTimestamps[42220],
		},
		{
			Name: "moonbeam", ChainID: 1284,
			RPCURLs:         []string{"https://rpc.api.moonbeam.network"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 1284,
			NativeSymbol:    "GLMR",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityLow,
			GenesisUnix:     GenesisTimestamps[1284],
		},
		{
			Name: "linea", ChainID: 59144,
			RPCURLs:         []string{"https://rpc.linea.build"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 59144,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityMedium,
			GenesisUnix:     GenesisTimestamps[59144],
		},
		{
			Name: "scroll", ChainID: 534352,
			RPCURLs:         []string{"https://rpc.scroll.io"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 534352,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 2000),
			Activity:        ActivityLow,
			GenesisUnix:     GenesisTimestamps[534352],
		},
		{
			Name: "zksync", ChainID: 324,
			RPCURLs:         []string{"https://mainnet.era.zksync.io"},
			ExplorerMode:    ExplorerUnified,
			ExplorerBaseURL: "https://api.etherscan.io/v2/api",
			ExplorerChainID: 324,
			NativeSymbol:    "ETH",
			BlockRangeCaps:  freePayg(10, 1000),
			Activity:        ActivityMedium,
			GenesisUnix:     GenesisTimestamps[324],
		},
	}
}
