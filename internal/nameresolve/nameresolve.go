// Package nameresolve implements the verified-name/proxy-implementation
// enrichment named in spec §1 ("verified name, proxy implementation
// name") and driven by the Data Revalidator's "re-fetch verified contract
// name if blank" step (spec §4.9). Grounded on internal/deployres, the
// sibling package that drives the same explorer client against the same
// batching constraint (spec §4.7's 5-address cap applies to every
// contract-module explorer call, not just getcontractcreation).
package nameresolve

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/explorer"
)

// maxSourceBatch mirrors deployres.maxCreationBatch: the explorer's
// contract-module endpoints cap at 5 addresses per call.
const maxSourceBatch = 5

// Result is the resolved name/verification state for one address.
type Result struct {
	Address        string
	Verified       bool
	ContractName   string // empty when unverified or when the explorer has no record
	IsProxy        bool
	Implementation string // non-empty only when IsProxy
}

type sourceEntry struct {
	ContractAddress string `json:"contractAddress"` // not actually returned by getsourcecode; index-matched to the request order instead
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	Proxy           string `json:"Proxy"`
	Implementation  string `json:"Implementation"`
}

// Resolver resolves verified names and proxy implementation names via the
// explorer's getsourcecode endpoint.
type Resolver struct {
	exp *explorer.Client
	log *zap.Logger
}

// New builds a Resolver.
func New(exp *explorer.Client, log *zap.Logger) *Resolver {
	return &Resolver{exp: exp, log: log}
}

// Resolve fetches verified-name/proxy state for a batch of contract
// addresses, chunked into groups of maxSourceBatch (spec §4.7's batching
// constraint, shared by every contract-module explorer endpoint). A proxy
// contract's own source is typically an unverified minimal shim, so when
// one is detected its Implementation address is re-queried in a second
// pass to surface the name a caller actually wants to display.
func (r *Resolver) Resolve(ctx context.Context, addresses []string) ([]Result, error) {
	out := make([]Result, len(addresses))
	for i, a := range addresses {
		out[i] = Result{Address: strings.ToLower(a)}
	}

	if err := r.fetchSourceInto(ctx, out); err != nil {
		return nil, err
	}

	// Second pass: proxies whose own verified name is still blank get
	// resolved against their implementation contract instead.
	var implAddrs []string
	var implIdx []int
	for i, res := range out {
		if res.IsProxy && res.ContractName == "" && res.Implementation != "" {
			implAddrs = append(implAddrs, res.Implementation)
			implIdx = append(implIdx, i)
		}
	}
	if len(implAddrs) == 0 {
		return out, nil
	}

	implResults := make([]Result, len(implAddrs))
	for i, a := range implAddrs {
		implResults[i] = Result{Address: strings.ToLower(a)}
	}
	if err := r.fetchSourceInto(ctx, implResults); err != nil {
		r.log.Warn("nameresolve: implementation lookup failed", zap.Error(err))
		return out, nil
	}
	for i, idx := range implIdx {
		if implResults[i].ContractName != "" {
			out[idx].ContractName = implResults[i].ContractName
			out[idx].Verified = true
		}
	}
	return out, nil
}

// fetchSourceInto issues getsourcecode in chunks of maxSourceBatch and
// fills each Result in place, index-matched to the explorer's
// comma-separated-order response (getsourcecode does not echo the
// address back per entry).
func (r *Resolver) fetchSourceInto(ctx context.Context, results []Result) error {
	for start := 0; start < len(results); start += maxSourceBatch {
		end := start + maxSourceBatch
		if end > len(results) {
			end = len(results)
		}
		chunk := results[start:end]
		addrs := make([]string, len(chunk))
		for i, c := range chunk {
			addrs[i] = c.Address
		}
		raw, err := r.exp.Request(ctx, "contract", "getsourcecode", map[string]string{
			"address": strings.Join(addrs, ","),
		})
		if err != nil {
			return err
		}
		if raw == nil {
			continue
		}
		var entries []sourceEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		for i := range chunk {
			if i >= len(entries) {
				break
			}
			e := entries[i]
			if e.ContractName != "" {
				results[start+i].ContractName = e.ContractName
				results[start+i].Verified = true
			}
			if e.Proxy == "1" && e.Implementation != "" {
				results[start+i].IsProxy = true
				results[start+i].Implementation = e.Implementation
			}
		}
	}
	return nil
}
