// Package store is the Persistence Layer (C12, spec §4.11): a Postgres
// pool, field-preserving address upserts, keyset-paginated queries, and
// the optimizer/density/price repositories consumed by the other
// components. The teacher only ever reaches for modernc.org/sqlite (see
// geth-17-indexer); this package switches to jackc/pgx/v5 because the
// schema needs arrays, jsonb, and a materialized view — see DESIGN.md.
package store

import "time"

// Tag is one of the curated or user-defined address labels from spec §3.1.
type Tag string

const (
	TagContract   Tag = "Contract"
	TagEOA        Tag = "EOA"
	TagVerified   Tag = "Verified"
	TagUnverified Tag = "Unverified"
	TagProxy      Tag = "Proxy"
)

// Address is the primary aggregate, unique by (address, network).
type Address struct {
	Address         string // lowercased 20-byte hex
	Network         string
	FirstSeen       int64 // unix seconds
	LastUpdated     int64 // unix seconds
	CodeHash        *string
	ContractName    *string
	Deployed        *int64
	Tags            []Tag
	Fund            *int64 // whole USD (internal/fundupdate stores the floored total)
	LastFundUpdated *int64
	NameChecked     bool
	NameCheckedAt   *int64
}

// HasTag reports whether a is tagged with t.
func (a Address) HasTag(t Tag) bool {
	for _, tag := range a.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

// UpsertPayload is the incoming merge payload for one address (spec
// §4.11). A nil field must never overwrite an existing non-null value;
// Tags and Fund/LastFundUpdated are replaced only when non-nil/non-empty.
type UpsertPayload struct {
	Address         string
	Network         string
	FirstSeen       int64 // LEAST(existing, incoming) on conflict
	CodeHash        *string
	ContractName    *string
	Deployed        *int64
	Tags            []Tag // nil/empty => retain existing
	Fund            *int64
	LastFundUpdated *int64
	NameChecked     *bool
	NameCheckedAt   *int64
}

// Now is overridable in tests; production code should call time.Now().Unix().
var Now = func() int64 { return time.Now().Unix() }
