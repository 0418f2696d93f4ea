package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kismp123/bugchainindexer-go/internal/metrics"
)

// UpsertAddress applies field-preserving merge semantics (spec §4.11): a
// NULL in the payload never erases an existing value; tags replace only
// when non-empty; fund/last_fund_updated replace only when provided;
// first_seen is LEAST(existing, incoming) (idempotence under replay,
// spec §5); last_updated is always advanced to now.
func (p *Pool) UpsertAddress(ctx context.Context, payload UpsertPayload) error {
	tags := tagsToStrings(payload.Tags)
	now := Now()
	const q = `
INSERT INTO addresses (address, network, first_seen, last_updated, code_hash, contract_name, deployed, tags, fund, last_fund_updated, name_checked, name_checked_at)
VALUES (lower($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, false), $12)
ON CONFLICT (address, network) DO UPDATE SET
	first_seen = LEAST(addresses.first_seen, excluded.first_seen),
	last_updated = excluded.last_updated,
	code_hash = COALESCE(excluded.code_hash, addresses.code_hash),
	contract_name = COALESCE(excluded.contract_name, addresses.contract_name),
	deployed = COALESCE(excluded.deployed, addresses.deployed),
	tags = CASE WHEN array_length(excluded.tags, 1) > 0 THEN excluded.tags ELSE addresses.tags END,
	fund = COALESCE(excluded.fund, addresses.fund),
	last_fund_updated = COALESCE(excluded.last_fund_updated, addresses.last_fund_updated),
	name_checked = COALESCE($11, addresses.name_checked),
	name_checked_at = COALESCE(excluded.name_checked_at, addresses.name_checked_at)
`
	_, err := p.Exec(ctx, q,
		payload.Address, payload.Network, payload.FirstSeen, now,
		payload.CodeHash, payload.ContractName, payload.Deployed, tags,
		payload.Fund, payload.LastFundUpdated, payload.NameChecked, payload.NameCheckedAt,
	)
	if err != nil {
		return err
	}
	metrics.AddressesUpserted.WithLabelValues(payload.Network).Inc()
	return nil
}

func tagsToStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func stringsToTags(ss []string) []Tag {
	out := make([]Tag, len(ss))
	for i, s := range ss {
		out[i] = Tag(s)
	}
	return out
}

func scanAddress(row interface {
	Scan(dest ...any) error
}) (Address, error) {
	var a Address
	var tags []string
	err := row.Scan(&a.Address, &a.Network, &a.FirstSeen, &a.LastUpdated, &a.CodeHash, &a.ContractName, &a.Deployed, &tags, &a.Fund, &a.LastFundUpdated, &a.NameChecked, &a.NameCheckedAt)
	a.Tags = stringsToTags(tags)
	return a, err
}

const addressColumns = "address, network, first_seen, last_updated, code_hash, contract_name, deployed, tags, fund, last_fund_updated, name_checked, name_checked_at"

// GetAddress fetches one address row.
func (p *Pool) GetAddress(ctx context.Context, address, network string) (Address, bool, error) {
	row := p.QueryRow(ctx, "SELECT "+addressColumns+" FROM addresses WHERE address = lower($1) AND network = $2", address, network)
	a, err := scanAddress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, false, nil
	}
	if err != nil {
		return Address{}, false, err
	}
	return a, true, nil
}

// SortKey selects the keyset pagination ordering from spec §4.11.
type SortKey string

const (
	SortByFund      SortKey = "fund"
	SortByFirstSeen SortKey = "first_seen"
)

// Cursor is the opaque tuple carrying the last row's sort-key values.
type Cursor struct {
	Fund      *int64
	Deployed  *int64
	FirstSeen *int64
	Address   string
}

// QueryFilter narrows a paginated address listing.
type QueryFilter struct {
	Network      string // "" = all networks
	Sort         SortKey
	After        *Cursor
	Limit        int
	IncludeTotal bool
}

// QueryResult is one page of addresses plus an optional total count.
type QueryResult struct {
	Addresses []Address
	Total     *int64
}

// QueryAddresses implements the keyset-paginated query described in spec
// §4.11: two sort keys with their own tie-break chains, an opaque cursor
// carrying the last row's sort-key values, and an optional cached total.
func (p *Pool) QueryAddresses(ctx context.Context, f QueryFilter) (QueryResult, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var b strings.Builder
	b.WriteString("SELECT " + addressColumns + " FROM addresses WHERE 1=1")
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Network != "" {
		b.WriteString(" AND network = " + arg(f.Network))
	}

	switch f.Sort {
	case SortByFirstSeen:
		if f.After != nil {
			fs := arg(f.After.FirstSeen)
			adr := arg(f.After.Address)
			b.WriteString(fmt.Sprintf(" AND (first_seen < %s OR (first_seen = %s AND address > %s))", fs, fs, adr))
		}
		b.WriteString(" ORDER BY first_seen DESC, address ASC")
	default: // SortByFund
		if f.After != nil {
			fund := arg(f.After.Fund)
			dep := arg(f.After.Deployed)
			adr := arg(f.After.Address)
			b.WriteString(fmt.Sprintf(" AND ((COALESCE(fund,-1), COALESCE(deployed,-1)) < (COALESCE(%s,-1), COALESCE(%s,-1)) OR ((COALESCE(fund,-1), COALESCE(deployed,-1)) = (COALESCE(%s,-1), COALESCE(%s,-1)) AND address > %s))", fund, dep, fund, dep, adr))
		}
		b.WriteString(" ORDER BY fund DESC NULLS LAST, deployed DESC NULLS LAST, address ASC")
	}
	b.WriteString(" LIMIT " + arg(limit))

	rows, err := p.Query(ctx, b.String(), args...)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	var out QueryResult
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return QueryResult{}, err
		}
		out.Addresses = append(out.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, err
	}

	if f.IncludeTotal {
		total, err := p.countForFilter(ctx, f)
		if err != nil {
			return QueryResult{}, err
		}
		out.Total = &total
	}
	return out, nil
}

// countForFilter reads the cached per-network count table (spec §4.11):
// the network's row when a network is given, the sum of all rows
// otherwise, falling back to a live COUNT when the cache has nothing.
func (p *Pool) countForFilter(ctx context.Context, f QueryFilter) (int64, error) {
	if f.Network == "" {
		var summed *int64
		err := p.QueryRow(ctx, "SELECT sum(total)::bigint FROM network_address_counts").Scan(&summed)
		if err == nil && summed != nil {
			return *summed, nil
		}
	}
	if f.Network != "" {
		var cached int64
		err := p.QueryRow(ctx, "SELECT total FROM network_address_counts WHERE network = $1", f.Network).Scan(&cached)
		if err == nil {
			return cached, nil
		}
	}
	var total int64
	q := "SELECT count(*) FROM addresses WHERE 1=1"
	args := []any{}
	if f.Network != "" {
		args = append(args, f.Network)
		q += " AND network = $1"
	}
	if err := p.QueryRow(ctx, q, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountAddresses is the live-query fallback behind ratecache.Cache.
func (p *Pool) CountAddresses(ctx context.Context, network string) (int64, error) {
	return p.countForFilter(ctx, QueryFilter{Network: network})
}

// RefreshNetworkCounts recomputes network_address_counts for every
// network; intended to run on a periodic cadence from cmd/revalidator.
func (p *Pool) RefreshNetworkCounts(ctx context.Context) error {
	const q = `
INSERT INTO network_address_counts (network, total, updated_at)
SELECT network, count(*), $1 FROM addresses GROUP BY network
ON CONFLICT (network) DO UPDATE SET total = excluded.total, updated_at = excluded.updated_at
`
	_, err := p.Exec(ctx, q, Now())
	return err
}

// RefreshDistinctContracts issues a concurrent materialized view refresh
// for the "hide unnamed" listing fast path (spec §6; SPEC_FULL.md
// supplemented feature #4).
func (p *Pool) RefreshDistinctContracts(ctx context.Context) error {
	_, err := p.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY mv_distinct_contracts")
	return err
}
