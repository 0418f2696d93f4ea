package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// HelperKind distinguishes the two aggregator contracts from
// chainconfig.HelperAddresses.
type HelperKind string

const (
	HelperBalanceHelper     HelperKind = "balance_helper"
	HelperContractValidator HelperKind = "contract_validator"
)

// LoadDiscoveredHelper reads a network's discovered (non-static) helper
// contract address, if one has been persisted (SPEC_FULL.md supplemented
// feature #1 / Design Notes row 7: "persist discovered helper addresses
// to a structured table rather than mutating the static config").
func (p *Pool) LoadDiscoveredHelper(ctx context.Context, network string, kind HelperKind) (string, bool, error) {
	var addr string
	err := p.QueryRow(ctx, "SELECT address FROM discovered_helpers WHERE network = $1 AND kind = $2", network, string(kind)).Scan(&addr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return addr, true, nil
}

// SaveDiscoveredHelper persists a newly deployed helper contract address.
func (p *Pool) SaveDiscoveredHelper(ctx context.Context, network string, kind HelperKind, address string) error {
	const q = `
INSERT INTO discovered_helpers (network, kind, address, discovered_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (network, kind) DO UPDATE SET address = excluded.address, discovered_at = excluded.discovered_at
`
	_, err := p.Exec(ctx, q, network, string(kind), address, Now())
	return err
}
