package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kismp123/bugchainindexer-go/internal/retry"
)

// Pool wraps a pgxpool.Pool with the defaults from spec §5: max=20,
// idle 30s, connect timeout 2s.
type Pool struct {
	*pgxpool.Pool
}

// Open builds and validates a pooled Postgres connection.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 2 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Postgres may still be coming up alongside this process (e.g. both
	// started by the same compose/k8s rollout); retry the initial ping
	// with a plain exponential backoff rather than failing on the first
	// connection attempt. This is the pure-exponential leg internal/retry
	// documents: no per-kind classification applies to a dial failure.
	backoffPolicy := retry.NewExponential(100*time.Millisecond, 2*time.Second)
	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		if pingErr = pool.Ping(ctx); pingErr == nil {
			break
		}
		d := backoffPolicy.NextBackOff()
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if pingErr != nil {
		pool.Close()
		return nil, pingErr
	}
	return &Pool{Pool: pool}, nil
}

// EnsureSchema creates the tables and indexes from spec §6 if they do not
// already exist. Schema migration scripts proper are named out of scope
// (spec §1); this is the minimal bootstrap a fresh environment needs to
// run the pipeline against, not a migration framework.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS addresses (
	address text NOT NULL,
	network text NOT NULL,
	first_seen bigint NOT NULL,
	last_updated bigint NOT NULL,
	code_hash text,
	contract_name text,
	deployed bigint,
	tags text[] NOT NULL DEFAULT '{}',
	fund bigint,
	last_fund_updated bigint,
	name_checked boolean NOT NULL DEFAULT false,
	name_checked_at bigint,
	UNIQUE(address, network)
);
CREATE INDEX IF NOT EXISTS idx_addresses_fund ON addresses(network, fund DESC);
CREATE INDEX IF NOT EXISTS idx_addresses_first_seen ON addresses(network, first_seen DESC);
CREATE INDEX IF NOT EXISTS idx_addresses_tags ON addresses USING GIN(tags);
CREATE INDEX IF NOT EXISTS idx_addresses_prefix ON addresses(address text_pattern_ops);

CREATE TABLE IF NOT EXISTS symbol_prices (
	symbol text PRIMARY KEY,
	price_usd numeric NOT NULL,
	last_updated bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS network_log_density_stats (
	network text PRIMARY KEY,
	avg_logs_per_block double precision NOT NULL DEFAULT 0,
	total_blocks bigint NOT NULL DEFAULT 0,
	total_logs bigint NOT NULL DEFAULT 0,
	sample_count bigint NOT NULL DEFAULT 0,
	optimal_batch_size integer NOT NULL DEFAULT 0,
	recommended_profile text,
	last_updated bigint NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunk_optimizer_sessions (
	network text NOT NULL,
	operation text NOT NULL,
	data jsonb NOT NULL,
	updated_at bigint NOT NULL,
	PRIMARY KEY(network, operation)
);

CREATE TABLE IF NOT EXISTS discovered_helpers (
	network text NOT NULL,
	kind text NOT NULL,
	address text NOT NULL,
	discovered_at bigint NOT NULL,
	PRIMARY KEY(network, kind)
);

CREATE TABLE IF NOT EXISTS network_address_counts (
	network text PRIMARY KEY,
	total bigint NOT NULL,
	updated_at bigint NOT NULL
);

CREATE MATERIALIZED VIEW IF NOT EXISTS mv_distinct_contracts AS
	SELECT DISTINCT ON (contract_name) contract_name, address, network
	FROM addresses
	WHERE contract_name IS NOT NULL
	ORDER BY contract_name, last_updated DESC;
`
	_, err := p.Exec(ctx, ddl)
	return err
}
