package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// DensityStats mirrors NetworkLogDensityStats (spec §3.1).
type DensityStats struct {
	Network           string
	AvgLogsPerBlock   float64
	TotalBlocks       int64
	TotalLogs         int64
	SampleCount       int64
	OptimalBatchSize  int
	RecommendedProfile string
	LastUpdated       int64
}

// LoadDensityStats reads the single row for a network, if present.
func (p *Pool) LoadDensityStats(ctx context.Context, network string) (DensityStats, bool, error) {
	var d DensityStats
	d.Network = network
	err := p.QueryRow(ctx, `
SELECT avg_logs_per_block, total_blocks, total_logs, sample_count, optimal_batch_size, recommended_profile, last_updated
FROM network_log_density_stats WHERE network = $1`, network).Scan(
		&d.AvgLogsPerBlock, &d.TotalBlocks, &d.TotalLogs, &d.SampleCount, &d.OptimalBatchSize, &d.RecommendedProfile, &d.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return DensityStats{}, false, nil
	}
	if err != nil {
		return DensityStats{}, false, err
	}
	return d, true, nil
}

// SaveDensityStats rewrites the single row for a network (spec §4.6:
// "each save rewrites the single row").
func (p *Pool) SaveDensityStats(ctx context.Context, d DensityStats) error {
	const q = `
INSERT INTO network_log_density_stats (network, avg_logs_per_block, total_blocks, total_logs, sample_count, optimal_batch_size, recommended_profile, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (network) DO UPDATE SET
	avg_logs_per_block = excluded.avg_logs_per_block,
	total_blocks = excluded.total_blocks,
	total_logs = excluded.total_logs,
	sample_count = excluded.sample_count,
	optimal_batch_size = excluded.optimal_batch_size,
	recommended_profile = excluded.recommended_profile,
	last_updated = excluded.last_updated
`
	_, err := p.Exec(ctx, q, d.Network, d.AvgLogsPerBlock, d.TotalBlocks, d.TotalLogs, d.SampleCount, d.OptimalBatchSize, d.RecommendedProfile, d.LastUpdated)
	return err
}
