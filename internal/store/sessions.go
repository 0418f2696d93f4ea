package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kismp123/bugchainindexer-go/internal/optimizer"
)

// LoadSession and SaveSession implement optimizer.Repository against
// chunk_optimizer_sessions.data (jsonb).
func (p *Pool) LoadSession(ctx context.Context, network string, op optimizer.Operation) (optimizer.Snapshot, bool, error) {
	var raw []byte
	err := p.QueryRow(ctx, "SELECT data FROM chunk_optimizer_sessions WHERE network = $1 AND operation = $2", network, string(op)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return optimizer.Snapshot{}, false, nil // no stored session: cold start
	}
	if err != nil {
		return optimizer.Snapshot{}, false, err
	}
	var snap optimizer.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return optimizer.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (p *Pool) SaveSession(ctx context.Context, snap optimizer.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO chunk_optimizer_sessions (network, operation, data, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (network, operation) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`
	_, err = p.Exec(ctx, q, snap.Network, string(snap.Operation), raw, Now())
	return err
}
