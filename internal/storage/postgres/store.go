package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"balancedScope/internal/model"
)

// StateName is the scanner_state row updated after each pool scan.
const StateName = "balanced_pools"

const schema = `
CREATE TABLE IF NOT EXISTS balanced_pools (
	pool_id        BIGINT PRIMARY KEY,
	name           TEXT NOT NULL,
	base_token     TEXT NOT NULL,
	quote_token    TEXT NOT NULL,
	base_decimals  INTEGER NOT NULL,
	quote_decimals INTEGER NOT NULL,
	base           NUMERIC NOT NULL,
	quote          NUMERIC NOT NULL,
	price          NUMERIC NOT NULL,
	min_quote      NUMERIC NOT NULL,
	total_supply   NUMERIC NOT NULL,
	scanned_at     TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scanner_state (
	name         TEXT PRIMARY KEY,
	pool_count   BIGINT NOT NULL,
	last_scan_at TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const upsertPoolSQL = `
	INSERT INTO balanced_pools (
		pool_id, name, base_token, quote_token, base_decimals, quote_decimals,
		base, quote, price, min_quote, total_supply, scanned_at, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
	ON CONFLICT (pool_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		base_token = EXCLUDED.base_token,
		quote_token = EXCLUDED.quote_token,
		base_decimals = EXCLUDED.base_decimals,
		quote_decimals = EXCLUDED.quote_decimals,
		base = EXCLUDED.base,
		quote = EXCLUDED.quote,
		price = EXCLUDED.price,
		min_quote = EXCLUDED.min_quote,
		total_supply = EXCLUDED.total_supply,
		scanned_at = EXCLUDED.scanned_at,
		updated_at = now()
`

// Store provides Postgres persistence for pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutPools upserts the scanned pools and records the scan in scanner_state.
func (s *Store) PutPools(ctx context.Context, pools []model.NormalizedPool, scannedAt time.Time) error {
	snaps, err := model.NewPoolSnapshots(pools, scannedAt)
	if err != nil {
		return fmt.Errorf("build snapshots: %w", err)
	}
	if err := s.UpsertPools(ctx, snaps); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	if err := s.SaveState(ctx, StateName, int64(len(snaps)), scannedAt); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, snaps []model.PoolSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(upsertPoolSQL, upsertPoolArgs(snap)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snaps {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func upsertPoolArgs(snap model.PoolSnapshot) []any {
	return []any{
		int64(snap.PoolID),
		snap.Name,
		snap.BaseToken,
		snap.QuoteToken,
		snap.BaseDecimals,
		snap.QuoteDecimals,
		snap.Base.String(),
		snap.Quote.String(),
		snap.Price.String(),
		snap.MinQuote.String(),
		snap.TotalSupply.String(),
		snap.ScannedAt,
	}
}

// State is the last recorded scan.
type State struct {
	PoolCount  int64
	LastScanAt time.Time
}

// LoadState returns the last scan recorded under name.
func (s *Store) LoadState(ctx context.Context, name string) (State, bool, error) {
	if name == "" {
		return State{}, false, fmt.Errorf("state name required")
	}
	var state State
	row := s.pool.QueryRow(ctx, `SELECT pool_count, last_scan_at FROM scanner_state WHERE name=$1`, name)
	if err := row.Scan(&state.PoolCount, &state.LastScanAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	return state, true, nil
}

// SaveState upserts the scan result for a name.
func (s *Store) SaveState(ctx context.Context, name string, poolCount int64, scannedAt time.Time) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scanner_state (name, pool_count, last_scan_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET pool_count = EXCLUDED.pool_count, last_scan_at = EXCLUDED.last_scan_at, updated_at = now()
	`, name, poolCount, scannedAt)
	return err
}
