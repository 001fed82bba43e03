package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"balancedScope/internal/model"
)

// Scanner enumerates pools by sequential ID until the query reports NotFound.
type Scanner struct {
	query   QueryFunc
	metrics *Metrics
	logger  *zap.Logger
}

// New builds a Scanner. metrics may be nil.
func New(query QueryFunc, metrics *Metrics, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		query:   query,
		metrics: metrics,
		logger:  logger,
	}
}

// ScanPools scans with no metrics and no logging.
func ScanPools(ctx context.Context, query QueryFunc) ([]model.NormalizedPool, error) {
	return New(query, nil, nil).Scan(ctx)
}

// Scan queries pool IDs 1, 2, ... in order and returns the normalized pools.
// On any failure other than NotFound, nothing is returned but the error.
func (s *Scanner) Scan(ctx context.Context) ([]model.NormalizedPool, error) {
	pools, err := s.scan(ctx)
	s.metrics.observeScan(len(pools), err)
	if err != nil {
		return nil, err
	}
	return pools, nil
}

func (s *Scanner) scan(ctx context.Context) ([]model.NormalizedPool, error) {
	if s.query == nil {
		return nil, fmt.Errorf("query is nil")
	}

	pools := make([]model.NormalizedPool, 0)
	for poolID := uint64(1); ; poolID++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		lookup := s.query(ctx, poolID)
		s.metrics.observeLookup(lookup.Status, time.Since(start))

		switch lookup.Status {
		case StatusFound:
			pool, err := Normalize(lookup.Record)
			if err != nil {
				return nil, fmt.Errorf("normalize pool %d: %w", poolID, err)
			}
			pools = append(pools, pool)
			s.logger.Info("added pool", zap.Uint64("pool_id", poolID), zap.String("name", pool.Text(model.FieldName)))
		case StatusNotFound:
			s.logger.Info("scan complete", zap.Int("pools", len(pools)), zap.Uint64("not_found_id", poolID))
			return pools, nil
		case StatusFailed:
			err := lookup.Err
			if err == nil {
				err = fmt.Errorf("lookup failed")
			}
			return nil, fmt.Errorf("query pool %d: %w", poolID, err)
		default:
			return nil, fmt.Errorf("query pool %d: unknown lookup status %d", poolID, lookup.Status)
		}
	}
}
