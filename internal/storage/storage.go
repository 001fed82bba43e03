package storage

import (
	"context"
	"errors"
	"time"

	"balancedScope/internal/model"
)

// Storage defines a sink for scanned pools. Pools are ordered by pool ID,
// starting at 1.
type Storage interface {
	PutPools(ctx context.Context, pools []model.NormalizedPool, scannedAt time.Time) error
}

// Multi writes to every sink in order and joins their errors.
type Multi []Storage

func (m Multi) PutPools(ctx context.Context, pools []model.NormalizedPool, scannedAt time.Time) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutPools(ctx, pools, scannedAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
