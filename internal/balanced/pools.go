package balanced

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"balancedScope/internal/icon"
	"balancedScope/internal/model"
	"balancedScope/internal/scanner"
)

const (
	// DexContract is the Balanced DEX SCORE on ICON mainnet.
	DexContract = "cxa0af3165c08318e988cb30993b3048335b94af6c"
	// PoolStatsMethod returns the stats of one pool by ID.
	PoolStatsMethod = "getPoolStats"
)

// Caller executes read-only SCORE calls.
type Caller interface {
	Call(ctx context.Context, req icon.CallRequest) (json.RawMessage, error)
}

// PoolQueryConfig configures the getPoolStats query.
type PoolQueryConfig struct {
	Contract     string
	Method       string
	NotFound     NotFoundRule
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewPoolQuery returns a scanner.QueryFunc backed by getPoolStats.
func NewPoolQuery(caller Caller, cfg PoolQueryConfig, logger *zap.Logger) (scanner.QueryFunc, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	if cfg.Contract == "" {
		cfg.Contract = DexContract
	}
	if cfg.Method == "" {
		cfg.Method = PoolStatsMethod
	}
	if err := icon.ValidateContract(cfg.Contract); err != nil {
		return nil, err
	}
	if len(cfg.NotFound.Codes) == 0 {
		cfg.NotFound.Codes = defaultNotFoundCodes()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, poolID uint64) scanner.Lookup {
		req := icon.CallRequest{
			To:     cfg.Contract,
			Method: cfg.Method,
			Params: map[string]any{"_id": hexutil.EncodeUint64(poolID)},
		}

		var raw json.RawMessage
		err := withRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, isTransient, func(ctx context.Context) error {
			var err error
			raw, err = caller.Call(ctx, req)
			if err != nil && isTransient(err) {
				logger.Warn("pool stats call failed, retrying", zap.Error(err), zap.Uint64("pool_id", poolID))
			}
			return err
		})
		if err != nil {
			if cfg.NotFound.Match(err) {
				logger.Debug("pool not found", zap.Uint64("pool_id", poolID), zap.Error(err))
				return scanner.NotFound()
			}
			logger.Error("pool stats call failed", append(errorFields(err), zap.Uint64("pool_id", poolID))...)
			return scanner.Failed(err)
		}

		record, err := decodePoolRecord(raw)
		if err != nil {
			return scanner.Failed(err)
		}
		return scanner.Found(record)
	}, nil
}

func decodePoolRecord(raw json.RawMessage) (model.PoolRecord, error) {
	var record model.PoolRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode pool stats: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decode pool stats: empty result")
	}
	return record, nil
}
