package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"balancedScope/internal/config"
	"balancedScope/internal/icon"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scanner",
		Short:        "ICON Balanced DEX pool scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Scan Balanced DEX pools and store normalized stats",
		RunE:  runPools,
	}

	addChainFlags(poolsCmd)
	poolsCmd.Flags().String("contract", "cxa0af3165c08318e988cb30993b3048335b94af6c", "Balanced DEX contract address")
	poolsCmd.Flags().String("method", "getPoolStats", "pool stats method")
	poolsCmd.Flags().String("out", "./data/pools.jsonl", "output JSONL path (empty disables)")
	poolsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	poolsCmd.Flags().Bool("migrate", true, "create Postgres tables if missing")
	poolsCmd.Flags().String("redis-addr", "", "Redis address")
	poolsCmd.Flags().String("redis-key", "balanced:pools", "Redis hash key")
	poolsCmd.Flags().IntSlice("not-found-codes", []int{icon.CodeReverted}, "JSON-RPC error codes that end the scan")
	poolsCmd.Flags().String("not-found-message", "", "regexp the error message must also match to end the scan")
	poolsCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(poolsCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Read a USD reference rate from the Band oracle",
		RunE:  runQuote,
	}

	addChainFlags(quoteCmd)
	quoteCmd.Flags().String("oracle", "cx087b4164a87fdfb7b714f3bafe9dfb050fd6b132", "Band oracle contract address")
	quoteCmd.Flags().String("symbol", "ICX", "base symbol")
	quoteCmd.Flags().Uint64("height", 0, "block height to read at, 0 means latest")

	root.AddCommand(quoteCmd)

	blockCmd := &cobra.Command{
		Use:   "block",
		Short: "Print a block",
		RunE:  runBlock,
	}

	addChainFlags(blockCmd)
	blockCmd.Flags().Uint64("height", 0, "block height, 0 means latest")

	root.AddCommand(blockCmd)

	return root
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", config.DefaultRPCURL, "ICON JSON-RPC v3 URL")
	cmd.Flags().Uint64("network-id", 1, "expected network ID, 0 skips the check")
	cmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().Float64("rps", 0, "maximum requests per second, 0 means unlimited")
	cmd.Flags().Int("cache-size", 256, "cached height-pinned responses")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func newClient(cfg config.ChainConfig, logger *zap.Logger) (*icon.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	return icon.NewClient(icon.Config{
		Endpoint:          cfg.RPCURL,
		NetworkID:         cfg.NetworkID,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RPS,
		CacheSize:         cfg.CacheSize,
	}, logger)
}

// checkNetwork warns when the node reports a different network ID.
// Nodes without icx_getNetworkInfo are tolerated.
func checkNetwork(ctx context.Context, client *icon.Client, logger *zap.Logger) {
	if client.NetworkID() == 0 {
		return
	}
	info, err := client.NetworkInfo(ctx)
	if err != nil {
		logger.Debug("network info unavailable", zap.Error(err))
		return
	}
	if uint64(info.NID) != client.NetworkID() {
		logger.Warn("network id mismatch",
			zap.Uint64("expected", client.NetworkID()),
			zap.Uint64("node", uint64(info.NID)),
			zap.String("channel", info.Channel),
		)
	}
}
