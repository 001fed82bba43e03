package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancedScope/internal/balanced"
	"balancedScope/internal/config"
	"balancedScope/internal/scanner"
	"balancedScope/internal/storage"
	"balancedScope/internal/storage/postgres"
	"balancedScope/internal/storage/redis"
)

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPools(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rule, err := balanced.NewNotFoundRule(cfg.NotFoundCodes, cfg.NotFoundMessage)
	if err != nil {
		return fmt.Errorf("not-found rule: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(cfg.ChainConfig, logger)
	if err != nil {
		return err
	}
	checkNetwork(ctx, client, logger)

	query, err := balanced.NewPoolQuery(client, balanced.PoolQueryConfig{
		Contract:     cfg.Contract,
		Method:       cfg.Method,
		NotFound:     rule,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	var metrics *scanner.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = scanner.NewMetrics(reg)
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.String("method", cfg.Method),
		zap.Ints("not_found_codes", cfg.NotFoundCodes),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.Int("sinks", len(sinks)),
	)

	scannedAt := time.Now().UTC()
	pools, err := scanner.New(query, metrics, logger).Scan(ctx)
	if err != nil {
		return err
	}

	if err := sinks.PutPools(ctx, pools, scannedAt); err != nil {
		return fmt.Errorf("store pools: %w", err)
	}

	logger.Info("pools stored", zap.Int("pools", len(pools)), zap.Time("scanned_at", scannedAt))
	return nil
}

// openSinks opens every configured sink. The returned func closes them.
func openSinks(ctx context.Context, cfg config.PoolsConfig, logger *zap.Logger) (storage.Multi, func(), error) {
	var sinks storage.Multi
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, store.Close)
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				closeAll()
				return nil, nil, err
			}
		}
		if state, ok, err := store.LoadState(ctx, postgres.StateName); err != nil {
			logger.Warn("load scanner state failed", zap.Error(err))
		} else if ok {
			logger.Info("previous scan", zap.Int64("pools", state.PoolCount), zap.Time("scanned_at", state.LastScanAt))
		}
		sinks = append(sinks, store)
	}

	if cfg.RedisAddr != "" {
		store, err := redis.NewStore(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close redis failed", zap.Error(err))
			}
		})
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		logger.Warn("no sink configured, results are only logged")
	}
	return sinks, closeAll, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
