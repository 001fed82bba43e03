package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancedScope/internal/balanced"
	"balancedScope/internal/config"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(cfg.ChainConfig, logger)
	if err != nil {
		return err
	}

	oracle, err := balanced.NewOracle(client, cfg.Contract, logger)
	if err != nil {
		return err
	}

	var height *uint64
	if cfg.Height > 0 {
		h := cfg.Height
		height = &h
	}

	quote, err := oracle.Quote(ctx, cfg.Symbol, height)
	if err != nil {
		return err
	}

	logger.Info("quote",
		zap.String("symbol", quote.Symbol),
		zap.String("rate", quote.Rate.String()),
		zap.Uint64("height", cfg.Height),
	)

	return printJSON(cmd.OutOrStdout(), quote)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
