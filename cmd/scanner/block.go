package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancedScope/internal/config"
	"balancedScope/internal/model"
)

func runBlock(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBlock(cfgFile, cmd.Flags())
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

	var block model.Block
	if cfg.Height == 0 {
		block, err = client.LastBlock(ctx)
	} else {
		block, err = client.BlockByHeight(ctx, cfg.Height)
	}
	if err != nil {
		return err
	}

	logger.Info("block",
		zap.Uint64("height", uint64(block.Height)),
		zap.String("hash", block.BlockHash),
		zap.Int("txs", block.TxCount()),
	)

	return printJSON(cmd.OutOrStdout(), block.Raw)
}
