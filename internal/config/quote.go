package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	ChainConfig
	Contract string
	Symbol   string
	// Height is the block to read at; 0 means latest.
	Height uint64
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"oracle": "cx087b4164a87fdfb7b714f3bafe9dfb050fd6b132",
		"symbol": "ICX",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		ChainConfig: chainConfig(v),
		Contract:    v.GetString("oracle"),
		Symbol:      v.GetString("symbol"),
		Height:      v.GetUint64("height"),
	}, nil
}

// BlockConfig holds configuration for the block command.
type BlockConfig struct {
	ChainConfig
	// Height selects a block; 0 means the latest block.
	Height uint64
}

// LoadBlock merges config file, environment variables, and flags into BlockConfig.
func LoadBlock(cfgFile string, flags *pflag.FlagSet) (BlockConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return BlockConfig{}, err
	}

	return BlockConfig{
		ChainConfig: chainConfig(v),
		Height:      v.GetUint64("height"),
	}, nil
}
