package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables, e.g. SCANNER_RPC.
const EnvPrefix = "SCANNER"

// DefaultRPCURL is the ICON mainnet JSON-RPC v3 endpoint.
const DefaultRPCURL = "https://ctz.solidwallet.io/api/v3"

// ChainConfig holds the node connection settings shared by every command.
type ChainConfig struct {
	RPCURL       string
	NetworkID    uint64
	Timeout      time.Duration
	RPS          float64
	CacheSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// PoolsConfig holds configuration for the pools command.
type PoolsConfig struct {
	ChainConfig
	Contract        string
	Method          string
	Out             string
	PGDSN           string
	Migrate         bool
	RedisAddr       string
	RedisKey        string
	NotFoundCodes   []int
	NotFoundMessage string
	MetricsAddr     string
}

// LoadPools merges config file, environment variables, and flags into PoolsConfig.
func LoadPools(cfgFile string, flags *pflag.FlagSet) (PoolsConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"contract":        "cxa0af3165c08318e988cb30993b3048335b94af6c",
		"method":          "getPoolStats",
		"out":             "./data/pools.jsonl",
		"migrate":         true,
		"redis-key":       "balanced:pools",
		"not-found-codes": []int{-30032},
	})
	if err != nil {
		return PoolsConfig{}, err
	}

	codes, err := getIntSlice(v, "not-found-codes")
	if err != nil {
		return PoolsConfig{}, err
	}

	cfg := PoolsConfig{
		ChainConfig:     chainConfig(v),
		Contract:        v.GetString("contract"),
		Method:          v.GetString("method"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		Migrate:         v.GetBool("migrate"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisKey:        v.GetString("redis-key"),
		NotFoundCodes:   codes,
		NotFoundMessage: v.GetString("not-found-message"),
		MetricsAddr:     v.GetString("metrics-addr"),
	}

	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("network-id", uint64(1))
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("rps", 0.0)
	v.SetDefault("cache-size", 256)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func chainConfig(v *viper.Viper) ChainConfig {
	return ChainConfig{
		RPCURL:       v.GetString("rpc"),
		NetworkID:    v.GetUint64("network-id"),
		Timeout:      v.GetDuration("timeout"),
		RPS:          v.GetFloat64("rps"),
		CacheSize:    v.GetInt("cache-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
}

func getIntSlice(v *viper.Viper, key string) ([]int, error) {
	if !v.IsSet(key) {
		return nil, nil
	}

	switch typed := v.Get(key).(type) {
	case []int:
		return typed, nil
	case int:
		return []int{typed}, nil
	case string:
		return parseInts(splitAndClean(typed))
	case []string:
		return parseInts(cleanStrings(typed))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseInts(cleanStrings(items))
	default:
		return nil, fmt.Errorf("%s: unsupported value %v", key, typed)
	}
}

func parseInts(items []string) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(strings.Trim(item, "[]"))
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %s", item)
		}
		out = append(out, n)
	}
	return out, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
