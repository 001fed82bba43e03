package scanner

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"balancedScope/internal/model"
)

// priceScale is the fixed-point exponent of the price field when base and quote
// decimals are equal.
const priceScale = 18

// Normalize parses 0x-prefixed fields as integers and scales the amount fields
// into human-readable decimals. The input record is not modified.
func Normalize(record model.PoolRecord) (model.NormalizedPool, error) {
	pool := make(model.NormalizedPool, len(record))
	for key, value := range record {
		s, ok := value.(string)
		if !ok || !strings.HasPrefix(s, "0x") {
			pool[key] = value
			continue
		}
		n, err := parseHex(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		pool[key] = n
	}

	baseDecimals, err := decimalsField(pool, model.FieldBaseDecimals)
	if err != nil {
		return nil, err
	}
	quoteDecimals, err := decimalsField(pool, model.FieldQuoteDecimals)
	if err != nil {
		return nil, err
	}
	precision := (quoteDecimals - baseDecimals) + priceScale

	scales := []struct {
		key string
		exp int32
	}{
		{model.FieldBase, baseDecimals},
		{model.FieldQuote, quoteDecimals},
		{model.FieldPrice, precision},
		{model.FieldMinQuote, quoteDecimals},
		{model.FieldTotalSupply, quoteDecimals},
	}
	for _, scale := range scales {
		n, err := pool.Int(scale.key)
		if err != nil {
			return nil, err
		}
		pool[scale.key] = decimal.NewFromBigInt(n, -scale.exp)
	}

	return pool, nil
}

func parseHex(s string) (*big.Int, error) {
	digits := strings.TrimPrefix(s, "0x")
	if digits == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	if digits[0] == '-' || digits[0] == '+' {
		return nil, fmt.Errorf("invalid hex value %q", s)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex value %q", s)
	}
	return n, nil
}

func decimalsField(pool model.NormalizedPool, key string) (int32, error) {
	n, err := pool.Int(key)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > 255 {
		return 0, fmt.Errorf("field %q out of range: %s", key, n)
	}
	return int32(n.Int64()), nil
}
