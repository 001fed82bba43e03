package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Pool stat field names returned by getPoolStats.
const (
	FieldBase          = "base"
	FieldBaseDecimals  = "base_decimals"
	FieldBaseToken     = "base_token"
	FieldMinQuote      = "min_quote"
	FieldName          = "name"
	FieldPrice         = "price"
	FieldQuote         = "quote"
	FieldQuoteDecimals = "quote_decimals"
	FieldQuoteToken    = "quote_token"
	FieldTotalSupply   = "total_supply"
)

// PoolRecord is the raw pool stats mapping as returned by the node.
type PoolRecord map[string]any

// NormalizedPool is a PoolRecord after hex parsing and decimal scaling.
// Hex fields hold *big.Int; scaled amounts hold decimal.Decimal.
type NormalizedPool map[string]any

// Text returns a string field, or "" when absent or not a string.
func (p NormalizedPool) Text(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns an integer field.
func (p NormalizedPool) Int(key string) (*big.Int, error) {
	switch v := p[key].(type) {
	case *big.Int:
		return v, nil
	case nil:
		return nil, fmt.Errorf("missing field %q", key)
	default:
		return nil, fmt.Errorf("field %q is %T, not an integer", key, v)
	}
}

// Decimal returns a scaled amount field.
func (p NormalizedPool) Decimal(key string) (decimal.Decimal, error) {
	switch v := p[key].(type) {
	case decimal.Decimal:
		return v, nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing field %q", key)
	default:
		return decimal.Zero, fmt.Errorf("field %q is %T, not a decimal", key, v)
	}
}

// PoolSnapshot is the typed, storable view of a normalized pool.
type PoolSnapshot struct {
	PoolID        uint64          `json:"pool_id"`
	Name          string          `json:"name"`
	BaseToken     string          `json:"base_token"`
	QuoteToken    string          `json:"quote_token"`
	BaseDecimals  int64           `json:"base_decimals"`
	QuoteDecimals int64           `json:"quote_decimals"`
	Base          decimal.Decimal `json:"base"`
	Quote         decimal.Decimal `json:"quote"`
	Price         decimal.Decimal `json:"price"`
	MinQuote      decimal.Decimal `json:"min_quote"`
	TotalSupply   decimal.Decimal `json:"total_supply"`
	ScannedAt     time.Time       `json:"scanned_at"`
}

// NewPoolSnapshot projects a normalized pool into a PoolSnapshot.
func NewPoolSnapshot(poolID uint64, pool NormalizedPool, scannedAt time.Time) (PoolSnapshot, error) {
	baseDecimals, err := pool.Int(FieldBaseDecimals)
	if err != nil {
		return PoolSnapshot{}, err
	}
	quoteDecimals, err := pool.Int(FieldQuoteDecimals)
	if err != nil {
		return PoolSnapshot{}, err
	}

	snap := PoolSnapshot{
		PoolID:        poolID,
		Name:          pool.Text(FieldName),
		BaseToken:     pool.Text(FieldBaseToken),
		QuoteToken:    pool.Text(FieldQuoteToken),
		BaseDecimals:  baseDecimals.Int64(),
		QuoteDecimals: quoteDecimals.Int64(),
		ScannedAt:     scannedAt.UTC(),
	}

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{FieldBase, &snap.Base},
		{FieldQuote, &snap.Quote},
		{FieldPrice, &snap.Price},
		{FieldMinQuote, &snap.MinQuote},
		{FieldTotalSupply, &snap.TotalSupply},
	}
	for _, amount := range amounts {
		v, err := pool.Decimal(amount.key)
		if err != nil {
			return PoolSnapshot{}, err
		}
		*amount.dst = v
	}

	return snap, nil
}

// NewPoolSnapshots numbers pools by position, starting at pool ID 1.
func NewPoolSnapshots(pools []NormalizedPool, scannedAt time.Time) ([]PoolSnapshot, error) {
	snaps := make([]PoolSnapshot, 0, len(pools))
	for i, pool := range pools {
		id := uint64(i + 1)
		snap, err := NewPoolSnapshot(id, pool, scannedAt)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", id, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
