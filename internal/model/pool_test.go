package model

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedPool(name string) NormalizedPool {
	return NormalizedPool{
		FieldBase:          decimal.RequireFromString("2739005.184334618003584822"),
		FieldBaseDecimals:  big.NewInt(18),
		FieldBaseToken:     "cx2609b924e33ef00b648a409245c7ea394c467824",
		FieldMinQuote:      decimal.NewFromInt(10),
		FieldName:          name,
		FieldPrice:         decimal.RequireFromString("0.203963214704261421"),
		FieldQuote:         decimal.RequireFromString("558656.302488526822979912"),
		FieldQuoteDecimals: big.NewInt(18),
		FieldQuoteToken:    "cx88fd7df7ddff82f7cc735c871dc519838cb235bb",
		FieldTotalSupply:   decimal.RequireFromString("1055697.505245356868084886"),
	}
}

func TestNewPoolSnapshots(t *testing.T) {
	scannedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))
	snaps, err := NewPoolSnapshots([]NormalizedPool{normalizedPool("sICX/bnUSD"), normalizedPool("BALN/bnUSD")}, scannedAt)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	first := snaps[0]
	assert.Equal(t, uint64(1), first.PoolID)
	assert.Equal(t, "sICX/bnUSD", first.Name)
	assert.Equal(t, "cx2609b924e33ef00b648a409245c7ea394c467824", first.BaseToken)
	assert.Equal(t, int64(18), first.BaseDecimals)
	assert.Equal(t, int64(18), first.QuoteDecimals)
	assert.Equal(t, "10", first.MinQuote.String())
	assert.Equal(t, "0.203963214704261421", first.Price.String())
	assert.Equal(t, time.UTC, first.ScannedAt.Location())

	assert.Equal(t, uint64(2), snaps[1].PoolID)
	assert.Equal(t, "BALN/bnUSD", snaps[1].Name)
}

func TestNewPoolSnapshotMissingField(t *testing.T) {
	pool := normalizedPool("A")
	pool[FieldPrice] = "0x1"

	_, err := NewPoolSnapshots([]NormalizedPool{normalizedPool("ok"), pool}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool 2")

	delete(pool, FieldBaseDecimals)
	_, err = NewPoolSnapshot(1, pool, time.Now())
	assert.Error(t, err)
}

func TestUint64JSON(t *testing.T) {
	cases := map[string]uint64{
		`58586000`:    58586000,
		`"0x37df390"`: 58586000,
		`"0x0"`:       0,
	}
	for input, want := range cases {
		var got Uint64
		require.NoError(t, json.Unmarshal([]byte(input), &got), input)
		assert.Equal(t, want, uint64(got), input)
	}

	for _, bad := range []string{`"37df390"`, `"0xzz"`, `-1`, `1.5`} {
		var got Uint64
		assert.Error(t, json.Unmarshal([]byte(bad), &got), bad)
	}

	out, err := json.Marshal(Uint64(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(out))
}
