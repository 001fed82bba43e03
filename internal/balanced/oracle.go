package balanced

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancedScope/internal/icon"
	"balancedScope/internal/model"
)

const (
	// BandOracleContract is the Band standard reference SCORE on ICON mainnet.
	BandOracleContract = "cx087b4164a87fdfb7b714f3bafe9dfb050fd6b132"
	RefDataMethod      = "get_ref_data"

	// rateDecimals is the fixed-point exponent of Band reference rates.
	rateDecimals = 9
)

// Oracle reads USD reference rates from the Band oracle.
type Oracle struct {
	caller   Caller
	contract string
	logger   *zap.Logger
}

// NewOracle builds an Oracle. An empty contract selects BandOracleContract.
func NewOracle(caller Caller, contract string, logger *zap.Logger) (*Oracle, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	if contract == "" {
		contract = BandOracleContract
	}
	if err := icon.ValidateContract(contract); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{caller: caller, contract: contract, logger: logger}, nil
}

type refData struct {
	Rate            string `json:"rate"`
	LastUpdateBase  string `json:"last_update_base"`
	LastUpdateQuote string `json:"last_update_quote"`
}

// Quote returns the symbol/USD rate, at height when it is non-nil.
func (o *Oracle) Quote(ctx context.Context, symbol string, height *uint64) (model.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return model.Quote{}, fmt.Errorf("symbol is required")
	}

	raw, err := o.caller.Call(ctx, icon.CallRequest{
		To:     o.contract,
		Method: RefDataMethod,
		Params: map[string]any{"_symbol": symbol},
		Height: height,
	})
	if err != nil {
		return model.Quote{}, fmt.Errorf("get ref data: %w", err)
	}

	var data refData
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.Quote{}, fmt.Errorf("decode ref data: %w", err)
	}

	rate, err := parseHexField("rate", data.Rate)
	if err != nil {
		return model.Quote{}, err
	}
	quote := model.Quote{
		Symbol: symbol,
		Rate:   decimal.NewFromBigInt(rate, -rateDecimals),
		Height: height,
	}
	if data.LastUpdateBase != "" {
		v, err := parseHexField("last_update_base", data.LastUpdateBase)
		if err != nil {
			return model.Quote{}, err
		}
		quote.LastUpdateBase = v.Uint64()
	}
	if data.LastUpdateQuote != "" {
		v, err := parseHexField("last_update_quote", data.LastUpdateQuote)
		if err != nil {
			return model.Quote{}, err
		}
		quote.LastUpdateQuote = v.Uint64()
	}

	o.logger.Debug("ref data", zap.String("symbol", symbol), zap.String("rate", quote.Rate.String()))
	return quote, nil
}

func parseHexField(name, value string) (*big.Int, error) {
	if !strings.HasPrefix(value, "0x") {
		return nil, fmt.Errorf("%s: expected hex value, got %q", name, value)
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(value, "0x"), 16)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid hex value %q", name, value)
	}
	return n, nil
}
