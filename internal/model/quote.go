package model

import "github.com/shopspring/decimal"

// Quote is an oracle reference rate against USD.
type Quote struct {
	Symbol          string          `json:"symbol"`
	Rate            decimal.Decimal `json:"rate"`
	LastUpdateBase  uint64          `json:"last_update_base"`
	LastUpdateQuote uint64          `json:"last_update_quote"`
	Height          *uint64         `json:"height,omitempty"`
}
