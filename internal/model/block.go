package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block is the subset of an ICON block used by the CLI.
type Block struct {
	Version      string            `json:"version"`
	Height       Uint64            `json:"height"`
	BlockHash    string            `json:"block_hash"`
	PrevHash     string            `json:"prev_block_hash"`
	PeerID       string            `json:"peer_id"`
	TimeStamp    Uint64            `json:"time_stamp"`
	Transactions []json.RawMessage `json:"confirmed_transaction_list"`
	Raw          json.RawMessage   `json:"-"`
}

// TxCount returns the number of confirmed transactions in the block.
func (b Block) TxCount() int {
	return len(b.Transactions)
}

// Uint64 decodes from a JSON number or a 0x-prefixed hex string.
// Block responses use plain numbers; most other ICON values are hex.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := hexutil.DecodeUint64(s)
		if err != nil {
			return fmt.Errorf("decode %q: %w", s, err)
		}
		*u = Uint64(v)
		return nil
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("decode %s: %w", text, err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(u), 10)), nil
}
