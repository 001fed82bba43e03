package icon

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ValidateContract checks a SCORE address of the form cx + 40 hex digits.
func ValidateContract(address string) error {
	return validateAddress(address, "cx")
}

func validateAddress(address, prefix string) error {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, prefix) {
		return fmt.Errorf("invalid address: %s", address)
	}
	body, err := hexutil.Decode("0x" + strings.TrimPrefix(address, prefix))
	if err != nil {
		return fmt.Errorf("invalid address: %s", address)
	}
	if len(body) != common.AddressLength {
		return fmt.Errorf("invalid address length: %s", address)
	}
	return nil
}
