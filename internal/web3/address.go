package web3

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// Family groups chains sharing an address format and runtime.
type Family string

const (
	FamilyEVM Family = "evm"
	FamilySVM Family = "svm"
)

// ParseFamily normalises a family name; empty means evm.
func ParseFamily(raw string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "evm", "ethereum":
		return FamilyEVM, nil
	case "svm", "solana":
		return FamilySVM, nil
	default:
		return "", fmt.Errorf("不支持的链类型 %s", raw)
	}
}

// ValidateAddress checks that address is well formed for the family.
func ValidateAddress(family Family, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is empty")
	}
	switch family {
	case FamilyEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%q is not a 20-byte hex address", address)
		}
	case FamilySVM:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("%q is not a base58 public key: %w", address, err)
		}
	default:
		return fmt.Errorf("unknown chain family %q", family)
	}
	return nil
}

// EncodeReceiver returns the byte form a destination program expects for an
// address of the family. EVM addresses are left padded to 32 bytes.
func EncodeReceiver(family Family, address string) ([]byte, error) {
	if err := ValidateAddress(family, address); err != nil {
		return nil, err
	}
	switch family {
	case FamilyEVM:
		return common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32), nil
	default:
		key := solana.MustPublicKeyFromBase58(strings.TrimSpace(address))
		return key.Bytes(), nil
	}
}
