package svm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// DefaultComputeUnits is the compute unit limit requested for ccip_send.
const DefaultComputeUnits uint32 = 1_400_000

// ComputeBudgetProgramID is the native compute budget program.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// SetComputeUnitLimit builds the compute budget instruction
// [2, units as little-endian u32].
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// lookupTableMetaSize is the fixed header of an address lookup table account.
const lookupTableMetaSize = 56

// DecodeLookupTable returns the addresses stored in an address lookup table
// account.
func DecodeLookupTable(data []byte) (solana.PublicKeySlice, error) {
	if len(data) < lookupTableMetaSize {
		return nil, fmt.Errorf("lookup table account is %d bytes, shorter than its header", len(data))
	}
	body := data[lookupTableMetaSize:]
	if len(body)%solana.PublicKeyLength != 0 {
		return nil, fmt.Errorf("lookup table body of %d bytes is not a multiple of %d", len(body), solana.PublicKeyLength)
	}
	out := make(solana.PublicKeySlice, 0, len(body)/solana.PublicKeyLength)
	for i := 0; i < len(body); i += solana.PublicKeyLength {
		out = append(out, solana.PublicKeyFromBytes(body[i:i+solana.PublicKeyLength]))
	}
	return out, nil
}

// ParseMessageID scans transaction logs for the router's return data and
// decodes it as the 32-byte CCIP message id.
func ParseMessageID(logs []string, router solana.PublicKey) (*common.Hash, bool) {
	prefix := "Program return: " + router.String() + " "
	for i := len(logs) - 1; i >= 0; i-- {
		if !strings.HasPrefix(logs[i], prefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(logs[i], prefix)))
		if err != nil || len(raw) != common.HashLength {
			return nil, false
		}
		id := common.BytesToHash(raw)
		return &id, true
	}
	return nil, false
}
