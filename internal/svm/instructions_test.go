package svm

import (
	"encoding/base64"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var router = solana.MustPublicKeyFromBase58("Ccip842gzYHhvdDkSyi2YVCoAWPbYJoApMFzSxQroE9C")

func TestSetComputeUnitLimit(t *testing.T) {
	ix := SetComputeUnitLimit(DefaultComputeUnits)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0xc0, 0x5c, 0x15, 0x00}, data)
	assert.Equal(t, ComputeBudgetProgramID, ix.ProgramID())
}

func TestDecodeLookupTable(t *testing.T) {
	a := solana.SystemProgramID
	b := router
	data := make([]byte, lookupTableMetaSize)
	data = append(data, a[:]...)
	data = append(data, b[:]...)

	addresses, err := DecodeLookupTable(data)
	require.NoError(t, err)
	assert.Equal(t, solana.PublicKeySlice{a, b}, addresses)

	_, err = DecodeLookupTable(data[:10])
	assert.Error(t, err)
	_, err = DecodeLookupTable(data[:lookupTableMetaSize+5])
	assert.Error(t, err)
}

func TestParseMessageID(t *testing.T) {
	want := common.HexToHash("0x9f2c1d7e5b0a4c3e8d6f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f")
	logs := []string{
		"Program " + router.String() + " invoke [1]",
		"Program log: Instruction: CcipSend",
		"Program return: " + solana.SystemProgramID.String() + " AAAA",
		"Program return: " + router.String() + " " + base64.StdEncoding.EncodeToString(want[:]),
		"Program " + router.String() + " success",
	}
	id, ok := ParseMessageID(logs, router)
	require.True(t, ok)
	assert.Equal(t, want, *id)

	_, ok = ParseMessageID(logs[:3], router)
	assert.False(t, ok)

	_, ok = ParseMessageID([]string{"Program return: " + router.String() + " AAAA"}, router)
	assert.False(t, ok)
}
