package svm

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CCIP-Bridge/internal/ccip/accounts"
	xerrors "CCIP-Bridge/internal/errors"
)

var bnm = solana.MustPublicKeyFromBase58("3PjyGzj1jGVgHSKS4VR1Hr1memm63PmN8L9rtPDKwzZ6")

func registryData(table, mint solana.PublicKey) []byte {
	data := make([]byte, 8)
	data = append(data, 1)
	admin := solana.SystemProgramID
	data = append(data, admin[:]...)
	data = append(data, make([]byte, 32)...)
	data = append(data, table[:]...)
	indexes := make([]byte, 32)
	indexes[0] = 0b1011
	data = append(data, indexes...)
	return append(data, mint[:]...)
}

func TestDecodeTokenAdminRegistry(t *testing.T) {
	table := newKey(t).PublicKey()
	registry, err := DecodeTokenAdminRegistry(registryData(table, bnm))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), registry.Version)
	assert.Equal(t, solana.SystemProgramID, registry.Administrator)
	assert.True(t, registry.PendingAdministrator.IsZero())
	assert.Equal(t, table, registry.LookupTable)
	assert.Equal(t, byte(0b1011), registry.WritableIndexes[0][0])
	assert.Equal(t, bnm, registry.Mint)

	_, err = DecodeTokenAdminRegistry([]byte{1, 2})
	assert.Error(t, err)
	_, err = DecodeTokenAdminRegistry(registryData(table, bnm)[:60])
	assert.Error(t, err)
}

func TestLookupTableReader(t *testing.T) {
	table := newKey(t).PublicKey()
	resolver := accounts.NewResolver()
	pda, err := resolver.Derive([][]byte{[]byte(tokenAdminRegistrySeed), bnm[:]}, router)
	require.NoError(t, err)

	client := &fakeRPC{accounts: map[solana.PublicKey][]byte{pda.Address: registryData(table, bnm)}}
	reader := NewLookupTableReader(client, resolver)

	got, err := reader.LookupTable(context.Background(), devnet(), bnm)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	got, err = reader.LookupTable(context.Background(), devnet(), bnm)
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.Equal(t, 1, client.reads)

	_, err = reader.LookupTable(context.Background(), devnet(), solana.SystemProgramID)
	require.Error(t, err)
	assert.Equal(t, accounts.CodeMissingAccount, xerrors.CodeOf(err))
}

func TestLookupTableReaderRejectsEmptyTable(t *testing.T) {
	resolver := accounts.NewResolver()
	pda, err := resolver.Derive([][]byte{[]byte(tokenAdminRegistrySeed), bnm[:]}, router)
	require.NoError(t, err)
	client := &fakeRPC{accounts: map[solana.PublicKey][]byte{pda.Address: registryData(solana.PublicKey{}, bnm)}}

	_, err = NewLookupTableReader(client, resolver).LookupTable(context.Background(), devnet(), bnm)
	require.Error(t, err)
	assert.Equal(t, accounts.CodeMissingAccount, xerrors.CodeOf(err))
}
